package appfs

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFS_layouts(t *testing.T) {
	for _, fp := range []string{
		"templates/pages/_layout.gohtml",
		"templates/email/_base.gohtml",
		"templates/email/_base.txt",
		"migrations/00001_create_users.sql",
		"static/js/ranking.js",
	} {
		t.Run(fp, func(t *testing.T) {
			_, err := fs.Stat(FS, fp)
			assert.NoError(t, err)
		})
	}
}
