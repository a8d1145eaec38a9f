package core

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmailTemplates(t *testing.T) {
	fsys := fstest.MapFS{
		"templates/email/_base.txt":     {Data: []byte(`{{template "content" .}} -- {{.FrontendBaseURL}}`)},
		"templates/email/_base.gohtml":  {Data: []byte(`<p>{{template "content" .}}</p>`)},
		"templates/email/hello.txt":     {Data: []byte(`{{define "content"}}Hello {{.Data.Name}}{{end}}`)},
		"templates/email/hello.gohtml":  {Data: []byte(`{{define "content"}}Hi <b>{{.Data.Name}}</b> #{{inc 1}}{{end}}`)},
		"templates/email/readme.md":     {Data: []byte(`ignored`)},
		"templates/email/text_only.txt": {Data: []byte(`{{define "content"}}plain{{end}}`)},
	}

	cache, err := parseEmailTemplates(fsys, true)
	require.NoError(t, err)
	require.Len(t, cache, 2)
	assert.NotNil(t, cache["hello"].text)
	assert.NotNil(t, cache["hello"].html)
	assert.Nil(t, cache["text_only"].html)

	tmplMu.Lock()
	templates, tmplBaseURL = cache, "http://khollendar.test"
	tmplMu.Unlock()

	msg := &EmailMessage{TemplateName: "hello", TemplateData: map[string]string{"Name": "Ada"}}
	require.NoError(t, msg.Render())
	assert.Equal(t, "Hello Ada -- http://khollendar.test", msg.TextContent)
	assert.Equal(t, "<p>Hi <b>Ada</b> #2</p>", msg.HTMLContent)
	assert.True(t, msg.HasContent())
	assert.False(t, msg.HasRecipients())

	msg = &EmailMessage{TemplateName: "missing"}
	assert.Error(t, msg.Render())

	msg = &EmailMessage{BodyStr: "raw"}
	require.NoError(t, msg.Render())
	assert.Equal(t, "raw", msg.TextContent)
}
