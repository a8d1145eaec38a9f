package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLock(t *testing.T) {
	l := NewLock()
	assert.False(t, l.Held())
	assert.True(t, l.TryAcquire())
	assert.False(t, l.TryAcquire())
	assert.True(t, l.Held())
	l.Release()
	l.Release() // no-op
	assert.True(t, l.TryAcquire())
}
