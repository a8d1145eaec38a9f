package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	rec := NewRecorder(StackLayout{RowHeight: 56, Gap: 8, Width: 320})
	c := NewController(List{1, 2, 3}, NewDriver(NewLock(), rec, WithClock(&manualClock{})))

	assert.Equal(t, Sync(List{1, 2, 3}), rec.State())
	assert.Nil(t, rec.Animation())

	require.True(t, c.OnDrop(3, 0))
	assert.Equal(t, Sync(List{3, 1, 2}), rec.State())

	anim := rec.Animation()
	require.NotNil(t, anim)
	assert.Len(t, anim.Frames, 3)
	assert.ElementsMatch(t, []ID{3, 1, 2}, anim.Pulses)
	for _, f := range anim.Frames {
		if f.ID == 3 {
			_, dy := f.Delta()
			assert.Equal(t, 128.0, dy)
		}
	}
}
