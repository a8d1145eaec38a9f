package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(list List) (*Controller, *recordingSurface, *manualClock) {
	surface := newSurface()
	clock := &manualClock{}
	return NewController(list, NewDriver(NewLock(), surface, WithClock(clock))), surface, clock
}

func TestController_scenarios(t *testing.T) {
	s1, s2, s3, s4 := ID(1), ID(2), ID(3), ID(4)

	tests := []struct {
		name     string
		list     List
		act      func(c *Controller) bool
		accepted bool
		want     List
	}{
		{
			name:     "move up on second item",
			list:     List{s1, s2, s3},
			act:      func(c *Controller) bool { return c.OnMoveUp(s2) },
			accepted: true,
			want:     List{s2, s1, s3},
		},
		{
			name:     "move down on first item",
			list:     List{s1, s2, s3},
			act:      func(c *Controller) bool { return c.OnMoveDown(s1) },
			accepted: true,
			want:     List{s2, s1, s3},
		},
		{
			name: "single item up",
			list: List{s1},
			act:  func(c *Controller) bool { return c.OnMoveUp(s1) },
			want: List{s1},
		},
		{
			name: "single item down",
			list: List{s1},
			act:  func(c *Controller) bool { return c.OnMoveDown(s1) },
			want: List{s1},
		},
		{
			name:     "drag last item to top",
			list:     List{s1, s2, s3, s4},
			act:      func(c *Controller) bool { return c.OnDrop(s4, 0) },
			accepted: true,
			want:     List{s4, s1, s2, s3},
		},
		{
			name: "drop on own index is cancelled",
			list: List{s1, s2, s3},
			act:  func(c *Controller) bool { return c.OnDrop(s2, 1) },
			want: List{s1, s2, s3},
		},
		{
			name: "clamped drop on own index is cancelled",
			list: List{s1, s2, s3},
			act:  func(c *Controller) bool { return c.OnDrop(s3, 10) },
			want: List{s1, s2, s3},
		},
		{
			name: "unknown id",
			list: List{s1, s2},
			act:  func(c *Controller) bool { return c.OnMoveDown(ID(9)) },
			want: List{s1, s2},
		},
		{
			name:     "release at pointer offset",
			list:     List{s1, s2, s3, s4},
			act:      func(c *Controller) bool { return c.OnRelease(s1, 130) }, // below the middle of s3
			accepted: true,
			want:     List{s2, s3, s1, s4},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newTestController(tt.list)
			if got := tt.act(c); got != tt.accepted {
				t.Errorf("accepted = %v, want %v", got, tt.accepted)
			}
			assert.Equal(t, tt.want, c.List())
			assert.Equal(t, Sync(tt.want), c.State())
		})
	}
}

func TestController_exclusivity(t *testing.T) {
	c, surface, clock := newTestController(List{1, 2, 3})

	require.True(t, c.OnMoveDown(1))
	assert.Equal(t, List{2, 1, 3}, c.List())

	// intent arrives while animating: dropped, not queued
	assert.False(t, c.OnMoveDown(1))
	assert.False(t, c.OnDrop(3, 0))
	assert.Equal(t, List{2, 1, 3}, c.List())

	clock.fire()
	assert.Equal(t, List{2, 1, 3}, c.List(), "nothing replayed on completion")
	assert.Len(t, surface.played, 1)

	require.True(t, c.OnMoveDown(1))
	assert.Equal(t, List{2, 3, 1}, c.List())
}

func TestController_Reset(t *testing.T) {
	c, surface, _ := newTestController(List{1, 2})
	require.Len(t, surface.applied, 1, "initial sync")

	state := c.Reset(List{5, 6, 7})
	assert.Equal(t, Sync(List{5, 6, 7}), state)
	assert.Equal(t, List{5, 6, 7}, c.List())
	assert.Len(t, surface.applied, 2)
}

func TestDragTracker(t *testing.T) {
	layout := StackLayout{RowHeight: 40, Gap: 8}
	list := List{1, 2, 3, 4}
	rects := layout.Measure(list)

	c, _, _ := newTestController(list)
	var d DragTracker

	assert.False(t, d.Release(0, list, rects, c), "release without press")

	d.Press(4, 160)
	assert.True(t, d.Dragging())
	assert.Equal(t, ID(4), d.Subject())
	assert.Equal(t, -150.0, d.Move(10))
	assert.Equal(t, -150.0, d.Offset())

	assert.True(t, d.Release(5, list, rects, c))
	assert.False(t, d.Dragging())
	assert.Equal(t, List{4, 1, 2, 3}, c.List())
}

func TestController_OnRelease(t *testing.T) {
	tests := []struct {
		name     string
		subject  ID
		y        float64
		want     bool
		wantList List
	}{
		{name: "to the top", subject: 3, y: 0, want: true, wantList: List{3, 1, 2}},
		{name: "to the bottom", subject: 1, y: 500, want: true, wantList: List{2, 3, 1}},
		{name: "own position", subject: 2, y: 60, want: false, wantList: List{1, 2, 3}},
		{name: "unknown subject", subject: 9, y: 0, want: false, wantList: List{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, surface, _ := newTestController(List{1, 2, 3})
			assert.Equal(t, tt.want, c.OnRelease(tt.subject, tt.y))
			assert.Equal(t, tt.wantList, c.List())
			if !tt.want {
				assert.Empty(t, surface.played)
			}
		})
	}
}

func TestIndexAt(t *testing.T) {
	list := List{1, 2, 3, 4}
	rects := StackLayout{RowHeight: 40, Gap: 8}.Measure(list)

	tests := []struct {
		name    string
		subject ID
		y       float64
		want    int
	}{
		{name: "top", subject: 4, y: 0, want: 0},
		{name: "above everything", subject: 3, y: -100, want: 0},
		{name: "past the second row", subject: 1, y: 70, want: 1},
		{name: "bottom", subject: 1, y: 500, want: 3},
		{name: "own position", subject: 2, y: 60, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IndexAt(rects, list, tt.subject, tt.y); got != tt.want {
				t.Errorf("IndexAt() = %v, want %v", got, tt.want)
			}
		})
	}
}
