package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInputList_Remove(t *testing.T) {
	l := NewInputList("a", "b", "c")

	assert.NoError(t, l.Remove(1))
	assert.Equal(t, []string{"a", "c"}, l.Values())
	assert.Equal(t, []Field{
		{Index: 0, Name: "slots[0].time", Label: "Créneau 1", Value: "a"},
		{Index: 1, Name: "slots[1].time", Label: "Créneau 2", Value: "c"},
	}, l.Fields())

	assert.NoError(t, l.Remove(7), "out of range is a no-op")
	assert.NoError(t, l.Remove(0))
	assert.Equal(t, ErrLastSlot, l.Remove(0))
	assert.Equal(t, []string{"c"}, l.Values())
}

func TestNewInputList_atLeastOne(t *testing.T) {
	l := NewInputList()
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, ErrLastSlot, l.Remove(0))
}

func TestInputList_Add(t *testing.T) {
	tests := []struct {
		name    string
		after   int
		wantIdx int
		want    []string
	}{
		{name: "after first", after: 0, wantIdx: 1, want: []string{"a", "", "b"}},
		{name: "after last", after: 1, wantIdx: 2, want: []string{"a", "b", ""}},
		{name: "out of range appends", after: -1, wantIdx: 2, want: []string{"a", "b", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewInputList("a", "b")
			assert.Equal(t, tt.wantIdx, l.Add(tt.after))
			assert.Equal(t, tt.want, l.Values())
		})
	}
}

func TestKeyAction(t *testing.T) {
	enter := Key{Name: "Enter"}
	tests := []struct {
		name  string
		index int
		count int
		key   Key
		want  Action
	}{
		{name: "enter moves to next", index: 0, count: 3, key: enter, want: FocusNext},
		{name: "enter on last adds", index: 2, count: 3, key: enter, want: AddSlot},
		{name: "shift enter adds", index: 0, count: 3, key: Key{Name: "Enter", Shift: true}, want: AddSlot},
		{name: "ctrl enter submits", index: 0, count: 3, key: Key{Name: "Enter", Ctrl: true}, want: Submit},
		{name: "other key", index: 0, count: 3, key: Key{Name: "Tab"}, want: NoAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeyAction(tt.index, tt.count, tt.key); got != tt.want {
				t.Errorf("KeyAction() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInputList_HandleKey(t *testing.T) {
	l := NewInputList("a", "b")

	action, focus := l.HandleKey(0, Key{Name: "Enter"})
	assert.Equal(t, FocusNext, action)
	assert.Equal(t, 1, focus)
	assert.Equal(t, 2, l.Len())

	action, focus = l.HandleKey(1, Key{Name: "Enter"})
	assert.Equal(t, AddSlot, action)
	assert.Equal(t, 2, focus)
	assert.Equal(t, 3, l.Len())

	action, focus = l.HandleKey(0, Key{Name: "Enter", Shift: true})
	assert.Equal(t, AddSlot, action)
	assert.Equal(t, 1, focus)
	assert.Equal(t, []string{"a", "", "b", ""}, l.Values())

	action, focus = l.HandleKey(3, Key{Name: "Enter", Ctrl: true})
	assert.Equal(t, Submit, action)
	assert.Equal(t, 3, focus)
}
