package ranking

import (
	"errors"
	"fmt"
)

// ErrLastSlot is returned when removing the only remaining slot input.
var ErrLastSlot = errors.New("a session needs at least one slot")

// InputList is the ordered list of slot-time inputs of the session creation form.
// It always holds at least one input.
type InputList struct {
	values []string
}

func NewInputList(values ...string) *InputList {
	l := &InputList{values: append([]string(nil), values...)}
	if len(l.values) == 0 {
		l.values = []string{""}
	}
	return l
}

func (l *InputList) Len() int { return len(l.values) }

func (l *InputList) Values() []string { return append([]string(nil), l.values...) }

func (l *InputList) Set(i int, value string) {
	if i >= 0 && i < len(l.values) {
		l.values[i] = value
	}
}

// Add inserts an empty input after index after and returns its index.
// An out of range index appends.
func (l *InputList) Add(after int) int {
	if after < 0 || after >= len(l.values)-1 {
		l.values = append(l.values, "")
		return len(l.values) - 1
	}
	at := after + 1
	l.values = append(l.values[:at], append([]string{""}, l.values[at:]...)...)
	return at
}

// Remove deletes the input at i; the remaining inputs are renumbered.
func (l *InputList) Remove(i int) error {
	if len(l.values) <= 1 {
		return ErrLastSlot
	}
	if i < 0 || i >= len(l.values) {
		return nil
	}
	l.values = append(l.values[:i], l.values[i+1:]...)
	return nil
}

// Field is one rendered slot input.
type Field struct {
	Index int
	Name  string
	Label string
	Value string
}

func FieldName(i int) string { return fmt.Sprintf("slots[%d].time", i) }

func (l *InputList) Fields() []Field {
	fields := make([]Field, len(l.values))
	for i, v := range l.values {
		fields[i] = Field{
			Index: i,
			Name:  FieldName(i),
			Label: fmt.Sprintf("Créneau %d", i+1),
			Value: v,
		}
	}
	return fields
}

// Key is a key press inside a slot input.
type Key struct {
	Name  string
	Shift bool
	Ctrl  bool
}

// Action is the outcome of a key press in the slot input list.
type Action int

const (
	NoAction Action = iota
	FocusNext
	AddSlot
	Submit
)

func (a Action) String() string {
	switch a {
	case FocusNext:
		return "focus-next"
	case AddSlot:
		return "add"
	case Submit:
		return "submit"
	}
	return "none"
}

// KeyAction maps a key press on input index of count inputs to an Action:
// Ctrl+Enter submits, Shift+Enter adds a slot, Enter moves to the next input or adds one on the
// last input.
func KeyAction(index, count int, key Key) Action {
	if key.Name != "Enter" {
		return NoAction
	}
	switch {
	case key.Ctrl:
		return Submit
	case key.Shift:
		return AddSlot
	case index < count-1:
		return FocusNext
	}
	return AddSlot
}

// HandleKey applies the key press on input index and returns the action taken along with the
// index of the input that should receive focus.
func (l *InputList) HandleKey(index int, key Key) (Action, int) {
	action := KeyAction(index, len(l.values), key)
	switch action {
	case FocusNext:
		return action, index + 1
	case AddSlot:
		return action, l.Add(index)
	}
	return action, index
}
