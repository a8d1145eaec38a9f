// Package ranking keeps an ordered list of slot identifiers consistent with reorder intents.
//
// The order of a List is the ranking: ranks are never stored, they are derived by Sync.
// Intents flow through an InputAdapter (Controller) into the pure Reorder engine, the result is
// synchronized by Sync and animated by a Driver which holds an exclusivity Token for the duration
// of the transition.
package ranking

import "strings"

// ID identifies a slot independently of its position.
type ID int64

// List is an ordered sequence of slot IDs, most preferred first.
type List []ID

// Index returns the position of id in l, or -1.
func (l List) Index(id ID) int {
	for i, v := range l {
		if v == id {
			return i
		}
	}
	return -1
}

func (l List) Contains(id ID) bool { return l.Index(id) >= 0 }

func (l List) Clone() List {
	if l == nil {
		return nil
	}
	c := make(List, len(l))
	copy(c, l)
	return c
}

func (l List) Equal(other List) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}

// Kind is the type of move requested by an Intent.
type Kind int

const (
	Up Kind = iota + 1
	Down
	Drop
)

func (k Kind) String() string {
	switch k {
	case Up:
		return "up"
	case Down:
		return "down"
	case Drop:
		return "drop"
	}
	return "unknown"
}

// ParseKind parses a button direction ("up" or "down").
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return Up, true
	case "down":
		return Down, true
	}
	return 0, false
}

// Intent is a requested move of Subject. Target is only used by Drop.
type Intent struct {
	Subject ID
	Kind    Kind
	Target  int
}

func MoveUp(id ID) Intent   { return Intent{Subject: id, Kind: Up} }
func MoveDown(id ID) Intent { return Intent{Subject: id, Kind: Down} }

func DropAt(id ID, target int) Intent {
	return Intent{Subject: id, Kind: Drop, Target: target}
}
