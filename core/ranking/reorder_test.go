package ranking

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReorder(t *testing.T) {
	s1, s2, s3, s4 := ID(1), ID(2), ID(3), ID(4)
	three := List{s1, s2, s3}
	four := List{s1, s2, s3, s4}

	tests := []struct {
		name   string
		list   List
		intent Intent
		want   List
	}{
		{name: "move up swaps with predecessor", list: three, intent: MoveUp(s2), want: List{s2, s1, s3}},
		{name: "move down swaps with successor", list: three, intent: MoveDown(s1), want: List{s2, s1, s3}},
		{name: "move up first is a no-op", list: three, intent: MoveUp(s1), want: three},
		{name: "move down last is a no-op", list: three, intent: MoveDown(s3), want: three},
		{name: "single item up", list: List{s1}, intent: MoveUp(s1), want: List{s1}},
		{name: "single item down", list: List{s1}, intent: MoveDown(s1), want: List{s1}},
		{name: "unknown subject", list: three, intent: MoveUp(ID(42)), want: three},
		{name: "empty list", list: List{}, intent: MoveDown(s1), want: List{}},
		{name: "drop last to top", list: four, intent: DropAt(s4, 0), want: List{s4, s1, s2, s3}},
		{name: "drop first to bottom", list: four, intent: DropAt(s1, 3), want: List{s2, s3, s4, s1}},
		{name: "drop to middle", list: four, intent: DropAt(s1, 2), want: List{s2, s3, s1, s4}},
		{name: "drop clamps high target", list: four, intent: DropAt(s2, 99), want: List{s1, s3, s4, s2}},
		{name: "drop clamps negative target", list: four, intent: DropAt(s3, -5), want: List{s3, s1, s2, s4}},
		{name: "drop at same index", list: four, intent: DropAt(s2, 1), want: four},
		{name: "unknown kind", list: three, intent: Intent{Subject: s1, Kind: Kind(99)}, want: three},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := tt.list.Clone()
			got := Reorder(tt.list, tt.intent)
			if !got.Equal(tt.want) {
				t.Errorf("Reorder() = %v, want %v", got, tt.want)
			}
			if !tt.list.Equal(orig) {
				t.Errorf("Reorder() mutated its input: %v, was %v", tt.list, orig)
			}
		})
	}
}

func TestReorder_permutation(t *testing.T) {
	list := List{10, 20, 30, 40, 50}
	sorted := func(l List) []int {
		out := make([]int, len(l))
		for i, id := range l {
			out[i] = int(id)
		}
		sort.Ints(out)
		return out
	}

	for _, id := range list {
		intents := []Intent{MoveUp(id), MoveDown(id)}
		for target := -1; target <= len(list); target++ {
			intents = append(intents, DropAt(id, target))
		}
		for _, in := range intents {
			got := Reorder(list, in)
			assert.Equal(t, sorted(list), sorted(got), "intent %+v", in)
		}
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in     string
		want   Kind
		wantOk bool
	}{
		{in: "up", want: Up, wantOk: true},
		{in: " DOWN ", want: Down, wantOk: true},
		{in: "drop"},
		{in: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseKind(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOk, ok)
		})
	}
}
