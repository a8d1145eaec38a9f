package kholle

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(i int) *int { return &i }

func TestMaxMinAssign(t *testing.T) {
	tests := []struct {
		name   string
		users  []int64
		ranked map[int64][]int64
		slots  []int64
		check  func(t *testing.T, got map[int64]int64)
	}{
		{
			name:   "distinct first choices",
			users:  []int64{1, 2, 3},
			ranked: map[int64][]int64{1: {10, 20, 30}, 2: {20, 10, 30}, 3: {30, 20, 10}},
			slots:  []int64{10, 20, 30},
			check: func(t *testing.T, got map[int64]int64) {
				assert.Equal(t, map[int64]int64{1: 10, 2: 20, 3: 30}, got)
			},
		},
		{
			name:   "same first choice is split at capacity",
			users:  []int64{1, 2, 3, 4},
			ranked: map[int64][]int64{1: {10, 20}, 2: {10, 20}, 3: {10, 20}, 4: {10, 20}},
			slots:  []int64{10, 20},
			check: func(t *testing.T, got map[int64]int64) {
				counts := map[int64]int{}
				for _, s := range got {
					counts[s]++
				}
				assert.Equal(t, map[int64]int{10: 2, 20: 2}, counts)
			},
		},
		{
			name:   "users without preferences fill the emptiest slot",
			users:  []int64{1, 2, 3, 4},
			ranked: map[int64][]int64{1: {10}, 2: {10}},
			slots:  []int64{10, 20},
			check: func(t *testing.T, got map[int64]int64) {
				assert.Equal(t, int64(10), got[1])
				assert.Equal(t, int64(10), got[2])
				assert.Equal(t, int64(20), got[3])
				assert.Equal(t, int64(20), got[4])
			},
		},
		{
			name:   "second choice when first is full",
			users:  []int64{1, 2, 3},
			ranked: map[int64][]int64{1: {10, 30}, 2: {10, 30}, 3: {10, 30}},
			slots:  []int64{10, 20, 30},
			check: func(t *testing.T, got map[int64]int64) {
				counts := map[int64]int{}
				for _, s := range got {
					counts[s]++
				}
				assert.Equal(t, map[int64]int{10: 1, 30: 1, 20: 1}, counts)
			},
		},
		{
			name:  "no slots",
			users: []int64{1, 2},
			check: func(t *testing.T, got map[int64]int64) {
				assert.Empty(t, got)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := maxMinAssign(tt.users, tt.ranked, tt.slots, rand.New(rand.NewSource(42)))
			if len(tt.slots) > 0 {
				assert.Len(t, got, len(tt.users), "every user is assigned")
				capacity := (len(tt.users) + len(tt.slots) - 1) / len(tt.slots)
				counts := map[int64]int{}
				for _, s := range got {
					counts[s]++
				}
				for s, n := range counts {
					assert.LessOrEqual(t, n, capacity, "slot %d over capacity", s)
				}
			}
			tt.check(t, got)
		})
	}
}

func TestMaxMinAssign_deterministic(t *testing.T) {
	users := []int64{5, 3, 1, 4, 2, 6}
	ranked := map[int64][]int64{1: {10, 20}, 2: {10, 20}, 3: {10}, 4: {20, 10}, 5: {10}, 6: {20}}
	slots := []int64{10, 20, 30}

	first := maxMinAssign(users, ranked, slots, rand.New(rand.NewSource(7)))
	second := maxMinAssign(users, ranked, slots, rand.New(rand.NewSource(7)))
	assert.Equal(t, first, second)
}

func TestComputeStats(t *testing.T) {
	stats := computeStats([]Assignment{
		{ObtainedRank: intPtr(1)},
		{ObtainedRank: intPtr(2)},
		{ObtainedRank: intPtr(1)},
		{},
	})
	assert.Equal(t, AssignmentStats{
		Total:             4,
		Ranks:             []RankCount{{Rank: 1, Count: 2}, {Rank: 2, Count: 1}},
		WithoutPreference: 1,
		FirstChoiceRate:   50,
	}, stats)

	assert.Equal(t, AssignmentStats{}, computeStats(nil))
}
