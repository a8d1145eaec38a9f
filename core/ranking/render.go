package ranking

// ItemState is the rendered state of one item.
type ItemState struct {
	ID          ID
	Rank        int // 1-based, always index+1
	UpEnabled   bool
	DownEnabled bool
}

type RenderedState []ItemState

// Sync derives ranks and move control states from the order of list.
// The first item can never move up and the last item can never move down.
func Sync(list List) RenderedState {
	state := make(RenderedState, len(list))
	for i, id := range list {
		state[i] = ItemState{
			ID:          id,
			Rank:        i + 1,
			UpEnabled:   i > 0,
			DownEnabled: i < len(list)-1,
		}
	}
	return state
}

// Ranks maps every item to its rank.
func (s RenderedState) Ranks() map[ID]int {
	ranks := make(map[ID]int, len(s))
	for _, item := range s {
		ranks[item.ID] = item.Rank
	}
	return ranks
}

func (s RenderedState) List() List {
	list := make(List, len(s))
	for i, item := range s {
		list[i] = item.ID
	}
	return list
}

func (s RenderedState) Equal(other RenderedState) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}
