package ranking

// Rect is the on-screen box of an item.
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// StackLayout lays items out as a vertical stack of fixed-height rows.
type StackLayout struct {
	RowHeight float64
	Gap       float64
	Width     float64
}

func (s StackLayout) Measure(list List) map[ID]Rect {
	rects := make(map[ID]Rect, len(list))
	for i, id := range list {
		rects[id] = Rect{
			Top:    float64(i) * (s.RowHeight + s.Gap),
			Width:  s.Width,
			Height: s.RowHeight,
		}
	}
	return rects
}

// IndexAt returns the index subject should be dropped at when released at vertical offset y.
// It counts the other items whose vertical midpoint lies above y, which is the insertion index
// once subject is removed from the list.
func IndexAt(rects map[ID]Rect, list List, subject ID, y float64) int {
	idx := 0
	for _, id := range list {
		if id == subject {
			continue
		}
		r, ok := rects[id]
		if !ok {
			continue
		}
		if y > r.Top+r.Height/2 {
			idx++
		}
	}
	return idx
}
