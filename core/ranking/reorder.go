package ranking

// Reorder applies in to list and returns the new order.
// list is never modified. When the subject is unknown or the move has no effect, list itself is
// returned.
func Reorder(list List, in Intent) List {
	from := list.Index(in.Subject)
	if from < 0 {
		return list
	}
	last := len(list) - 1

	switch in.Kind {
	case Up:
		if from == 0 {
			return list
		}
		next := list.Clone()
		next[from-1], next[from] = next[from], next[from-1]
		return next
	case Down:
		if from == last {
			return list
		}
		next := list.Clone()
		next[from], next[from+1] = next[from+1], next[from]
		return next
	case Drop:
		to := clamp(in.Target, 0, last)
		if to == from {
			return list
		}
		next := make(List, 0, len(list))
		next = append(next, list[:from]...)
		next = append(next, list[from+1:]...)
		next = append(next[:to], append(List{in.Subject}, next[to:]...)...)
		return next
	}
	return list
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
