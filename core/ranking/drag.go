package ranking

// DragState is the state of a pointer drag gesture.
type DragState int

const (
	DragIdle DragState = iota
	Dragging
)

// DragTracker turns press/move/release pointer events on a drag handle into a drop on an
// InputAdapter.
type DragTracker struct {
	state   DragState
	subject ID
	originY float64
	lastY   float64
}

func (d *DragTracker) Press(id ID, y float64) {
	d.state = Dragging
	d.subject = id
	d.originY = y
	d.lastY = y
}

// Move returns the vertical offset since the previous event, or 0 when not dragging.
func (d *DragTracker) Move(y float64) float64 {
	if d.state != Dragging {
		return 0
	}
	dy := y - d.lastY
	d.lastY = y
	return dy
}

// Release ends the gesture and hands the drop to target. The drop is computed from rects, the
// boxes measured when the gesture started. It reports whether a reorder was accepted.
func (d *DragTracker) Release(y float64, list List, rects map[ID]Rect, target InputAdapter) bool {
	if d.state != Dragging {
		return false
	}
	subject := d.subject
	d.Cancel()

	if !list.Contains(subject) {
		return false
	}
	return target.OnDrop(subject, IndexAt(rects, list, subject, y))
}

func (d *DragTracker) Cancel() {
	d.state = DragIdle
	d.subject = 0
}

func (d *DragTracker) Dragging() bool { return d.state == Dragging }

func (d *DragTracker) Subject() ID { return d.subject }

// Offset is the total vertical travel of the current gesture.
func (d *DragTracker) Offset() float64 {
	if d.state != Dragging {
		return 0
	}
	return d.lastY - d.originY
}
