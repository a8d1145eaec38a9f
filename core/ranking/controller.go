package ranking

import "sync"

// InputAdapter is the set of intents a rendering surface can raise.
// Every method reports whether the intent was accepted; rejected intents are silent no-ops.
type InputAdapter interface {
	OnMoveUp(id ID) bool
	OnMoveDown(id ID) bool
	OnDrop(id ID, targetIndex int) bool
}

// Controller owns the list of one view instance and feeds intents to its Driver.
type Controller struct {
	mu     sync.Mutex
	list   List
	driver *Driver
}

var _ InputAdapter = (*Controller)(nil) // interface compliance check

func NewController(list List, driver *Driver) *Controller {
	c := &Controller{driver: driver}
	c.Reset(list)
	return c
}

// Reset re-initializes the controller from a freshly rendered order.
func (c *Controller) Reset(list List) RenderedState {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.list = list.Clone()
	state := Sync(c.list)
	c.driver.surface.Apply(state)
	return state
}

func (c *Controller) List() List {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.Clone()
}

func (c *Controller) State() RenderedState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Sync(c.list)
}

func (c *Controller) OnMoveUp(id ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.list.Index(id) <= 0 {
		return false
	}
	return c.submit(MoveUp(id))
}

func (c *Controller) OnMoveDown(id ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.list.Index(id)
	if idx < 0 || idx == len(c.list)-1 {
		return false
	}
	return c.submit(MoveDown(id))
}

func (c *Controller) OnDrop(id ID, targetIndex int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.list.Index(id)
	if idx < 0 || clamp(targetIndex, 0, len(c.list)-1) == idx {
		return false // cancelled gesture
	}
	return c.submit(DropAt(id, targetIndex))
}

// OnRelease is a whole drag gesture on id released at vertical offset y: the drop index is
// computed by a DragTracker against the rects measured before the reorder.
func (c *Controller) OnRelease(id ID, y float64) bool {
	c.mu.Lock()
	list := c.list.Clone()
	rects := c.driver.surface.Measure(list)
	c.mu.Unlock()

	var drag DragTracker
	drag.Press(id, y)
	return drag.Release(y, list, rects, c)
}

func (c *Controller) submit(in Intent) bool {
	next, ok := c.driver.Run(c.list, in)
	if ok {
		c.list = next
	}
	return ok
}
