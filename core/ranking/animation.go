package ranking

import (
	"sync"
	"time"
)

const (
	DefaultDuration = 300 * time.Millisecond
	DefaultEasing   = "ease-out"
)

// State of the Driver.
type State int

const (
	Idle State = iota
	Measuring
	Reordering
	Animating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Measuring:
		return "measuring"
	case Reordering:
		return "reordering"
	case Animating:
		return "animating"
	}
	return "unknown"
}

// Frame is the start and end box of one moved item for a single transition.
type Frame struct {
	ID    ID
	Start Rect
	End   Rect
}

// Delta is the inverted offset the item is translated by before easing back to zero.
func (f Frame) Delta() (dx, dy float64) {
	return f.Start.Left - f.End.Left, f.Start.Top - f.End.Top
}

// Animation is what a Surface plays after a reorder.
type Animation struct {
	Frames   []Frame
	Pulses   []ID // items whose rank label changed
	Duration time.Duration
	Easing   string
}

// Surface is the rendering target of a Driver.
type Surface interface {
	// Measure returns the current box of every visible item of list.
	Measure(list List) map[ID]Rect
	// Apply moves items to their new position instantly.
	Apply(state RenderedState)
	// Play starts the transition; it must not block until it ends.
	Play(anim Animation)
}

// Clock schedules the completion callback of a transition.
type Clock interface {
	AfterFunc(d time.Duration, f func())
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

// Driver runs reorder cycles: Idle → Measuring → Reordering → Animating → Idle.
type Driver struct {
	mu       sync.Mutex
	state    State
	token    Token
	surface  Surface
	clock    Clock
	duration time.Duration
	easing   string
	onIdle   func()
}

type Option func(*Driver)

func WithDuration(d time.Duration) Option {
	return func(drv *Driver) {
		if d > 0 {
			drv.duration = d
		}
	}
}

func WithEasing(easing string) Option {
	return func(drv *Driver) {
		if easing != "" {
			drv.easing = easing
		}
	}
}

func WithClock(c Clock) Option {
	return func(drv *Driver) { drv.clock = c }
}

// WithIdleHook registers f to be called each time a transition completes.
func WithIdleHook(f func()) Option {
	return func(drv *Driver) { drv.onIdle = f }
}

func NewDriver(token Token, surface Surface, opts ...Option) *Driver {
	drv := &Driver{
		token:    token,
		surface:  surface,
		clock:    realClock{},
		duration: DefaultDuration,
		easing:   DefaultEasing,
	}
	for _, opt := range opts {
		opt(drv)
	}
	return drv
}

func (drv *Driver) State() State {
	drv.mu.Lock()
	defer drv.mu.Unlock()
	return drv.state
}

func (drv *Driver) setState(s State) {
	drv.mu.Lock()
	drv.state = s
	drv.mu.Unlock()
}

func (drv *Driver) Duration() time.Duration { return drv.duration }

// Run performs one reorder cycle of list and returns the new order.
// It returns false, and list unchanged, when the token is held or the intent has no effect.
func (drv *Driver) Run(list List, in Intent) (List, bool) {
	if !drv.token.TryAcquire() {
		return list, false
	}
	next := Reorder(list, in)
	if next.Equal(list) {
		drv.token.Release()
		return list, false
	}

	drv.setState(Measuring)
	start := drv.surface.Measure(list)

	drv.setState(Reordering)
	before, after := Sync(list), Sync(next)
	drv.surface.Apply(after)

	drv.setState(Animating)
	end := drv.surface.Measure(next)
	drv.surface.Play(Animation{
		Frames:   frames(next, start, end),
		Pulses:   pulses(before, after),
		Duration: drv.duration,
		Easing:   drv.easing,
	})
	drv.clock.AfterFunc(drv.duration, drv.complete)
	return next, true
}

func (drv *Driver) complete() {
	drv.setState(Idle)
	drv.token.Release()
	if drv.onIdle != nil {
		drv.onIdle()
	}
}

// frames lists the items whose box changed; unmoved or unmeasured items are not animated.
func frames(list List, start, end map[ID]Rect) []Frame {
	var out []Frame
	for _, id := range list {
		s, ok1 := start[id]
		e, ok2 := end[id]
		if !ok1 || !ok2 || s == e {
			continue
		}
		out = append(out, Frame{ID: id, Start: s, End: e})
	}
	return out
}

func pulses(before, after RenderedState) []ID {
	old := before.Ranks()
	var out []ID
	for _, item := range after {
		if r, ok := old[item.ID]; ok && r != item.Rank {
			out = append(out, item.ID)
		}
	}
	return out
}
