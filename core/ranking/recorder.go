package ranking

import "sync"

// Recorder is a Surface without a screen: it lays items out with its StackLayout and keeps the
// last applied state and played animation, so that they can be sent to a client to replay.
type Recorder struct {
	StackLayout

	mu        sync.Mutex
	state     RenderedState
	animation *Animation
}

var _ Surface = (*Recorder)(nil) // interface compliance check

func NewRecorder(layout StackLayout) *Recorder {
	return &Recorder{StackLayout: layout}
}

func (r *Recorder) Apply(state RenderedState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
}

func (r *Recorder) Play(anim Animation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.animation = &anim
}

// State returns the last applied state.
func (r *Recorder) State() RenderedState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Animation returns the last played animation, nil if none.
func (r *Recorder) Animation() *Animation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.animation
}
