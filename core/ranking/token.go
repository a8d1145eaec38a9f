package ranking

// Token is a single-slot lock that gates reorder cycles.
// Intents that cannot acquire it are dropped, never queued.
type Token interface {
	TryAcquire() bool
	Release()
}

// Lock is an in-process Token.
type Lock struct {
	ch chan struct{}
}

var _ Token = (*Lock)(nil) // interface compliance check

func NewLock() *Lock {
	return &Lock{ch: make(chan struct{}, 1)}
}

func (l *Lock) TryAcquire() bool {
	select {
	case l.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release is a no-op when the lock is not held.
func (l *Lock) Release() {
	select {
	case <-l.ch:
	default:
	}
}

func (l *Lock) Held() bool { return len(l.ch) == 1 }
