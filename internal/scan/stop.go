package scan

import (
	"context"
	"sync"
	"time"
)

// Stopper is a cancellation token scoped to a single traversal run. The
// caller creates one per run, hands it to the engine, and may call Stop
// from any goroutine at any time.
//
// Stop is fire-and-forget and idempotent: there is no acknowledgement, and
// the effect is only observable as the run's event stream ending early.
// Because each run owns its token, stopping one run never interferes with
// another run on the same session.
type Stopper struct {
	once sync.Once
	done chan struct{}
}

// NewStopper returns a fresh, unstopped token.
func NewStopper() *Stopper {
	return &Stopper{done: make(chan struct{})}
}

// Stop requests cancellation. Safe to call multiple times and from
// multiple goroutines. It never cancels a remote call already in flight.
func (s *Stopper) Stop() {
	s.once.Do(func() { close(s.done) })
}

// Stopped reports whether cancellation has been requested.
func (s *Stopper) Stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when cancellation is requested.
func (s *Stopper) Done() <-chan struct{} {
	return s.done
}

// sleepInterruptible waits for d, returning early with false when the run
// is stopped or the context is cancelled. A non-positive duration succeeds
// immediately unless cancellation is already pending.
func sleepInterruptible(ctx context.Context, st *Stopper, d time.Duration) bool {
	if st.Stopped() || ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-st.Done():
		return false
	case <-ctx.Done():
		return false
	}
}
