package bridge

import (
	"sync"
	"time"
)

// ResettableTimer is a cancellable one-shot timer scoped to a session's
// lifetime. Reset re-arms it; Stop cancels it permanently. Every session
// teardown path must call Stop so the callback cannot fire against a
// destroyed session.
type ResettableTimer struct {
	mu      sync.Mutex
	d       time.Duration
	fn      func()
	timer   *time.Timer
	stopped bool
}

func NewResettableTimer(d time.Duration, fn func()) *ResettableTimer {
	t := &ResettableTimer{d: d, fn: fn}
	t.timer = time.AfterFunc(d, t.fire)
	return t
}

func (t *ResettableTimer) fire() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	t.fn()
}

// Reset re-arms the timer with its original duration.
func (t *ResettableTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.timer.Stop()
	t.timer.Reset(t.d)
}

// Stop cancels the timer. It is safe to call multiple times and from any
// teardown path.
func (t *ResettableTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.timer.Stop()
}
