// Package concurrent provides small concurrency primitives shared across
// the sync core.
package concurrent

import (
	"sync"
	"time"
)

// ResettableTimer is a single-slot deferred call. Scheduling always cancels
// any pending fire first, so the delay is measured from the most recent
// Schedule and at most one callback is ever outstanding.
type ResettableTimer struct {
	mu    sync.Mutex
	timer *time.Timer
}

// NewResettableTimer returns an idle timer.
func NewResettableTimer() *ResettableTimer {
	return &ResettableTimer{}
}

// Schedule arranges for fn to run after delay, replacing any pending fire.
func (t *ResettableTimer) Schedule(delay time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	var tm *time.Timer
	tm = time.AfterFunc(delay, func() {
		t.mu.Lock()
		if t.timer == tm {
			t.timer = nil
		}
		t.mu.Unlock()
		fn()
	})
	t.timer = tm
}

// Cancel stops any pending fire. It is a no-op on an idle timer.
func (t *ResettableTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Pending reports whether a fire is scheduled. The answer may be stale by
// the time the caller acts on it; use it for tests and diagnostics only.
func (t *ResettableTimer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}
