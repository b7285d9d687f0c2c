package sandbox

import (
	"sync"
	"time"
)

type teardownState int

const (
	teardownScheduled teardownState = iota
	teardownCancelled
	teardownFired
)

// Teardown is the scheduled destruction of a realm. The host may push the
// deadline back, cancel it and close the session itself later, or fire it
// early. The destroy function runs at most once.
type Teardown struct {
	mu       sync.Mutex
	fn       func()
	timer    *time.Timer
	deadline time.Time
	gen      int
	state    teardownState
	done     chan struct{}
}

func newTeardown(grace time.Duration, fn func()) *Teardown {
	t := &Teardown{fn: fn, done: make(chan struct{})}
	t.mu.Lock()
	t.arm(grace)
	t.mu.Unlock()
	return t
}

// arm must be called with mu held.
func (t *Teardown) arm(d time.Duration) {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.deadline = time.Now().Add(d)
	t.timer = time.AfterFunc(d, func() {
		t.run(func() bool { return t.state == teardownScheduled && t.gen == gen })
	})
}

// Extend pushes the deadline back by d. It returns false once the
// teardown was cancelled or has fired.
func (t *Teardown) Extend(d time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != teardownScheduled {
		return false
	}
	t.arm(time.Until(t.deadline) + d)
	return true
}

// Cancel stops the timer. The session then stays alive until Close.
func (t *Teardown) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != teardownScheduled {
		return false
	}
	t.state = teardownCancelled
	t.timer.Stop()
	return true
}

// Fire runs the teardown now unless it already ran.
func (t *Teardown) Fire() bool {
	return t.run(func() bool { return true })
}

// Scheduled reports whether the timer is still armed.
func (t *Teardown) Scheduled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == teardownScheduled
}

// Deadline returns the current firing time.
func (t *Teardown) Deadline() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deadline
}

// Done is closed after the teardown has run.
func (t *Teardown) Done() <-chan struct{} {
	return t.done
}

func (t *Teardown) run(ready func() bool) bool {
	t.mu.Lock()
	if t.state == teardownFired || !ready() {
		t.mu.Unlock()
		return false
	}
	t.state = teardownFired
	t.timer.Stop()
	t.mu.Unlock()

	t.fn()
	close(t.done)
	return true
}
