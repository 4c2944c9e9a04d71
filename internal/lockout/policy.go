// Package lockout implements the failed-login policy: after Threshold
// consecutive failures the account is locked until now+Window. Expiry is
// evaluated lazily by callers; Timer additionally lets them react right at
// the deadline.
package lockout

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/gophsignin/internal/timex"
)

const (
	DefaultThreshold = 5
	DefaultWindow    = 15 * time.Minute
)

type Policy struct {
	Threshold int
	Window    time.Duration
}

func DefaultPolicy() Policy {
	return Policy{Threshold: DefaultThreshold, Window: DefaultWindow}
}

// Fail records one more failed attempt on top of attempts. It returns the
// new count and, when the threshold is reached, the lockout deadline.
func (p Policy) Fail(attempts int, now time.Time) (int, *time.Time) {
	attempts++
	if attempts >= p.Threshold {
		until := now.Add(p.Window)
		return attempts, &until
	}
	return attempts, nil
}

// Locked reports whether until is set and still ahead of now.
func Locked(until *time.Time, now time.Time) bool {
	return until != nil && now.Before(*until)
}

// Expired reports whether a lockout deadline has been set and has passed.
func Expired(until *time.Time, now time.Time) bool {
	return until != nil && !now.Before(*until)
}

// Remaining is the time left until the lock lifts, or zero.
func Remaining(until *time.Time, now time.Time) time.Duration {
	if !Locked(until, now) {
		return 0
	}
	return until.Sub(now)
}

// Timer owns the single pending unlock callback. Every Schedule stops the
// previous handle first, so a stale unlock never fires against a newer window.
type Timer struct {
	clock timex.Clock

	mu       sync.Mutex
	handle   timex.Timer
	deadline time.Time
}

func NewTimer(clock timex.Clock) *Timer {
	return &Timer{clock: clock}
}

// Schedule arranges for fire(deadline) to run at deadline. A deadline that
// is already past fires on the next clock tick.
func (t *Timer) Schedule(deadline time.Time, fire func(deadline time.Time)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()

	d := deadline.Sub(t.clock.Now())
	if d < 0 {
		d = 0
	}
	t.deadline = deadline
	t.handle = t.clock.AfterFunc(d, func() { fire(deadline) })
}

// Stop cancels the pending callback, if any.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Deadline returns the deadline of the pending callback.
func (t *Timer) Deadline() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deadline, t.handle != nil
}

func (t *Timer) stopLocked() {
	if t.handle != nil {
		t.handle.Stop()
		t.handle = nil
		t.deadline = time.Time{}
	}
}
