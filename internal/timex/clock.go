package timex

import "time"

// Timer is a pending one-shot callback. Stop reports whether the call
// prevented the callback from running.
type Timer interface {
	Stop() bool
}

// Clock is the source of time and one-shot timers for the core.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
