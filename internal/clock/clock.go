// Package clock provides the monotonic time source and one-shot deadline
// timers RoundScheduler arms at actionSubmission entry.
package clock

import "time"

// Timer is an armed one-shot deadline. Stop cancels it; it is a no-op if
// the timer already fired or was already stopped.
type Timer interface {
	Stop() bool
}

// Clock is the time source every game task uses instead of calling into
// time.Now/time.AfterFunc directly, so tests can substitute a Fake Clock
// and drive deadline races deterministically.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// System is the production Clock, backed by the real wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

func (System) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
