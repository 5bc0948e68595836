// internal/clock/clock.go
//
// Time sources for session timers.
// Defines:
//   - Clock: the scheduling surface used by sessions (Now + AfterFunc).
//   - Real(): wall-clock implementation backed by time.AfterFunc.
//   - Manual: controllable implementation for tests (see manual.go).

package clock

import "time"

// Timer is a pending one-shot callback.
type Timer interface {
	// Stop prevents the callback from firing. It reports false if the
	// timer already fired or was stopped.
	Stop() bool
}

// Clock schedules callbacks. Callbacks run on their own goroutine (Real) or
// on the goroutine advancing time (Manual); callers must synchronize.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// Real returns the wall clock.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
