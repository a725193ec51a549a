package domain

import "time"

// SetClock swaps the wrapper clock for the duration of a test.
func SetClock(f func() time.Time) (restore func()) {
	prev := now
	now = f
	return func() { now = prev }
}
