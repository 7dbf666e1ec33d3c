// Package timetrack tracks the duration of operations.
package timetrack

import "time"

// Timer measures the time elapsed since its creation.
type Timer struct {
	startTime time.Time
}

// Elapsed returns the time elapsed since the timer was started.
func (t Timer) Elapsed() time.Duration {
	return time.Since(t.startTime)
}

// StartTimer starts the timer.
func StartTimer() Timer {
	return Timer{time.Now()}
}
