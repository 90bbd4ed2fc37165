package profiler

import "time"

// Clock returns a monotonic timestamp in microseconds. Profiler components
// never interpret the absolute value, only differences between two reads.
type Clock func() float64

// NewClock returns the default wall clock. The zero point is the moment of
// creation; time.Since uses the monotonic reading, so the values are immune
// to system clock adjustments.
func NewClock() Clock {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Nanoseconds()) / 1e3
	}
}
