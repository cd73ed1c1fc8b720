package core

import "time"

// Clock abstracts the time source so timeout logic is testable without
// sleeping. Implementations must be safe for concurrent use.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock. time.Time carries a monotonic reading on
// this path, so interval arithmetic is immune to wall clock adjustments.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }
