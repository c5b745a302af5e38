package core

import "time"

// RateLimitEntry captures the fixed-window counter for one client identifier.
type RateLimitEntry struct {
	Count   int
	ResetAt time.Time
}

// Expired reports whether the window has closed at the given instant.
func (e *RateLimitEntry) Expired(now time.Time) bool {
	return e == nil || now.After(e.ResetAt)
}

// RateLimitResult is the outcome of a single quota check.
type RateLimitResult struct {
	Success   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns the time left until the window resets, never less than one second.
func (r RateLimitResult) RetryAfter(now time.Time) time.Duration {
	wait := r.ResetAt.Sub(now)
	if wait < time.Second {
		return time.Second
	}
	return wait
}
