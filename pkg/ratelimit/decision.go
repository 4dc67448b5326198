package ratelimit

import (
	"fmt"
	"time"
)

// Decision is the result of one admission check, with the metadata a
// client needs to understand the current window state.
type Decision struct {
	// Key is the identity the check was made for.
	Key string

	// Allowed reports whether the request may proceed.
	Allowed bool

	// Limit is the maximum number of requests per window.
	Limit int

	// Remaining is the number of requests left in the current window.
	Remaining int

	// ResetAt is when the current window no longer constrains the caller.
	ResetAt time.Time

	// RetryAfter is how long a denied caller should wait before retrying.
	RetryAfter time.Duration
}

// String returns a human-readable representation of the decision.
func (d *Decision) String() string {
	if d.Allowed {
		return fmt.Sprintf("Decision{Allowed: true, Key: %s, Remaining: %d/%d}",
			d.Key, d.Remaining, d.Limit)
	}
	return fmt.Sprintf("Decision{Allowed: false, Key: %s, Limit: %d, RetryAfter: %s}",
		d.Key, d.Limit, d.RetryAfter)
}

// QuotaExceededError is returned by Limiter.Check when the identity has
// exhausted its window quota. It carries the retry-after hint derived
// from the store's remaining key expiry.
type QuotaExceededError struct {
	Key        string
	Limit      int
	RetryAfter time.Duration
}

// Error returns a formatted error message for the quota rejection.
func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %q: %d requests per window, retry after %s",
		e.Key, e.Limit, e.RetryAfter)
}

// RetryAfterSeconds returns the retry hint in whole seconds for the
// Retry-After header, never below one so sub-second hints still tell
// the client to back off.
func (e *QuotaExceededError) RetryAfterSeconds() int64 {
	seconds := int64(e.RetryAfter.Seconds())
	if seconds < 1 {
		return 1
	}
	return seconds
}

// ResetAtUnix returns when the window frees a slot, as a Unix timestamp
// relative to now, for the X-RateLimit-Reset header.
func (e *QuotaExceededError) ResetAtUnix(now time.Time) int64 {
	return now.Add(e.RetryAfter).Unix()
}
