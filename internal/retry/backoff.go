// Package retry provides the backoff schedule used when publishing tasks to
// the queue fails transiently.
package retry

import "time"

// ExponentialBackoff returns the delay before retrying a failed attempt.
// The delay doubles with each attempt: base * 2^attempt.
func ExponentialBackoff(attempt int, base time.Duration) time.Duration {
	return base * (1 << attempt)
}
