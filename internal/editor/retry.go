package editor

import (
	"context"
	"net/http"
	"time"
)

// RetryPolicy decides whether and when a failed request attempt is
// repeated. The edit request carries no side-effecting intent beyond
// generation, so retrying is safe.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// Backoff returns the delay before the given retry (attempt is
	// 1-based: the delay after the first failure is Backoff(1)).
	Backoff func(attempt int) time.Duration

	// Retryable reports whether an attempt that ended with the given
	// HTTP status (0 for a network-level failure) should be retried.
	Retryable func(status int, err error) bool
}

// DefaultRetryPolicy retries network errors, 429 and 503 with
// exponential backoff: 1s, 2s, 4s, ...
func DefaultRetryPolicy(maxAttempts int) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff: func(attempt int) time.Duration {
			return time.Second << (attempt - 1)
		},
		Retryable: func(status int, err error) bool {
			if err != nil {
				return true
			}
			return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
		},
	}
}

// wait sleeps for the backoff delay of the given attempt, returning
// early if the context is cancelled.
func (p RetryPolicy) wait(ctx context.Context, attempt int) error {
	var delay time.Duration
	if p.Backoff != nil {
		delay = p.Backoff(attempt)
	}
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
