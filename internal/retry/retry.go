// Package retry provides the shared retry policy used by the snapshot
// collector and the batch summary fetcher. A policy names its attempt
// ceiling, a backoff schedule, and a predicate deciding which errors are
// worth retrying; exhausting the ceiling returns the last error to the
// caller, which treats the unit of work as failed rather than fatal.
package retry

import (
	"context"
	"time"
)

// Backoff returns the delay to wait before retrying after the given failed
// attempt (1-based). The error is passed so schedules can differ per error
// class, e.g. a longer sleep after rate limiting.
type Backoff func(err error, attempt int) time.Duration

// Fixed returns a backoff that always waits the same duration
func Fixed(d time.Duration) Backoff {
	return func(error, int) time.Duration { return d }
}

// Exponential returns a backoff of base * 2^(attempt-1)
func Exponential(base time.Duration) Backoff {
	return func(_ error, attempt int) time.Duration {
		return base * (1 << uint(attempt-1))
	}
}

// Policy describes how an operation is retried
type Policy struct {
	MaxAttempts int                  // Total attempts, including the first
	Backoff     Backoff              // Delay before the next attempt
	Retryable   func(err error) bool // Whether err is worth another attempt
}

// Do invokes fn until it succeeds, returns a non-retryable error, exhausts
// the attempt ceiling, or ctx is cancelled. The last error seen is returned.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}

		if attempt == p.MaxAttempts {
			break
		}

		if p.Backoff != nil {
			if err := sleep(ctx, p.Backoff(lastErr, attempt)); err != nil {
				return err
			}
		}
	}

	return lastErr
}

// sleep waits for d or until ctx is cancelled
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
