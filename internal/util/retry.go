package util

import (
	"context"
	"math/rand"
	"time"
)

// Retry runs fn up to attempts times, sleeping between tries with exponential
// backoff and jitter. The last error is returned when every attempt fails.
func Retry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	return RetryIf(ctx, attempts, baseDelay, func(error) bool { return true }, fn)
}

// RetryIf is Retry with a predicate: an error for which retryable returns
// false aborts immediately. Intended for transient cloud-API failures such as
// throttling or stale optimistic-lock tokens.
func RetryIf(ctx context.Context, attempts int, baseDelay time.Duration, retryable func(error) bool, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(baseDelay, attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err = fn(); err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
	}
	return err
}

// backoffDelay doubles the base per attempt and applies 50-100% jitter so
// concurrent retriers fan out instead of colliding again.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	delay := base << (attempt - 1)
	return time.Duration(float64(delay) * (0.5 + rand.Float64()/2))
}
