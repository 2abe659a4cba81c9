package httputil

import (
	"context"
	"time"
)

// Default retry policy used by the sync service and the Miro client.
const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 500 * time.Millisecond
)

// Retry executes fn up to attempts times with exponential backoff and returns
// its first successful result.
//
// Only errors carrying HTTP status 429 or 5xx (see [IsRetryable]) trigger
// another attempt; every other error, including errors without a status, is
// returned immediately. After a failed attempt i (0-indexed) Retry waits
// baseDelay * 2^i before the next one. There is no jitter.
//
// When all attempts fail the last error is returned. Cancelling ctx while
// waiting returns ctx.Err(). Retry keeps no state between calls and is safe
// for concurrent use.
func Retry[T any](ctx context.Context, attempts int, baseDelay time.Duration, fn func(context.Context) (T, error)) (T, error) {
	attempts = max(attempts, 1)
	var (
		zero    T
		lastErr error
	)

	for i := range attempts {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if lastErr = err; !IsRetryable(err) {
			return zero, err
		}

		if i < attempts-1 {
			timer := time.NewTimer(Backoff(baseDelay, i))
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}
	}
	return zero, lastErr
}

// RetryDo is [Retry] for functions that only return an error.
func RetryDo(ctx context.Context, attempts int, baseDelay time.Duration, fn func(context.Context) error) error {
	_, err := Retry(ctx, attempts, baseDelay, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RetryWithBackoff is a convenience wrapper around [RetryDo] with the default
// policy: 3 attempts with a 500ms initial delay (doubling each retry).
func RetryWithBackoff(ctx context.Context, fn func(context.Context) error) error {
	return RetryDo(ctx, DefaultAttempts, DefaultBaseDelay, fn)
}

// Backoff returns the delay that follows failed attempt i: base * 2^i.
func Backoff(base time.Duration, attempt int) time.Duration {
	return base << attempt
}
