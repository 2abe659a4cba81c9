// Package httputil provides the retry and rate-limit plumbing shared by every
// call boardsync makes against a host API.
//
// # Overview
//
//   - [Retry], [RetryDo]: exponential backoff around any host call
//   - [StatusError], [StatusCoder]: errors that carry an HTTP status
//   - [Limiter]: token bucket with queue and in-flight accounting
//
// # Retry
//
// [Retry] classifies failures by the HTTP status carried in the error chain:
//
//   - 429 and 5xx: transient, retried
//   - any other status (including 401): permanent, returned immediately
//   - no status at all: returned immediately
//
// The delay after failed attempt i is baseDelay * 2^i, without jitter:
//
//	items, err := httputil.Retry(ctx, 3, 500*time.Millisecond,
//	    func(ctx context.Context) ([]miro.Item, error) {
//	        return client.Items(ctx, boardID, "shape")
//	    })
//
// # Rate Limiting
//
// [Limiter] wraps golang.org/x/time/rate and reports its state as
// [LimiterStats], which the backend serves from GET /api/limits:
//
//	release, err := limiter.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer release()
package httputil
