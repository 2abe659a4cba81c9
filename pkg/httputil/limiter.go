package httputil

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// LimiterStats is a snapshot of a [Limiter], served by GET /api/limits.
type LimiterStats struct {
	QueueLength int64   `json:"queue_length"` // callers waiting for a token
	InFlight    int64   `json:"in_flight"`    // calls holding a token and not yet released
	BucketFill  float64 `json:"bucket_fill"`  // available tokens / burst, in [0, 1]
}

// Limiter is a token bucket that also tracks how many callers are queued and
// how many calls are in flight. It is safe for concurrent use.
//
// A nil *Limiter never blocks.
type Limiter struct {
	bucket   *rate.Limiter
	burst    int
	waiting  atomic.Int64
	inFlight atomic.Int64
}

// NewLimiter creates a limiter refilling perSecond tokens per second up to burst.
// A non-positive perSecond disables limiting while still tracking in-flight calls.
func NewLimiter(perSecond float64, burst int) *Limiter {
	burst = max(burst, 1)
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &Limiter{bucket: rate.NewLimiter(limit, burst), burst: burst}
}

// Acquire blocks until a token is available or ctx is done. The returned
// release function must be called once the call completes.
func (l *Limiter) Acquire(ctx context.Context) (release func(), err error) {
	if l == nil {
		return func() {}, nil
	}
	l.waiting.Add(1)
	err = l.bucket.Wait(ctx)
	l.waiting.Add(-1)
	if err != nil {
		return nil, err
	}
	l.inFlight.Add(1)
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			l.inFlight.Add(-1)
		}
	}, nil
}

// Stats returns the current queue, in-flight and bucket fill values.
func (l *Limiter) Stats() LimiterStats {
	if l == nil {
		return LimiterStats{BucketFill: 1}
	}
	fill := 1.0
	if l.bucket.Limit() != rate.Inf {
		fill = l.bucket.Tokens() / float64(l.burst)
		fill = min(max(fill, 0), 1)
	}
	return LimiterStats{
		QueueLength: l.waiting.Load(),
		InFlight:    l.inFlight.Load(),
		BucketFill:  fill,
	}
}
