package webhook

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Handler processes one event. A returned error is logged; the event is not
// retried.
type Handler interface {
	HandleEvent(ctx context.Context, ev Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev Event) error

// HandleEvent implements Handler.
func (f HandlerFunc) HandleEvent(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Default queue sizing.
const (
	DefaultCapacity = 256
	DefaultWorkers  = 2
)

// Queue is a bounded in-memory event queue drained by a worker pool.
type Queue struct {
	events  chan Event
	handler Handler
	workers int
	logger  *log.Logger

	mu      sync.RWMutex
	stopped bool

	processed atomic.Int64
	failed    atomic.Int64
}

// Option configures a Queue.
type Option func(*Queue)

// WithCapacity bounds the number of queued events.
func WithCapacity(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.events = make(chan Event, n)
		}
	}
}

// WithWorkers sets how many events are handled concurrently.
func WithWorkers(n int) Option {
	return func(q *Queue) { q.workers = max(n, 1) }
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *log.Logger) Option {
	return func(q *Queue) { q.logger = logger }
}

// NewQueue creates a queue dispatching to h. Call Run to start the workers.
func NewQueue(h Handler, opts ...Option) *Queue {
	q := &Queue{handler: h, workers: DefaultWorkers}
	for _, opt := range opts {
		opt(q)
	}
	if q.events == nil {
		q.events = make(chan Event, DefaultCapacity)
	}
	if q.logger == nil {
		q.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return q
}

// Enqueue adds ev without blocking.
func (q *Queue) Enqueue(ev Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		return ErrStopped
	}
	select {
	case q.events <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Len returns the number of queued events.
func (q *Queue) Len() int { return len(q.events) }

// Stats reports how many events were handled and how many failed.
func (q *Queue) Stats() (processed, failed int64) {
	return q.processed.Load(), q.failed.Load()
}

// Run drains the queue until ctx is cancelled, then stops accepting events,
// handles what is already queued and returns. It returns nil on a normal
// shutdown.
func (q *Queue) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	for i := range q.workers {
		g.Go(func() error {
			q.worker(gctx, i)
			return nil
		})
	}

	<-ctx.Done()
	q.mu.Lock()
	q.stopped = true
	close(q.events)
	q.mu.Unlock()

	return g.Wait()
}

func (q *Queue) worker(ctx context.Context, id int) {
	q.logger.Debug("webhook worker started", "worker", id)
	for ev := range q.events {
		err := q.handler.HandleEvent(ctx, ev)
		q.processed.Add(1)
		if err != nil {
			q.failed.Add(1)
			q.logger.Warn("webhook event failed", "worker", id, "err", &Error{Event: ev, Err: err})
			continue
		}
		q.logger.Debug("webhook event handled", "worker", id, "id", ev.ID, "type", ev.Type, "board", ev.BoardID)
	}
}
