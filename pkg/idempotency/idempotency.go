// Package idempotency stores the responses of mutating API calls by their
// Idempotency-Key so a retried request replays the first response instead of
// running twice.
//
// A request goes through three steps:
//
//	rec, err := store.Begin(ctx, key)
//	switch {
//	case errors.Is(err, idempotency.ErrInProgress):
//	    // another request with the same key is still running
//	case rec != nil:
//	    // replay rec
//	default:
//	    // run the handler, then store.Complete(ctx, key, result)
//	    // or store.Release(ctx, key) if it must be retried
//	}
//
// Keys are used exactly as the client sent them.
package idempotency

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// DefaultTTL is how long a completed response is replayed.
const DefaultTTL = 24 * time.Hour

// pendingTTL bounds how long a crashed request can block its key.
const pendingTTL = 5 * time.Minute

var (
	// ErrInProgress is returned by Begin while another request holds the key.
	ErrInProgress = errors.New("request with this idempotency key is in progress")

	// ErrEmptyKey is returned for an empty key.
	ErrEmptyKey = errors.New("empty idempotency key")
)

// Record is a stored response.
type Record struct {
	Status      int       `json:"status"`
	ContentType string    `json:"content_type,omitempty"`
	Body        []byte    `json:"body,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Write replays the record on w. The Idempotent-Replayed header tells the
// client the handler did not run again.
func (r *Record) Write(w http.ResponseWriter) {
	if r.ContentType != "" {
		w.Header().Set("Content-Type", r.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(r.Status)
	_, _ = w.Write(r.Body)
}

// Store persists idempotency records.
type Store interface {
	// Begin claims key. It returns the stored record if the key already
	// completed, ErrInProgress if another request holds it, and (nil, nil)
	// when the caller now owns the key.
	Begin(ctx context.Context, key string) (*Record, error)

	// Complete stores the response for a key claimed with Begin.
	Complete(ctx context.Context, key string, rec *Record) error

	// Release frees a claimed key without storing a response.
	Release(ctx context.Context, key string) error
}
