// Package cache provides a small key/value cache abstraction with file,
// in-memory, Redis and no-op backends.
//
// The layout engine caches computed layouts keyed by graph hash and options,
// the backend caches widget listings and stores per-board panel state served
// by GET/PUT /api/cache/{boardId}. Keys are built by a [Keyer] so every
// consumer agrees on the namespace layout.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
//
// Get reports a miss with ok == false and a nil error; errors are reserved for
// backend failures. A zero ttl passed to Set means the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Default TTLs per key family.
const (
	TTLLayout  = 7 * 24 * time.Hour
	TTLWidgets = 30 * time.Second
	TTLBoard   = 30 * 24 * time.Hour
)
