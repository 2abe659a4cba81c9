package cache

import "errors"

// Sentinel errors for caching operations.
var (
	// ErrClosed is returned by a MemoryCache after Close.
	ErrClosed = errors.New("cache closed")

	// ErrBackend wraps failures of a remote cache backend.
	ErrBackend = errors.New("cache backend error")
)
