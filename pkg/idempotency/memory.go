package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process. Records are lost on restart.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	rec     *Record // nil while pending
	expires time.Time
}

// NewMemoryStore creates a store replaying responses for ttl. A
// non-positive ttl uses DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

// Begin implements Store.
func (s *MemoryStore) Begin(_ context.Context, key string) (*Record, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, k)
		}
	}

	if e, ok := s.entries[key]; ok {
		if e.rec == nil {
			return nil, ErrInProgress
		}
		rec := *e.rec
		return &rec, nil
	}
	s.entries[key] = memoryEntry{expires: now.Add(pendingTTL)}
	return nil, nil
}

// Complete implements Store.
func (s *MemoryStore) Complete(_ context.Context, key string, rec *Record) error {
	if key == "" {
		return ErrEmptyKey
	}
	stored := *rec
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	s.mu.Lock()
	s.entries[key] = memoryEntry{rec: &stored, expires: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

// Release implements Store.
func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	if e, ok := s.entries[key]; ok && e.rec == nil {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return nil
}

var _ Store = (*MemoryStore)(nil)
