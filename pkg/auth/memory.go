package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryTokenStore keeps tokens in memory. It is safe for concurrent use.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]Token
}

// NewMemoryTokenStore creates an empty store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]Token)}
}

func (s *MemoryTokenStore) Get(_ context.Context, key string) (*Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.tokens[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &tok, nil
}

func (s *MemoryTokenStore) Set(_ context.Context, tok *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tok.Key] = *tok
	return nil
}

func (s *MemoryTokenStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, key)
	return nil
}

// MemoryStateStore keeps state tokens in memory. Expired tokens are purged
// on every Generate.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
	now    func() time.Time
}

// NewMemoryStateStore creates an empty store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryStateStore) Generate(_ context.Context, ttl time.Duration) (string, error) {
	state := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, exp := range s.states {
		if now.After(exp) {
			delete(s.states, k)
		}
	}
	s.states[state] = now.Add(ttl)
	return state, nil
}

func (s *MemoryStateStore) Validate(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.states[state]
	delete(s.states, state)
	if !ok || s.now().After(exp) {
		return ErrInvalidState
	}
	return nil
}

var (
	_ TokenStore = (*MemoryTokenStore)(nil)
	_ StateStore = (*MemoryStateStore)(nil)
)
