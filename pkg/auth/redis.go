package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStateStore keeps state tokens in Redis so any server instance can
// complete a flow another instance started.
type RedisStateStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStateStore uses client with keys under prefix ("oauth_state:"
// when empty).
func NewRedisStateStore(client *redis.Client, prefix string) *RedisStateStore {
	if prefix == "" {
		prefix = "oauth_state:"
	}
	return &RedisStateStore{client: client, prefix: prefix}
}

func (s *RedisStateStore) Generate(ctx context.Context, ttl time.Duration) (string, error) {
	state := uuid.NewString()
	if err := s.client.Set(ctx, s.prefix+state, "1", ttl).Err(); err != nil {
		return "", fmt.Errorf("store state: %w", err)
	}
	return state, nil
}

// Validate deletes the state with GETDEL, so two concurrent callbacks
// cannot both succeed.
func (s *RedisStateStore) Validate(ctx context.Context, state string) error {
	err := s.client.GetDel(ctx, s.prefix+state).Err()
	if errors.Is(err, redis.Nil) {
		return ErrInvalidState
	}
	if err != nil {
		return fmt.Errorf("validate state: %w", err)
	}
	return nil
}

var _ StateStore = (*RedisStateStore)(nil)
