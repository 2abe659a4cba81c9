//go:build integration

package auth

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestMongoTokenStoreIntegration(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}
	ctx := context.Background()
	s, err := NewMongoTokenStore(ctx, uri, "boardsync_test", "tokens_"+time.Now().Format("150405"))
	if err != nil {
		t.Fatalf("NewMongoTokenStore: %v", err)
	}
	t.Cleanup(func() {
		s.coll.Drop(ctx)
		s.Close(ctx)
	})
	testTokenStore(t, s)
}

func TestRedisStateStoreIntegration(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatal(err)
	}
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	s := NewRedisStateStore(client, "boardsync_test_state:")
	state, err := s.Generate(ctx, time.Minute)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := s.Validate(ctx, state); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if err := s.Validate(ctx, state); !errors.Is(err, ErrInvalidState) {
		t.Errorf("reused state err = %v", err)
	}
}
