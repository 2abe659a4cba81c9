package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/matzehuels/boardsync/pkg/errors"
)

// FileTokenStore keeps one JSON file per key in a private directory. The
// CLI uses it with the key "default".
type FileTokenStore struct {
	mu  sync.RWMutex
	dir string
}

// NewFileTokenStore creates the store. An empty dir defaults to
// ~/.config/boardsync/tokens.
func NewFileTokenStore(dir string) (*FileTokenStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		dir = filepath.Join(home, ".config", "boardsync", "tokens")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create token dir: %w", err)
	}
	return &FileTokenStore{dir: dir}, nil
}

// Path returns the file a key is stored in.
func (s *FileTokenStore) Path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileTokenStore) Get(_ context.Context, key string) (*Token, error) {
	if err := apperrors.ValidateBoardID(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	return &tok, nil
}

func (s *FileTokenStore) Set(_ context.Context, tok *Token) error {
	if err := apperrors.ValidateBoardID(tok.Key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if err := os.WriteFile(s.Path(tok.Key), data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

func (s *FileTokenStore) Delete(_ context.Context, key string) error {
	if err := apperrors.ValidateBoardID(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.Path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

var _ TokenStore = (*FileTokenStore)(nil)
