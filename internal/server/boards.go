package server

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/oauth2"

	"github.com/matzehuels/boardsync/pkg/auth"
	"github.com/matzehuels/boardsync/pkg/board"
	"github.com/matzehuels/boardsync/pkg/boardsync"
	apperrors "github.com/matzehuels/boardsync/pkg/errors"
	"github.com/matzehuels/boardsync/pkg/httputil"
	"github.com/matzehuels/boardsync/pkg/miro"
)

// tokenKey is the token store key of the backend's Miro session. The backend
// serves a single Miro user.
const tokenKey = "default"

// Board is a board the backend can sync and push selections into.
type Board interface {
	board.Board
	SetSelection(ctx context.Context, ids []string) error
}

// Backend is the Miro access of the signed-in user.
type Backend interface {
	Widgets(ctx context.Context, boardID string, types []string) (map[string][]board.Item, error)
	TokenInfo(ctx context.Context) (miro.TokenInfo, error)
	Board(boardID string) Board
}

// ConnectFunc returns the Backend for the current session.
type ConnectFunc func(ctx context.Context) (Backend, error)

// miroBackend is the production Backend over the REST client.
type miroBackend struct {
	client *miro.Client
}

func (b miroBackend) Widgets(ctx context.Context, boardID string, types []string) (map[string][]board.Item, error) {
	return b.client.Widgets(ctx, boardID, types)
}

func (b miroBackend) TokenInfo(ctx context.Context) (miro.TokenInfo, error) {
	return b.client.TokenInfo(ctx)
}

func (b miroBackend) Board(boardID string) Board { return miro.NewBoard(b.client, boardID) }

// connectMiro builds a client from the static token or the stored OAuth
// token. Without either the caller must sign in at /auth/login.
func (s *Server) connectMiro(ctx context.Context) (Backend, error) {
	ts, err := s.tokenSource(ctx)
	if err != nil {
		return nil, err
	}
	client := miro.NewClient(ts,
		miro.WithBaseURL(s.cfg.Miro.BaseURL),
		miro.WithLimiter(s.limiter),
		miro.WithRetry(s.cfg.Sync.Attempts, s.cfg.Sync.BaseDelay),
		miro.WithLogger(s.logger))
	return miroBackend{client: client}, nil
}

func (s *Server) tokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if s.cfg.Miro.AccessToken != "" {
		return auth.StaticTokenSource(s.cfg.Miro.AccessToken), nil
	}
	tok, err := s.tokens.Get(ctx, tokenKey)
	if errors.Is(err, auth.ErrNotFound) {
		return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "not signed in to Miro")
	}
	if err != nil {
		return nil, err
	}
	if tok.Expired() {
		return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "Miro session expired")
	}
	return s.oauth.TokenSource(context.WithoutCancel(ctx), s.tokens, tokenKey, tok.OAuth2()), nil
}

// boardEntry is one live board with its sync service.
type boardEntry struct {
	board   Board
	service *boardsync.Service
}

// registry keeps one boardEntry per board id so sync state, the
// one-sync-at-a-time guard and the pushed selection survive between
// requests.
type registry struct {
	s *Server

	mu      sync.Mutex
	entries map[string]*boardEntry
}

func newRegistry(s *Server) *registry {
	return &registry{s: s, entries: make(map[string]*boardEntry)}
}

// get returns the entry for boardID, connecting on first use. The last
// persisted sync state is restored from the cache.
func (r *registry) get(ctx context.Context, boardID string) (*boardEntry, error) {
	if err := apperrors.ValidateBoardID(boardID); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[boardID]; ok {
		return e, nil
	}

	backend, err := r.s.connect(ctx)
	if err != nil {
		return nil, err
	}
	b := backend.Board(boardID)

	opts := []boardsync.Option{
		boardsync.WithRetry(r.s.cfg.Sync.Attempts, r.s.cfg.Sync.BaseDelay),
		boardsync.WithTemplates(r.s.cfg.Sync.Templates),
		boardsync.WithLogger(r.s.logger.With("board", boardID)),
	}
	if st, ok := r.s.loadState(ctx, boardID); ok {
		opts = append(opts, boardsync.WithState(st))
	}
	e := &boardEntry{board: b, service: boardsync.NewService(b, opts...)}
	r.entries[boardID] = e
	return e, nil
}

// reset drops every entry, for example after the user signed in again.
func (r *registry) reset() {
	r.mu.Lock()
	clear(r.entries)
	r.mu.Unlock()
}

func stateKey(s *Server, boardID string) string {
	return boardsync.StateKey(s.keyer, boardID)
}

func (s *Server) loadState(ctx context.Context, boardID string) (boardsync.State, bool) {
	st, ok, err := boardsync.LoadState(ctx, s.cache, stateKey(s, boardID))
	if err != nil {
		s.logger.Warn("discarding sync state", "board", boardID, "err", err)
	}
	return st, ok
}

func (s *Server) saveState(ctx context.Context, boardID string, st boardsync.State) {
	if err := boardsync.SaveState(ctx, s.cache, stateKey(s, boardID), st); err != nil {
		s.logger.Warn("persist sync state", "board", boardID, "err", err)
	}
}

// limits reports the shared Miro rate limiter.
func (s *Server) limits() httputil.LimiterStats { return s.limiter.Stats() }
