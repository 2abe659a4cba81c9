// Package server implements the `boardsync serve` HTTP backend.
//
// The backend brokers Miro OAuth tokens, proxies a few Miro REST calls for
// the board panel, exposes the layout engine and runs board syncs. Routes:
//
//	GET  /healthz
//	GET  /api/limits
//	GET  /api/boards/{boardId}/widgets?types=shape,connector
//	POST /api/boards/{boardId}/sync
//	DEL  /api/boards/{boardId}/sync
//	POST /api/boards/{boardId}/arrange
//	GET  /api/cache/{boardId}
//	PUT  /api/cache/{boardId}
//	POST /api/layout
//	POST /api/graphviz?program=dot
//	GET  /auth/login
//	GET  /auth/callback
//	GET  /auth/status
//	POST /webhooks/miro
//
// POST and PUT routes honour the Idempotency-Key header.
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/boardsync/internal/config"
	"github.com/matzehuels/boardsync/pkg/auth"
	"github.com/matzehuels/boardsync/pkg/cache"
	"github.com/matzehuels/boardsync/pkg/graph"
	"github.com/matzehuels/boardsync/pkg/httputil"
	"github.com/matzehuels/boardsync/pkg/idempotency"
	"github.com/matzehuels/boardsync/pkg/layout"
	"github.com/matzehuels/boardsync/pkg/webhook"
)

// Layouter is the part of *layout.Engine the server uses.
type Layouter interface {
	Layout(ctx context.Context, g graph.Graph, opts layout.Options) (graph.LayoutResult, error)
	Run(ctx context.Context, dot []byte, program string) ([]byte, error)
}

// Deps are the collaborators of a Server. Nil stores fall back to
// in-process implementations.
type Deps struct {
	Config      *config.Config
	Logger      *log.Logger
	Layout      Layouter
	Cache       cache.Cache
	Keyer       cache.Keyer
	Idempotency idempotency.Store
	Tokens      auth.TokenStore
	States      auth.StateStore
	Limiter     *httputil.Limiter
	OAuth       *auth.OAuth

	// Connect builds the Miro backend for the signed-in user. Nil uses the
	// Miro REST API with the configured or stored token.
	Connect ConnectFunc
}

// Server is the HTTP backend.
type Server struct {
	cfg     *config.Config
	logger  *log.Logger
	layout  Layouter
	cache   cache.Cache
	keyer   cache.Keyer
	idem    idempotency.Store
	tokens  auth.TokenStore
	states  auth.StateStore
	oauth   *auth.OAuth
	limiter *httputil.Limiter
	connect ConnectFunc
	boards  *registry
	queue   *webhook.Queue
	handler http.Handler
}

// New wires a Server. It does not start listening.
func New(d Deps) *Server {
	s := &Server{
		cfg:     d.Config,
		logger:  d.Logger,
		layout:  d.Layout,
		cache:   d.Cache,
		keyer:   d.Keyer,
		idem:    d.Idempotency,
		tokens:  d.Tokens,
		states:  d.States,
		limiter: d.Limiter,
		oauth:   d.OAuth,
		connect: d.Connect,
	}
	if s.cfg == nil {
		s.cfg = config.Default()
	}
	if s.logger == nil {
		s.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if s.cache == nil {
		s.cache = cache.NewMemoryCache()
	}
	if s.keyer == nil {
		s.keyer = cache.NewDefaultKeyer()
	}
	if s.idem == nil {
		s.idem = idempotency.NewMemoryStore(idempotency.DefaultTTL)
	}
	if s.tokens == nil {
		s.tokens = auth.NewMemoryTokenStore()
	}
	if s.states == nil {
		s.states = auth.NewMemoryStateStore()
	}
	if s.limiter == nil {
		s.limiter = httputil.NewLimiter(s.cfg.Miro.RatePerSecond, s.cfg.Miro.Burst)
	}
	if s.connect == nil {
		s.connect = s.connectMiro
	}

	if s.oauth == nil {
		s.oauth = auth.NewOAuth(auth.Config{
			ClientID:     s.cfg.Miro.ClientID,
			ClientSecret: s.cfg.Miro.ClientSecret,
			RedirectURL:  s.cfg.RedirectURL(),
		})
	}
	s.boards = newRegistry(s)
	s.queue = webhook.NewQueue(s,
		webhook.WithCapacity(s.cfg.Webhook.QueueSize),
		webhook.WithWorkers(s.cfg.Webhook.Workers),
		webhook.WithLogger(s.logger))
	s.handler = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Queue returns the webhook queue. Run starts its workers.
func (s *Server) Queue() *webhook.Queue { return s.queue }

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return s.queue.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
