package layout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/boardsync/pkg/cache"
	apperrors "github.com/matzehuels/boardsync/pkg/errors"
	"github.com/matzehuels/boardsync/pkg/graph"
	"github.com/matzehuels/boardsync/pkg/observability"
)

// ErrClosed is returned by an Engine after Close.
var ErrClosed = errors.New("layout engine closed")

// Engine computes layouts. Construct it once with [New] and share it; it is
// safe for concurrent use.
type Engine struct {
	provider LibraryProvider
	cache    cache.Cache
	keyer    cache.Keyer
	logger   *log.Logger
	workers  int

	mu  sync.Mutex
	lib Library

	startOnce sync.Once
	closeOnce sync.Once
	jobs      chan job
	done      chan struct{}
	wg        sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers runs Graphviz on n background goroutines. Zero (the default)
// runs inline on the calling goroutine.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = max(n, 0) }
}

// WithCache caches results in c. A nil keyer uses the default key layout.
func WithCache(c cache.Cache, keyer cache.Keyer) Option {
	return func(e *Engine) {
		e.cache = c
		e.keyer = keyer
	}
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates an Engine loading Graphviz from provider on first use.
func New(provider LibraryProvider, opts ...Option) *Engine {
	e := &Engine{provider: provider, done: make(chan struct{})}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = cache.NewNullCache()
	}
	if e.keyer == nil {
		e.keyer = cache.NewDefaultKeyer()
	}
	if e.logger == nil {
		e.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return e
}

// Provider returns the name of the configured library provider.
func (e *Engine) Provider() string { return e.provider.Name() }

// Loaded reports whether the library has been loaded.
func (e *Engine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lib != nil
}

// Layout validates opts and g, then computes positions for every node and a
// route for every edge (in input edge order). g is not modified. Any library
// failure fails the call; no fallback positions are produced.
func (e *Engine) Layout(ctx context.Context, g graph.Graph, opts Options) (graph.LayoutResult, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return graph.LayoutResult{}, err
	}
	if err := g.Validate(); err != nil {
		return graph.LayoutResult{}, err
	}
	g = g.Clone()

	key, err := e.cacheKey(g, opts)
	if err != nil {
		return graph.LayoutResult{}, err
	}
	if !opts.Refresh {
		if r, ok := e.cached(ctx, key); ok {
			return r, nil
		}
	}

	start := time.Now()
	observability.Layout().OnLayoutStart(ctx, opts.Algorithm, len(g.Nodes))
	var result graph.LayoutResult
	if g.IsNested() {
		result, err = e.layoutNested(ctx, g, opts)
	} else {
		result, err = e.layoutFlat(ctx, g, opts, opts.Program())
	}
	observability.Layout().OnLayoutComplete(ctx, opts.Algorithm, time.Since(start), err)
	if err != nil {
		return graph.LayoutResult{}, err
	}
	e.logger.Debug("layout computed",
		"algorithm", opts.Algorithm,
		"nodes", len(result.Nodes),
		"edges", len(result.Edges),
		"duration", time.Since(start))

	e.store(ctx, key, result)
	return result, nil
}

// Run executes a Graphviz program directly and returns its JSON output. It
// backs the /api/graphviz endpoint that Remote providers talk to.
func (e *Engine) Run(ctx context.Context, dot []byte, program string) ([]byte, error) {
	if !IsProgram(program) {
		return nil, apperrors.New(apperrors.ErrCodeInvalidAlgorithm, "unknown graphviz program %q", program)
	}
	return e.run(ctx, dot, program)
}

// layoutFlat lays out g (ignoring parents) with one Graphviz program.
func (e *Engine) layoutFlat(ctx context.Context, g graph.Graph, opts Options, program string) (graph.LayoutResult, error) {
	if len(g.Nodes) == 0 {
		return graph.LayoutResult{Nodes: map[string]graph.Rect{}, Edges: []graph.RoutedEdge{}}, nil
	}
	out, err := e.run(ctx, ToDOT(g, opts, program), program)
	if err != nil {
		return graph.LayoutResult{}, err
	}
	return parseOutput(out, g)
}

// library returns the loaded library, loading it on first use. Load
// failures are reported but not remembered.
func (e *Engine) library(ctx context.Context) (Library, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lib != nil {
		return e.lib, nil
	}
	select {
	case <-e.done:
		return nil, ErrClosed
	default:
	}

	start := time.Now()
	lib, err := e.provider.Load(ctx)
	observability.Layout().OnLibraryLoad(ctx, e.provider.Name(), time.Since(start), err)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeLibraryLoad, err, "load %s layout library", e.provider.Name())
	}
	e.logger.Debug("layout library loaded", "provider", e.provider.Name(), "duration", time.Since(start))
	e.lib = lib
	return lib, nil
}

// =============================================================================
// Worker Pool
// =============================================================================

type job struct {
	ctx     context.Context
	lib     Library
	dot     []byte
	program string
	reply   chan jobResult
}

type jobResult struct {
	out []byte
	err error
}

func (e *Engine) run(ctx context.Context, dot []byte, program string) ([]byte, error) {
	select {
	case <-e.done:
		return nil, ErrClosed
	default:
	}
	lib, err := e.library(ctx)
	if err != nil {
		return nil, err
	}
	if e.workers == 0 {
		return lib.Layout(ctx, dot, program)
	}

	e.startOnce.Do(e.startWorkers)
	j := job{ctx: ctx, lib: lib, dot: bytes.Clone(dot), program: program, reply: make(chan jobResult, 1)}
	select {
	case e.jobs <- j:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.done:
		return nil, ErrClosed
	}
	select {
	case r := <-j.reply:
		return r.out, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) startWorkers() {
	e.jobs = make(chan job)
	for range e.workers {
		e.wg.Add(1)
		go e.worker()
	}
	e.logger.Debug("layout workers started", "count", e.workers)
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.done:
			return
		case j := <-e.jobs:
			if err := j.ctx.Err(); err != nil {
				j.reply <- jobResult{err: err}
				continue
			}
			out, err := j.lib.Layout(j.ctx, j.dot, j.program)
			j.reply <- jobResult{out: out, err: err}
		}
	}
}

// Close stops the workers and releases the library. Later layouts fail with
// ErrClosed.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.done)
		e.wg.Wait()
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.lib != nil {
			err = e.lib.Close()
		}
	})
	return err
}

// =============================================================================
// Caching
// =============================================================================

func (e *Engine) cacheKey(g graph.Graph, opts Options) (string, error) {
	hash, err := cache.HashJSON(g)
	if err != nil {
		return "", fmt.Errorf("hash graph: %w", err)
	}
	return e.keyer.LayoutKey(hash, cache.LayoutKeyOpts{
		Provider:        e.provider.Name(),
		Algorithm:       opts.Algorithm,
		NestedAlgorithm: opts.NestedAlgorithm,
		NodeSep:         opts.NodeSep,
		RankSep:         opts.RankSep,
		Direction:       opts.Direction,
		NodeWidth:       opts.NodeWidth,
		NodeHeight:      opts.NodeHeight,
		Padding:         opts.Padding,
	}), nil
}

func (e *Engine) cached(ctx context.Context, key string) (graph.LayoutResult, bool) {
	data, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Warn("layout cache read failed", "err", err)
		return graph.LayoutResult{}, false
	}
	if !ok {
		observability.Cache().OnCacheMiss(ctx, "layout")
		return graph.LayoutResult{}, false
	}
	var r graph.LayoutResult
	if err := json.Unmarshal(data, &r); err != nil {
		return graph.LayoutResult{}, false
	}
	observability.Cache().OnCacheHit(ctx, "layout")
	e.logger.Debug("layout cache hit")
	return r, true
}

func (e *Engine) store(ctx context.Context, key string, r graph.LayoutResult) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, key, data, cache.TTLLayout); err != nil {
		e.logger.Warn("layout cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "layout", len(data))
}
