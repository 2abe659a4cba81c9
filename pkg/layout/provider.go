package layout

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-graphviz"

	apperrors "github.com/matzehuels/boardsync/pkg/errors"
	"github.com/matzehuels/boardsync/pkg/httputil"
)

// Library runs a Graphviz program over DOT source and returns the -Tjson
// output.
type Library interface {
	Layout(ctx context.Context, dot []byte, program string) ([]byte, error)
	Close() error
}

// LibraryProvider loads a Library. The Engine calls Load at most once per
// successful load.
type LibraryProvider interface {
	Name() string
	Load(ctx context.Context) (Library, error)
}

// =============================================================================
// Bundled - In-Process Graphviz
// =============================================================================

// Bundled runs Graphviz in-process through go-graphviz.
type Bundled struct{}

// Name implements LibraryProvider.
func (Bundled) Name() string { return "bundled" }

// Load implements LibraryProvider.
func (Bundled) Load(ctx context.Context) (Library, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	return &bundledLibrary{gv: gv}, nil
}

// bundledLibrary serialises access to one Graphviz instance; the instance
// keeps per-render state and is not safe for concurrent renders.
type bundledLibrary struct {
	mu sync.Mutex
	gv *graphviz.Graphviz
}

func (l *bundledLibrary) Layout(ctx context.Context, dot []byte, program string) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	g, err := graphviz.ParseBytes(dot)
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	l.gv.SetLayout(graphviz.Layout(program))
	var buf bytes.Buffer
	if err := l.gv.Render(ctx, g, graphviz.Format("json"), &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", program, err)
	}
	return buf.Bytes(), nil
}

func (l *bundledLibrary) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gv.Close()
}

// =============================================================================
// Remote - HTTP Graphviz Service
// =============================================================================

// Remote posts DOT to an HTTP endpoint and reads Graphviz JSON back:
//
//	POST {URL}?program=dot
//	Content-Type: text/vnd.graphviz
//
// `boardsync serve` exposes a compatible endpoint at /api/graphviz.
// Transient failures (429, 5xx) are retried.
type Remote struct {
	URL       string
	Client    *http.Client
	Attempts  int
	BaseDelay time.Duration
}

// NewRemote returns a Remote provider with the default retry policy.
func NewRemote(endpoint string) *Remote {
	return &Remote{
		URL:       endpoint,
		Client:    &http.Client{Timeout: 60 * time.Second},
		Attempts:  httputil.DefaultAttempts,
		BaseDelay: httputil.DefaultBaseDelay,
	}
}

// Name implements LibraryProvider.
func (r *Remote) Name() string { return "remote" }

// Load validates the endpoint. No request is made until the first layout.
func (r *Remote) Load(ctx context.Context) (Library, error) {
	if err := apperrors.ValidateURL(r.URL); err != nil {
		return nil, err
	}
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &remoteLibrary{endpoint: r.URL, client: client, attempts: r.Attempts, baseDelay: r.BaseDelay}, nil
}

type remoteLibrary struct {
	endpoint  string
	client    *http.Client
	attempts  int
	baseDelay time.Duration
}

func (l *remoteLibrary) Layout(ctx context.Context, dot []byte, program string) ([]byte, error) {
	u, err := url.Parse(l.endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("program", program)
	u.RawQuery = q.Encode()

	return httputil.Retry(ctx, l.attempts, l.baseDelay, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(dot))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "text/vnd.graphviz")
		req.Header.Set("Accept", "application/json")

		resp, err := l.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, httputil.NewStatusError(resp, "", strings.TrimSpace(string(body)))
		}
		return body, nil
	})
}

func (l *remoteLibrary) Close() error { return nil }
