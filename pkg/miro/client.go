package miro

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	apperrors "github.com/matzehuels/boardsync/pkg/errors"
	"github.com/matzehuels/boardsync/pkg/httputil"
	"github.com/matzehuels/boardsync/pkg/observability"
)

// DefaultBaseURL is the Miro REST API v2 root.
const DefaultBaseURL = "https://api.miro.com/v2"

const (
	httpTimeout = 30 * time.Second
	pageLimit   = 50
	maxBody     = 8 << 20
)

// Client talks to the Miro REST API. It is safe for concurrent use.
type Client struct {
	http      *http.Client
	baseURL   string
	limiter   *httputil.Limiter
	attempts  int
	baseDelay time.Duration
	logger    *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the HTTP client. It must add authentication
// itself.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLimiter shares a rate limiter between clients.
func WithLimiter(l *httputil.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetry sets the retry policy.
func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.attempts = attempts
		c.baseDelay = baseDelay
	}
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a Client authenticating with ts. A nil ts sends
// unauthenticated requests, which is only useful against test servers.
func NewClient(ts oauth2.TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		attempts:  httputil.DefaultAttempts,
		baseDelay: httputil.DefaultBaseDelay,
	}
	if ts != nil {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: httpTimeout})
		c.http = oauth2.NewClient(ctx, ts)
	} else {
		c.http = &http.Client{Timeout: httpTimeout}
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return c
}

// single returns a copy of c that sends every call a single time. The copy
// shares the HTTP client and rate limiter.
func (c *Client) single() *Client {
	cp := *c
	cp.attempts = 1
	return &cp
}

// Limiter returns the client's rate limiter, which may be nil.
func (c *Client) Limiter() *httputil.Limiter { return c.limiter }

// do sends one API call with retries and decodes the response into out
// when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
	}
	return httputil.RetryDo(ctx, c.attempts, c.baseDelay, func(ctx context.Context) error {
		return c.once(ctx, method, path, query, payload, out)
	})
}

func (c *Client) once(ctx context.Context, method, path string, query url.Values, payload []byte, out any) error {
	release, err := c.limiter.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "miro url")
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, method, u.Host, u.Path)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, u.Host, u.Path, err)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperrors.Wrap(apperrors.ErrCodeNetwork, err, "miro %s %s", method, path)
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, method, u.Host, u.Path, resp.StatusCode, time.Since(start))
	c.logger.Debug("miro request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode >= 300 {
		return statusError(resp, method, path)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeNetwork, err, "decode miro %s response", path)
	}
	return nil
}

// statusError turns a non-2xx response into a coded error that still
// carries the HTTP status for retry classification.
func statusError(resp *http.Response, method, path string) error {
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(data, &payload)

	se := httputil.NewStatusError(resp, payload.Code, payload.Message)
	return apperrors.Wrap(apperrors.CodeForStatus(resp.StatusCode), se, "miro %s %s", method, path)
}
