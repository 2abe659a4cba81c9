package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"

	apperrors "github.com/matzehuels/boardsync/pkg/errors"
	"github.com/matzehuels/boardsync/pkg/httputil"
)

// FileFetcher reads workbooks from the local filesystem. With Dir set, ids
// are relative paths confined to Dir; otherwise ids are used as paths.
type FileFetcher struct {
	Dir string
}

// FetchFile implements Fetcher.
func (f FileFetcher) FetchFile(ctx context.Context, id string) ([]byte, error) {
	path := id
	if f.Dir != "" {
		if err := apperrors.ValidatePath(id); err != nil {
			return nil, err
		}
		path = filepath.Join(f.Dir, id)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.Wrap(apperrors.ErrCodeNotFound, err, "workbook %s", id)
	}
	return data, err
}

// DefaultGraphURL is the Microsoft Graph API root.
const DefaultGraphURL = "https://graph.microsoft.com/v1.0"

// maxWorkbookSize caps downloaded workbooks.
const maxWorkbookSize = 64 << 20

// HTTPFetcher downloads drive items from Microsoft Graph
// (GET /me/drive/items/{id}/content). Transient failures are retried with
// [httputil.Retry].
type HTTPFetcher struct {
	client    *http.Client
	baseURL   string
	attempts  int
	baseDelay time.Duration
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithBaseURL overrides the Graph API root, mainly for tests.
func WithBaseURL(u string) FetcherOption {
	return func(f *HTTPFetcher) { f.baseURL = strings.TrimRight(u, "/") }
}

// WithRetry overrides the retry policy.
func WithRetry(attempts int, baseDelay time.Duration) FetcherOption {
	return func(f *HTTPFetcher) { f.attempts, f.baseDelay = attempts, baseDelay }
}

// NewHTTPFetcher creates a fetcher that authenticates with tokens from ts.
// A nil ts sends unauthenticated requests.
func NewHTTPFetcher(ts oauth2.TokenSource, opts ...FetcherOption) *HTTPFetcher {
	client := &http.Client{Timeout: 60 * time.Second}
	if ts != nil {
		client = oauth2.NewClient(context.Background(), ts)
		client.Timeout = 60 * time.Second
	}
	f := &HTTPFetcher{
		client:    client,
		baseURL:   DefaultGraphURL,
		attempts:  httputil.DefaultAttempts,
		baseDelay: httputil.DefaultBaseDelay,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchFile implements Fetcher.
func (f *HTTPFetcher) FetchFile(ctx context.Context, id string) ([]byte, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "drive item id is empty")
	}
	endpoint := fmt.Sprintf("%s/me/drive/items/%s/content", f.baseURL, url.PathEscape(id))

	data, err := httputil.Retry(ctx, f.attempts, f.baseDelay, func(ctx context.Context) ([]byte, error) {
		return f.get(ctx, endpoint)
	})
	if err == nil {
		return data, nil
	}
	switch status, _ := httputil.Status(err); status {
	case http.StatusUnauthorized:
		return nil, apperrors.Wrap(apperrors.ErrCodeUnauthorized, err, "fetch drive item %s", id)
	case http.StatusForbidden:
		return nil, apperrors.Wrap(apperrors.ErrCodeForbidden, err, "fetch drive item %s", id)
	case http.StatusNotFound:
		return nil, apperrors.Wrap(apperrors.ErrCodeNotFound, err, "drive item %s", id)
	case http.StatusTooManyRequests:
		return nil, apperrors.Wrap(apperrors.ErrCodeRateLimited, err, "fetch drive item %s", id)
	}
	return nil, apperrors.Wrap(apperrors.ErrCodeNetwork, err, "fetch drive item %s", id)
}

func (f *HTTPFetcher) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, httputil.NewStatusError(resp, "", strings.TrimSpace(string(body)))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxWorkbookSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxWorkbookSize {
		return nil, apperrors.New(apperrors.ErrCodeInvalidWorkbook, "workbook exceeds %d MiB", maxWorkbookSize>>20)
	}
	return data, nil
}
