package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"golang.org/x/oauth2"

	apperrors "github.com/matzehuels/boardsync/pkg/errors"
)

func testTokenStore(t *testing.T, s TokenStore) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) err = %v, want ErrNotFound", err)
	}

	tok := &Token{Key: "user-1", AccessToken: "at", RefreshToken: "rt", UserID: "u1", UpdatedAt: time.Now().UTC().Truncate(time.Second)}
	if err := s.Set(ctx, tok); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.AccessToken != "at" || got.RefreshToken != "rt" || got.UserID != "u1" {
		t.Errorf("Get = %+v", got)
	}

	tok.AccessToken = "at2"
	s.Set(ctx, tok)
	if got, _ := s.Get(ctx, "user-1"); got.AccessToken != "at2" {
		t.Errorf("overwrite not stored: %+v", got)
	}

	if err := s.Delete(ctx, "user-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete err = %v", err)
	}
	if err := s.Delete(ctx, "user-1"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestMemoryTokenStore(t *testing.T) {
	testTokenStore(t, NewMemoryTokenStore())
}

func TestFileTokenStore(t *testing.T) {
	s, err := NewFileTokenStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	testTokenStore(t, s)

	if err := s.Set(context.Background(), &Token{Key: "../evil"}); !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("Set(../evil) err = %v", err)
	}

	s.Set(context.Background(), &Token{Key: "default", AccessToken: "x"})
	info, err := os.Stat(s.Path("default"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %o, want 600", perm)
	}
}

func TestMemoryStateStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStateStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	state, err := s.Generate(ctx, time.Minute)
	if err != nil || state == "" {
		t.Fatalf("Generate = %q, %v", state, err)
	}
	if err := s.Validate(ctx, state); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if err := s.Validate(ctx, state); !errors.Is(err, ErrInvalidState) {
		t.Errorf("reused state err = %v", err)
	}

	expiring, _ := s.Generate(ctx, time.Minute)
	now = now.Add(2 * time.Minute)
	if err := s.Validate(ctx, expiring); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expired state err = %v", err)
	}
	if err := s.Validate(ctx, "unknown"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("unknown state err = %v", err)
	}
}

func TestNewToken(t *testing.T) {
	raw := (&oauth2.Token{AccessToken: "at", RefreshToken: "rt", TokenType: "bearer"}).
		WithExtra(map[string]any{"user_id": "u1", "team_id": "t1"})
	tok := NewToken("k", raw)
	if tok.UserID != "u1" || tok.TeamID != "t1" || tok.Key != "k" {
		t.Errorf("NewToken = %+v", tok)
	}
	if back := tok.OAuth2(); back.AccessToken != "at" || back.RefreshToken != "rt" {
		t.Errorf("OAuth2 = %+v", back)
	}
}

func TestTokenExpired(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	tests := []struct {
		name string
		tok  Token
		want bool
	}{
		{"no expiry", Token{AccessToken: "a"}, false},
		{"expired without refresh", Token{AccessToken: "a", Expiry: past}, true},
		{"expired with refresh", Token{AccessToken: "a", RefreshToken: "r", Expiry: past}, false},
		{"valid", Token{AccessToken: "a", Expiry: time.Now().Add(time.Hour)}, false},
	}
	for _, tt := range tests {
		if got := tt.tok.Expired(); got != tt.want {
			t.Errorf("%s: Expired() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.Form.Get("client_id") != "cid" || r.Form.Get("client_secret") != "secret" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid_client"})
			return
		}
		access := "at-code"
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			if r.Form.Get("code") != "good" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
				return
			}
		case "refresh_token":
			access = "at-refreshed"
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  access,
			"refresh_token": "rt",
			"token_type":    "bearer",
			"expires_in":    3600,
			"user_id":       "u1",
			"team_id":       "t1",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testOAuth(srv *httptest.Server) *OAuth {
	return NewOAuth(Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/auth/callback",
		Endpoint: &oauth2.Endpoint{
			AuthURL:   srv.URL + "/oauth/authorize",
			TokenURL:  srv.URL + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	})
}

func TestAuthCodeURL(t *testing.T) {
	o := NewOAuth(Config{ClientID: "cid", RedirectURL: "http://localhost/cb"})
	u, err := url.Parse(o.AuthCodeURL("s1"))
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if u.Host != "miro.com" || q.Get("state") != "s1" || q.Get("client_id") != "cid" || q.Get("response_type") != "code" {
		t.Errorf("url = %s", u)
	}
	if q.Get("scope") != "boards:read boards:write" {
		t.Errorf("scope = %q", q.Get("scope"))
	}
	if o.Configured() {
		t.Error("Configured() true without a secret")
	}
}

func TestExchange(t *testing.T) {
	o := testOAuth(newTokenServer(t))
	ctx := context.Background()

	tok, err := o.Exchange(ctx, "good")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if tok.AccessToken != "at-code" || NewToken("k", tok).TeamID != "t1" {
		t.Errorf("token = %+v", tok)
	}

	if _, err := o.Exchange(ctx, "bad"); !apperrors.Is(err, apperrors.ErrCodeUnauthorized) {
		t.Errorf("bad code err = %v", err)
	}
	if _, err := o.Exchange(ctx, ""); !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("empty code err = %v", err)
	}
}

func TestTokenSourcePersistsRefresh(t *testing.T) {
	o := testOAuth(newTokenServer(t))
	ctx := context.Background()
	store := NewMemoryTokenStore()

	expired := &oauth2.Token{AccessToken: "old", RefreshToken: "rt", Expiry: time.Now().Add(-time.Minute)}
	ts := o.TokenSource(ctx, store, "user-1", expired)

	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok.AccessToken != "at-refreshed" {
		t.Errorf("access token = %q", tok.AccessToken)
	}
	stored, err := store.Get(ctx, "user-1")
	if err != nil || stored.AccessToken != "at-refreshed" {
		t.Errorf("stored = %+v, %v", stored, err)
	}
}

func TestStaticTokenSource(t *testing.T) {
	tok, err := StaticTokenSource("dev-token").Token()
	if err != nil || tok.AccessToken != "dev-token" {
		t.Errorf("Token = %+v, %v", tok, err)
	}
}
