package auth

import (
	"context"
	"sync"

	"golang.org/x/oauth2"

	apperrors "github.com/matzehuels/boardsync/pkg/errors"
)

// Endpoint is Miro's OAuth2 endpoint.
var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://miro.com/oauth/authorize",
	TokenURL:  "https://api.miro.com/v1/oauth/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// DefaultScopes are requested when Config.Scopes is empty.
var DefaultScopes = []string{"boards:read", "boards:write"}

// Config holds the Miro app credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// Endpoint overrides the Miro endpoint, for tests.
	Endpoint *oauth2.Endpoint
}

// OAuth runs the authorization code flow against Miro.
type OAuth struct {
	config oauth2.Config
}

// NewOAuth creates the flow for cfg.
func NewOAuth(cfg Config) *OAuth {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	ep := Endpoint
	if cfg.Endpoint != nil {
		ep = *cfg.Endpoint
	}
	return &OAuth{config: oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       scopes,
		Endpoint:     ep,
	}}
}

// Configured reports whether client credentials are present.
func (o *OAuth) Configured() bool {
	return o.config.ClientID != "" && o.config.ClientSecret != ""
}

// AuthCodeURL returns the URL the user is sent to.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token.
func (o *OAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "missing authorization code")
	}
	tok, err := o.config.Exchange(ctx, code)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeUnauthorized, err, "exchange authorization code")
	}
	return tok, nil
}

// TokenSource returns a source that refreshes tok when it expires and
// writes every new token back to store under key.
func (o *OAuth) TokenSource(ctx context.Context, store TokenStore, key string, tok *oauth2.Token) oauth2.TokenSource {
	return &persistingSource{
		ctx:   ctx,
		base:  o.config.TokenSource(ctx, tok),
		store: store,
		key:   key,
		last:  tok.AccessToken,
	}
}

// StaticTokenSource serves a fixed access token, such as a Miro developer
// token from the environment.
func StaticTokenSource(accessToken string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
}

type persistingSource struct {
	ctx   context.Context
	base  oauth2.TokenSource
	store TokenStore
	key   string

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeUnauthorized, err, "refresh token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := s.store.Set(s.ctx, NewToken(s.key, tok)); err != nil {
			return nil, err
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}
