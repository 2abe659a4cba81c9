// Package auth provides the Miro OAuth2 flow, token storage and OAuth state
// tokens.
//
// Token storage backends:
//   - [MemoryTokenStore]: in-process, for tests and single-instance servers
//   - [FileTokenStore]: JSON files, for the CLI
//   - [MongoTokenStore]: MongoDB, for the backend
//
// State tokens protect the authorization code flow against CSRF. They are
// single use and short lived:
//   - [MemoryStateStore]: in-process
//   - [RedisStateStore]: shared between server instances
//
// # Usage
//
//	flow := auth.NewOAuth(auth.Config{
//	    ClientID:     cfg.Miro.ClientID,
//	    ClientSecret: cfg.Miro.ClientSecret,
//	    RedirectURL:  "http://localhost:8080/auth/callback",
//	})
//	state, _ := states.Generate(ctx, auth.DefaultStateTTL)
//	http.Redirect(w, r, flow.AuthCodeURL(state), http.StatusFound)
//
//	// in the callback
//	tok, err := flow.Exchange(ctx, code)
//	store.Set(ctx, auth.NewToken(userKey, tok))
//	ts := flow.TokenSource(ctx, store, userKey, tok) // refreshes and persists
package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when no token is stored under a key.
	ErrNotFound = errors.New("token not found")

	// ErrInvalidState is returned for unknown, expired or reused state tokens.
	ErrInvalidState = errors.New("invalid or expired state token")
)

// DefaultStateTTL is how long an OAuth state token stays valid.
const DefaultStateTTL = 10 * time.Minute

// Token is a stored Miro access token.
type Token struct {
	Key          string    `json:"key" bson:"_id"`
	AccessToken  string    `json:"access_token" bson:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty" bson:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty" bson:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitzero" bson:"expiry,omitempty"`
	UserID       string    `json:"user_id,omitempty" bson:"user_id,omitempty"`
	TeamID       string    `json:"team_id,omitempty" bson:"team_id,omitempty"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// NewToken wraps an OAuth2 token for storage under key. Miro returns the
// user and team ids as extra fields of the token response.
func NewToken(key string, t *oauth2.Token) *Token {
	tok := &Token{
		Key:          key,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
		UpdatedAt:    time.Now().UTC(),
	}
	if v, ok := t.Extra("user_id").(string); ok {
		tok.UserID = v
	}
	if v, ok := t.Extra("team_id").(string); ok {
		tok.TeamID = v
	}
	return tok
}

// OAuth2 converts the stored token back for use with an oauth2.Config.
func (t *Token) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}
}

// Expired reports whether the access token has expired and cannot be
// refreshed.
func (t *Token) Expired() bool {
	return t.RefreshToken == "" && !t.Expiry.IsZero() && time.Now().After(t.Expiry)
}

// TokenStore persists tokens by key.
type TokenStore interface {
	// Get returns ErrNotFound when nothing is stored under key.
	Get(ctx context.Context, key string) (*Token, error)
	Set(ctx context.Context, tok *Token) error
	Delete(ctx context.Context, key string) error
}

// StateStore manages single-use OAuth state tokens.
type StateStore interface {
	// Generate creates a state token valid for ttl.
	Generate(ctx context.Context, ttl time.Duration) (string, error)

	// Validate consumes state. It returns ErrInvalidState if the token is
	// unknown, expired or was already used.
	Validate(ctx context.Context, state string) error
}
