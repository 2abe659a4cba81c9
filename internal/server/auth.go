package server

import (
	"net/http"
	"time"

	"github.com/matzehuels/boardsync/pkg/auth"
	apperrors "github.com/matzehuels/boardsync/pkg/errors"
)

// handleLogin redirects to Miro's consent page with a fresh state token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.oauth.Configured() {
		writeError(w, r, apperrors.New(apperrors.ErrCodeUnsupported,
			"OAuth is not configured; set MIRO_CLIENT_ID and MIRO_CLIENT_SECRET"))
		return
	}
	state, err := s.states.Generate(r.Context(), auth.DefaultStateTTL)
	if err != nil {
		writeError(w, r, apperrors.Wrap(apperrors.ErrCodeInternal, err, "generate state"))
		return
	}
	http.Redirect(w, r, s.oauth.AuthCodeURL(state), http.StatusFound)
}

// handleCallback completes the code flow and stores the token.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		writeError(w, r, apperrors.New(apperrors.ErrCodeUnauthorized, "authorization denied: %s", e))
		return
	}
	if err := s.states.Validate(r.Context(), q.Get("state")); err != nil {
		writeError(w, r, apperrors.Wrap(apperrors.ErrCodeUnauthorized, err, "invalid OAuth state"))
		return
	}
	tok, err := s.oauth.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	stored := auth.NewToken(tokenKey, tok)
	stored.UpdatedAt = time.Now().UTC()
	if err := s.tokens.Set(r.Context(), stored); err != nil {
		writeError(w, r, apperrors.Wrap(apperrors.ErrCodeInternal, err, "store token"))
		return
	}
	s.boards.reset()
	s.logger.Info("signed in to Miro", "user", stored.UserID, "team", stored.TeamID)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "signed_in",
		"user_id": stored.UserID,
		"team_id": stored.TeamID,
	})
}

// handleAuthStatus reports the token's user and scopes.
func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	backend, err := s.connect(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	info, err := backend.TokenInfo(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
