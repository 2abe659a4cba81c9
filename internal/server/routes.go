package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(s.limitBody)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.idempotent)

		r.Get("/limits", s.handleLimits)

		r.Route("/boards/{boardId}", func(r chi.Router) {
			r.Get("/widgets", s.handleWidgets)
			r.Post("/sync", s.handleSync)
			r.Delete("/sync", s.handleResetSync)
			r.Post("/arrange", s.handleArrange)
		})

		r.Get("/cache/{boardId}", s.handleCacheGet)
		r.Put("/cache/{boardId}", s.handleCachePut)

		r.Post("/layout", s.handleLayout)
		r.Post("/graphviz", s.handleGraphviz)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", s.handleLogin)
		r.Get("/callback", s.handleCallback)
		r.Get("/status", s.handleAuthStatus)
	})

	r.With(s.idempotent).Post("/webhooks/miro", s.handleWebhook)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errNotFound(r))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: errorDetail{
			Code:    "METHOD_NOT_ALLOWED",
			Message: r.Method + " not allowed on " + r.URL.Path,
		}})
	})
	return r
}
