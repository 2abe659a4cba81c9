package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"

	apperrors "github.com/matzehuels/boardsync/pkg/errors"
	"github.com/matzehuels/boardsync/pkg/idempotency"
)

type ctxKey int

const requestIDKey ctxKey = 0

// requestIDHeader carries the request id in both directions.
const requestIDHeader = "X-Request-Id"

// requestID tags every request with the client's X-Request-Id or a new UUID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// logRequests writes one line per request with status, size and duration.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		logf := s.logger.Info
		switch {
		case m.Code >= 500:
			logf = s.logger.Error
		case r.URL.Path == "/healthz":
			logf = s.logger.Debug
		}
		logf("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", m.Code,
			"bytes", m.Written,
			"duration", m.Duration,
			"id", requestIDFrom(r.Context()))
	})
}

// limitBody caps request bodies.
func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Server.MaxBodyBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// idempotencyHeader is the header clients set on retried mutations.
const idempotencyHeader = "Idempotency-Key"

// idempotent replays the stored response of a repeated Idempotency-Key.
// Responses with status 5xx are not stored so the client can retry them.
// Keys are scoped to the method and path of the request.
func (s *Server) idempotent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(idempotencyHeader)
		if key == "" || r.Method == http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		if len(key) > 255 {
			writeError(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "Idempotency-Key longer than 255 bytes"))
			return
		}
		scoped := r.Method + " " + r.URL.Path + " " + key

		rec, err := s.idem.Begin(r.Context(), scoped)
		switch {
		case errors.Is(err, idempotency.ErrInProgress):
			writeError(w, r, apperrors.Wrap(apperrors.ErrCodeConflict, err, "duplicate request"))
			return
		case err != nil:
			writeError(w, r, err)
			return
		case rec != nil:
			s.logger.Debug("replaying idempotent response", "key", key, "status", rec.Status)
			rec.Write(w)
			return
		}

		status := http.StatusOK
		var body bytes.Buffer
		ww := httpsnoop.Wrap(w, httpsnoop.Hooks{
			WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
				return func(code int) {
					status = code
					next(code)
				}
			},
			Write: func(next httpsnoop.WriteFunc) httpsnoop.WriteFunc {
				return func(b []byte) (int, error) {
					body.Write(b)
					return next(b)
				}
			},
		})

		completed := false
		defer func() {
			if !completed {
				_ = s.idem.Release(context.WithoutCancel(r.Context()), scoped)
			}
		}()
		next.ServeHTTP(ww, r)

		if status >= 500 {
			return
		}
		err = s.idem.Complete(context.WithoutCancel(r.Context()), scoped, &idempotency.Record{
			Status:      status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        body.Bytes(),
		})
		if err != nil {
			s.logger.Warn("store idempotent response", "key", key, "err", err)
			return
		}
		completed = true
	})
}
