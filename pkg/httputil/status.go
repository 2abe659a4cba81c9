package httputil

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// StatusCoder is implemented by errors that carry an HTTP status code.
// Host SDK errors, Miro REST errors and [StatusError] all implement it.
type StatusCoder interface {
	HTTPStatus() int
}

// StatusError is an error with an HTTP status, optional API code and the
// server's Retry-After hint.
type StatusError struct {
	Status     int
	Code       string
	Message    string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("status %d (%s): %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("status %d: %s", e.Status, msg)
}

// HTTPStatus returns the status code.
func (e *StatusError) HTTPStatus() int { return e.Status }

// NewStatusError builds a StatusError from a response. The body message is
// supplied by the caller because each API shapes its error payload differently.
func NewStatusError(resp *http.Response, code, message string) *StatusError {
	e := &StatusError{Status: resp.StatusCode, Code: code, Message: message}
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil {
			e.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return e
}

// Status extracts the HTTP status carried by err, if any.
func Status(err error) (int, bool) {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus(), true
	}
	return 0, false
}

// IsRetryable reports whether err carries status 429 or any 5xx.
func IsRetryable(err error) bool {
	status, ok := Status(err)
	if !ok {
		return false
	}
	return status == http.StatusTooManyRequests || status >= 500 && status <= 599
}

// IsUnauthorized reports whether err carries status 401. Callers should start
// a re-authentication flow instead of retrying.
func IsUnauthorized(err error) bool {
	status, ok := Status(err)
	return ok && status == http.StatusUnauthorized
}
