package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "github.com/matzehuels/boardsync/pkg/errors"
)

// loginPath is where clients start the Miro OAuth flow.
const loginPath = "/auth/login"

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      apperrors.Code `json:"code"`
	Message   string         `json:"message"`
	Login     string         `json:"login,omitempty"` // set on 401
	RequestID string         `json:"request_id,omitempty"`
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status and a JSON error body. Unauthorized
// responses point the client at the login route.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	code := apperrors.GetCode(err)
	if code == "" {
		code = apperrors.ErrCodeInternal
	}
	msg := apperrors.UserMessage(err)
	if status == http.StatusInternalServerError && apperrors.GetCode(err) == "" {
		msg = "internal error"
	}

	detail := errorDetail{Code: code, Message: msg, RequestID: requestIDFrom(r.Context())}
	if status == http.StatusUnauthorized {
		detail.Login = loginPath
		w.Header().Set("WWW-Authenticate", `Bearer realm="miro", login="`+loginPath+`"`)
	}
	writeJSON(w, status, errorBody{Error: detail})
}

// decodeJSON reads a JSON body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "request body too large")
		}
		if errors.Is(err, io.EOF) {
			return apperrors.New(apperrors.ErrCodeInvalidInput, "request body is empty")
		}
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid JSON body")
	}
	return nil
}

// readBody reads the whole body, mapping an oversized body to INVALID_INPUT.
func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(r.Body)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "request body too large")
	}
	return data, err
}
