package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every REST error response has the same shape:
//   {"error": "conflict", "message": "user already exists"}
// The /query endpoint wraps the same classification in its own envelope
// (see query.go).

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/auth-gateway/internal/apperror"
)

// maxBodyBytes caps request bodies. Auth payloads are tiny.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by the REST endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// errorClass is how one failure kind is presented to clients.
type errorClass struct {
	status  int    // REST status code
	errType string // REST "error" field
	code    string // /query extensions.code
}

var (
	classValidation   = errorClass{http.StatusBadRequest, "validation_error", "BAD_USER_INPUT"}
	classUnauthorized = errorClass{http.StatusUnauthorized, "unauthorized", "UNAUTHENTICATED"}
	classCredentials  = errorClass{http.StatusUnauthorized, "invalid_credentials", "INVALID_CREDENTIALS"}
	classNotFound     = errorClass{http.StatusNotFound, "not_found", "USER_NOT_FOUND"}
	classExists       = errorClass{http.StatusConflict, "conflict", "USER_ALREADY_EXISTS"}
	classInternal     = errorClass{http.StatusInternalServerError, "internal_error", "INTERNAL_SERVER_ERROR"}
)

// internalMessage is all a client ever learns about an unexpected failure.
const internalMessage = "An internal error occurred"

// classify maps a domain error to its presentation and human-readable message.
//
// errors.As finds the *AppError anywhere in the wrap chain; errors.Is then
// picks the sentinel. Anything that is not an AppError is internal and its
// message is replaced: raw errors may contain SQL or file paths.
func classify(err error) (errorClass, string) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return classInternal, internalMessage
	}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		return classValidation, appErr.Message
	case errors.Is(err, apperror.ErrUnauthenticated):
		return classUnauthorized, appErr.Message
	case errors.Is(err, apperror.ErrInvalidCredentials):
		return classCredentials, appErr.Message
	case errors.Is(err, apperror.ErrNotFound):
		return classNotFound, appErr.Message
	case errors.Is(err, apperror.ErrUserAlreadyExists), errors.Is(err, apperror.ErrDuplicateEmail):
		return classExists, appErr.Message
	}
	return classInternal, internalMessage
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status must be set BEFORE the body is written; once Encode
// writes, later header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the REST status and body.
func writeError(w http.ResponseWriter, err error) {
	class, msg := classify(err)
	writeJSON(w, class.status, ErrorResponse{
		Error:   class.errType,
		Message: msg,
	})
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	return nil
}
