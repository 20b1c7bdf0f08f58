package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/auth-gateway/internal/model"
	"github.com/sakif/auth-gateway/internal/service"
)

// Authenticator is the business logic the handlers need.
// *service.AuthService implements it.
type Authenticator interface {
	Signup(ctx context.Context, in service.SignupInput) (*service.AuthPayload, error)
	Login(ctx context.Context, in service.LoginInput) (*service.AuthPayload, error)
	GetUser(ctx context.Context) (*model.User, error)
}

// AuthHandler exposes signup, login and getUser over HTTP.
//
// ROUTES:
//   - POST /query        → single operation endpoint (query.go)
//   - POST /api/signup   → HandleSignup
//   - POST /api/login    → HandleLogin
//   - GET  /api/me       → HandleMe
//
// Identity is attached by the auth.Identify middleware before any of these
// run; the handlers never read tokens themselves.
type AuthHandler struct {
	auth   Authenticator
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(a Authenticator, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: a, logger: logger}
}

// HandleSignup registers a user.
//
// HTTP: POST /api/signup {"username":"...","email":"...","password":"..."}
// 201 → {"token":"...","user":{...}}
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var in service.SignupInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.auth.Signup(r.Context(), in)
	if err != nil {
		h.fail(w, r, "signup", err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// HandleLogin exchanges email + password for a token.
//
// HTTP: POST /api/login {"email":"...","password":"..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.auth.Login(r.Context(), in)
	if err != nil {
		h.fail(w, r, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// HandleMe returns the user behind the request's token.
//
// HTTP: GET /api/me
// Auth: required; 401 when the request is anonymous.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.GetUser(r.Context())
	if err != nil {
		h.fail(w, r, "getUser", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// fail logs internal errors with their detail and writes the mapped response.
func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logFailure(r, op, err)
	writeError(w, err)
}

func (h *AuthHandler) logFailure(r *http.Request, op string, err error) {
	if class, _ := classify(err); class == classInternal {
		h.logger.Error("operation failed",
			slog.String("operation", op),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}
