package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// contextKey is an unexported type used for context keys in this package.
// Only this package can create a key of this type, so no other package can
// read or shadow the identity stored in the context.
type contextKey string

const identityKey contextKey = "identity"

// TokenCookie is the cookie consulted when no Authorization header is sent.
const TokenCookie = "token"

// Identify is a middleware that attaches the caller's Identity to the request
// context when a valid token is presented.
//
// It never rejects a request. A missing, malformed or expired token leaves
// the request anonymous; operations that need a user turn that into
// Unauthenticated themselves.
//
// TOKEN LOCATION (first match wins):
//  1. Authorization: Bearer <jwt>   (a bare "<jwt>" value is also accepted)
//  2. Cookie: token=<jwt>
func Identify(tokens *TokenService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				logger.Debug("ignoring invalid token",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), claims.Identity())))
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the authenticated identity from ctx.
//
// Returns (Identity{}, false) if the request is anonymous.
//
//	id, ok := auth.IdentityFromContext(r.Context())
//	if !ok {
//	    // anonymous user
//	}
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// extractToken returns the raw token from the request, or "" if none was sent.
func extractToken(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		scheme, rest, found := strings.Cut(h, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(rest)
		}
		if !found {
			return h
		}
		// Some other scheme (Basic, ...): not ours.
		return ""
	}

	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}
