package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runIdentify sends req through Identify and returns what the next handler saw.
func runIdentify(t *testing.T, ts *TokenService, req *http.Request) (Identity, bool, int) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var (
		got    Identity
		gotOK  bool
		called bool
	)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		got, gotOK = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	Identify(ts, logger)(next).ServeHTTP(rr, req)

	require.True(t, called, "Identify must always call the next handler")
	return got, gotOK, rr.Code
}

func TestIdentify(t *testing.T) {
	ts := newTestTokenService(t)
	valid, err := ts.Issue(alice, time.Hour)
	require.NoError(t, err)

	other, _ := NewTokenService("another-secret-32-chars-long!!!!")
	foreign, _ := other.Issue(alice, time.Hour)

	tests := []struct {
		name    string
		prepare func(r *http.Request)
		wantOK  bool
	}{
		{
			name:    "no credentials",
			prepare: func(*http.Request) {},
			wantOK:  false,
		},
		{
			name:    "bearer header",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) },
			wantOK:  true,
		},
		{
			name:    "lower-case scheme",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "bearer "+valid) },
			wantOK:  true,
		},
		{
			name:    "bare token header",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", valid) },
			wantOK:  true,
		},
		{
			name:    "cookie fallback",
			prepare: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookie, Value: valid}) },
			wantOK:  true,
		},
		{
			name:    "garbage token stays anonymous",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer not-a-jwt") },
			wantOK:  false,
		},
		{
			name:    "token signed with another secret stays anonymous",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+foreign) },
			wantOK:  false,
		},
		{
			name:    "basic auth is ignored",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "Basic dXNlcjpwYXNz") },
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/query", nil)
			tt.prepare(req)

			id, ok, code := runIdentify(t, ts, req)

			assert.Equal(t, http.StatusNoContent, code, "Identify must never reject a request")
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, alice, id)
			}
		})
	}
}

func TestIdentify_ExpiredTokenStaysAnonymous(t *testing.T) {
	ts := newTestTokenService(t)
	ts.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := ts.Issue(alice, time.Hour)
	require.NoError(t, err)
	ts.now = time.Now

	req := httptest.NewRequest(http.MethodPost, "/query", nil)
	req.Header.Set("Authorization", "Bearer "+expired)

	_, ok, code := runIdentify(t, ts, req)

	assert.False(t, ok)
	assert.Equal(t, http.StatusNoContent, code)
}

func TestIdentityFromContext_EmptyUserID(t *testing.T) {
	ctx := WithIdentity(httptest.NewRequest(http.MethodGet, "/", nil).Context(), Identity{Email: "x@example.com"})

	_, ok := IdentityFromContext(ctx)
	assert.False(t, ok)
}
