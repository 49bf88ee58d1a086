package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripdesk/backend/internal/auth"
	"github.com/tripdesk/backend/internal/middleware"
)

func newTestIssuer(ttl time.Duration) *auth.TokenIssuer {
	return auth.NewTokenIssuer([]byte("test-signing-secret"), ttl)
}

// TestAuthHandler_ValidToken verifies that a request carrying a freshly minted
// bearer token reaches the handler with the user's id in the context.
func TestAuthHandler_ValidToken(t *testing.T) {
	issuer := newTestIssuer(time.Hour)
	userID := uuid.New()
	token, err := issuer.Mint(userID)
	require.NoError(t, err)

	var gotID uuid.UUID
	var gotOK bool
	h := middleware.NewAuthHandler(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = middleware.UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gotOK)
	assert.Equal(t, userID, gotID)
}

// TestAuthHandler_MissingHeader verifies that a request without an
// Authorization header is rejected before reaching the handler.
func TestAuthHandler_MissingHeader(t *testing.T) {
	issuer := newTestIssuer(time.Hour)

	h := middleware.NewAuthHandler(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing bearer token")
}

// TestAuthHandler_MalformedHeader verifies that non-bearer schemes are rejected.
func TestAuthHandler_MalformedHeader(t *testing.T) {
	issuer := newTestIssuer(time.Hour)

	h := middleware.NewAuthHandler(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// TestAuthHandler_ExpiredToken verifies that a token past its TTL is rejected.
func TestAuthHandler_ExpiredToken(t *testing.T) {
	issuer := newTestIssuer(-time.Minute)
	token, err := issuer.Mint(uuid.New())
	require.NoError(t, err)

	h := middleware.NewAuthHandler(newTestIssuer(time.Hour))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with an expired token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid or expired token")
}

// TestAuthHandler_WrongSecret verifies that a token signed with a different
// secret never validates.
func TestAuthHandler_WrongSecret(t *testing.T) {
	other := auth.NewTokenIssuer([]byte("some-other-secret"), time.Hour)
	token, err := other.Mint(uuid.New())
	require.NoError(t, err)

	h := middleware.NewAuthHandler(newTestIssuer(time.Hour))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a foreign token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
