package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	userID   int64
	username string
	err      error
	seen     string
}

func (v *stubValidator) ValidateToken(tokenString string) (int64, string, error) {
	v.seen = tokenString
	if v.err != nil {
		return 0, "", v.err
	}
	return v.userID, v.username, nil
}

func protectedHandler(t *testing.T, wantID int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserID(r.Context())
		require.True(t, ok)
		assert.Equal(t, wantID, id)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareBearerHeader(t *testing.T) {
	validator := &stubValidator{userID: 7, username: "alice"}
	mw := NewAuthMiddleware(validator)

	req := httptest.NewRequest("GET", "/api/posts", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()

	mw.Handle(protectedHandler(t, 7)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "good-token", validator.seen)
}

func TestAuthMiddlewareQueryTokenFallback(t *testing.T) {
	validator := &stubValidator{userID: 7, username: "alice"}
	mw := NewAuthMiddleware(validator)

	req := httptest.NewRequest("GET", "/ws?token=ws-token", nil)
	rec := httptest.NewRecorder()

	mw.Handle(protectedHandler(t, 7)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ws-token", validator.seen)
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	mw := NewAuthMiddleware(&stubValidator{})

	req := httptest.NewRequest("GET", "/api/posts", nil)
	rec := httptest.NewRecorder()

	called := false
	mw.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestAuthMiddlewareInvalidToken(t *testing.T) {
	mw := NewAuthMiddleware(&stubValidator{err: errors.New("expired")})

	req := httptest.NewRequest("GET", "/api/posts", nil)
	req.Header.Set("Authorization", "Bearer stale")
	rec := httptest.NewRecorder()

	mw.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserIDAbsent(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	_, ok := UserID(req.Context())
	assert.False(t, ok)
}
