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
	id       int
	username string
	err      error
}

func (v stubValidator) ValidateToken(string) (int, string, error) {
	return v.id, v.username, v.err
}

func serve(t *testing.T, v TokenValidator, r *http.Request) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()

	var captured *http.Request
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
	})

	rec := httptest.NewRecorder()
	NewAuthMiddleware(v).Handle(next).ServeHTTP(rec, r)
	return rec, captured
}

func TestAuthMiddlewareAcceptsBearerHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/users/search", nil)
	req.Header.Set("Authorization", "Bearer some-token")

	rec, captured := serve(t, stubValidator{id: 5, username: "ada"}, req)

	require.Equal(t, http.StatusOK, rec.Code)
	id, ok := UserID(captured.Context())
	require.True(t, ok)
	assert.Equal(t, 5, id)
}

func TestAuthMiddlewareAcceptsQueryToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws/chat/1?token=some-token", nil)

	rec, _ := serve(t, stubValidator{id: 5, username: "ada"}, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/users/search", nil)

	rec, captured := serve(t, stubValidator{id: 5}, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, captured)
}

func TestAuthMiddlewareRejectsInvalidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/users/search", nil)
	req.Header.Set("Authorization", "Bearer bad-token")

	rec, _ := serve(t, stubValidator{err: errors.New("invalid")}, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
