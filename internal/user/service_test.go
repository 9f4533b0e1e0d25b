package user

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, secret string, claims JWTClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return ss
}

func TestValidateTokenRoundTrip(t *testing.T) {
	s := NewService(nil, "test-secret")

	ss := signedToken(t, "test-secret", JWTClaims{
		ID:       7,
		Username: "ada",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	id, username, err := s.ValidateToken(ss)
	require.NoError(t, err)
	assert.Equal(t, 7, id)
	assert.Equal(t, "ada", username)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	s := NewService(nil, "test-secret")

	ss := signedToken(t, "test-secret", JWTClaims{
		ID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, _, err := s.ValidateToken(ss)
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	s := NewService(nil, "test-secret")

	ss := signedToken(t, "other-secret", JWTClaims{
		ID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, _, err := s.ValidateToken(ss)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	s := NewService(nil, "test-secret")

	_, _, err := s.ValidateToken("not-a-token")
	assert.Error(t, err)
}
