// internal/auth/auth_test.go
package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestSignAndParseToken(t *testing.T) {
	user := uuid.New()
	tok, err := SignToken(secret, user, "alice", time.Minute)
	require.NoError(t, err)

	id, name, err := ParseToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, user, id)
	assert.Equal(t, "alice", name)
}

func TestParseTokenRejects(t *testing.T) {
	user := uuid.New()
	expired, err := SignToken(secret, user, "bob", -time.Minute)
	require.NoError(t, err)
	_, _, err = ParseToken(secret, expired)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired), "err = %v", err)

	good, err := SignToken(secret, user, "bob", time.Minute)
	require.NoError(t, err)
	_, _, err = ParseToken([]byte("other"), good)
	assert.Error(t, err)

	badSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	s, err := badSub.SignedString(secret)
	require.NoError(t, err)
	_, _, err = ParseToken(secret, s)
	assert.Error(t, err)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=abc", nil)
	tok, err := TokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	r = httptest.NewRequest("GET", "/ws?token=abc", nil)
	r.Header.Set("Authorization", "Bearer xyz")
	tok, err = TokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "xyz", tok, "header wins over query")

	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Basic xyz")
	_, err = TokenFromRequest(r)
	assert.Error(t, err)

	r = httptest.NewRequest("GET", "/ws", nil)
	_, err = TokenFromRequest(r)
	assert.ErrorIs(t, err, ErrNoToken)
}
