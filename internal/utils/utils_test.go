package utils

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", 42, "TEACHER", 15)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Token)

	c, err := ParseAccessToken("s3cret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), c.UserID)
	assert.Equal(t, "TEACHER", c.Role)

	_, err = ParseAccessToken("other", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessTokenRejects(t *testing.T) {
	expired, err := NewAccessToken("k", 1, "ADMIN", -5)
	require.NoError(t, err)
	_, err = ParseAccessToken("k", expired.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noRole := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "exp": 4102444800})
	raw, err := noRole.SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = ParseAccessToken("k", raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "role": "ADMIN"})
	raw, err = noExp.SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = ParseAccessToken("k", raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseAccessToken("k", "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter2", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "hunter2"))
	assert.False(t, VerifyPassword(hash, "hunter3"))
}
