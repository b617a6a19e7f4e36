package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccessTokenClaims(t *testing.T) {
	at, err := NewAccessToken("test-secret", 42, "user@example.com", "STANDARD", 60)
	require.NoError(t, err)
	require.NotEmpty(t, at.Token)

	tok, err := jwt.Parse(at.Token, func(tk *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, tok.Valid)

	claims, ok := tok.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, float64(42), claims["sub"])
	assert.Equal(t, "user@example.com", claims["email"])
	assert.Equal(t, "STANDARD", claims["role"])
	assert.InDelta(t, time.Now().UTC().Add(60*time.Minute).Unix(), int64(claims["exp"].(float64)), 5)
}

func TestNewAccessTokenWrongSecret(t *testing.T) {
	at, err := NewAccessToken("secret-a", 1, "a@b.c", "ADMIN", 5)
	require.NoError(t, err)

	_, err = jwt.Parse(at.Token, func(tk *jwt.Token) (interface{}, error) {
		return []byte("secret-b"), nil
	})
	assert.Error(t, err)
}

func TestNewRefreshTokenFamily(t *testing.T) {
	first, err := NewRefreshToken("", 7)
	require.NoError(t, err)
	assert.Len(t, first.Raw, 96) // 48 random bytes hex encoded
	assert.NotEmpty(t, first.Family)
	assert.True(t, first.Exp.After(time.Now().UTC().Add(6*24*time.Hour)))

	// Rotation keeps the family of the token it replaces.
	next, err := NewRefreshToken(first.Family, 7)
	require.NoError(t, err)
	assert.Equal(t, first.Family, next.Family)
	assert.NotEqual(t, first.Raw, next.Raw)
}

func TestHashRefreshRawStable(t *testing.T) {
	h1 := HashRefreshRaw("some-raw-token")
	h2 := HashRefreshRaw("some-raw-token")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
	assert.NotEqual(t, h1, HashRefreshRaw("other-token"))
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("Secret123!", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "Secret123!"))
	assert.False(t, VerifyPassword(hash, "wrong"))
}
