package auth

import (
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placepinapp/placepin-server/internal/domain"
)

func newTestTokenService(t *testing.T, accessDuration time.Duration) *TokenService {
	t.Helper()

	key := make([]byte, keyBytesSize)
	_, err := rand.Read(key)
	require.NoError(t, err)

	svc, err := NewTokenService(hex.EncodeToString(key), accessDuration, 30*24*time.Hour)
	require.NoError(t, err)
	return svc
}

func TestNewTokenServiceRejectsBadKey(t *testing.T) {
	_, err := NewTokenService("too-short", time.Minute, time.Hour)
	assert.Error(t, err)

	_, err = NewTokenService("zz"+hex.EncodeToString(make([]byte, 31)), time.Minute, time.Hour)
	assert.Error(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestTokenService(t, 15*time.Minute)

	user := &domain.User{Name: "Max", Email: "max@example.com"}
	user.ID = "user_abc123"

	token, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user_abc123", claims.UserID)
	assert.Equal(t, "max@example.com", claims.Email)
	assert.Equal(t, "user_abc123", claims.Subject)
	assert.NotEmpty(t, claims.TokenID)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := newTestTokenService(t, -time.Minute)

	user := &domain.User{Email: "max@example.com"}
	user.ID = "user_abc123"

	token, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	svc := newTestTokenService(t, 15*time.Minute)
	other := newTestTokenService(t, 15*time.Minute)

	user := &domain.User{Email: "max@example.com"}
	user.ID = "user_abc123"

	token, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)

	_, err = other.VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := newTestTokenService(t, 15*time.Minute)

	_, err := svc.VerifyAccessToken("v4.local.not-a-real-token")
	assert.Error(t, err)
}

func TestRefreshTokensAreUniqueAndHashed(t *testing.T) {
	svc := newTestTokenService(t, 15*time.Minute)

	a, err := svc.GenerateRefreshToken()
	require.NoError(t, err)
	b, err := svc.GenerateRefreshToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)

	// The hash is deterministic and never equals the token itself.
	assert.Equal(t, HashRefreshToken(a), HashRefreshToken(a))
	assert.NotEqual(t, a, HashRefreshToken(a))
	assert.Len(t, HashRefreshToken(a), 64)
}
