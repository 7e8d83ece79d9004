package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	userID := uuid.New()

	token, err := GenerateAccessToken(userID, "user@example.com", "secret", time.Minute)
	require.NoError(t, err)

	claims, err := ValidateToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken(uuid.New(), "user@example.com", "secret", time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, "other")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokenExpired(t *testing.T) {
	token, err := GenerateAccessToken(uuid.New(), "user@example.com", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, "secret")
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	userID := uuid.New()

	token, err := GenerateRefreshToken(userID, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateRefreshToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestGarbageToken(t *testing.T) {
	_, err := ValidateToken("not-a-token", "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
