package jwt

import (
	"testing"
	"time"

	"emergency-triage/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "test-secret", AccessExpiry: time.Hour})
	staffID := uuid.New()

	token, tokenID, err := svc.GenerateAccessToken(staffID, "nurse@er.local", "nurse")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, staffID, claims.StaffID)
	assert.Equal(t, "nurse", claims.Role)
	assert.Equal(t, tokenID, claims.TokenID)
	assert.Equal(t, AccessToken, claims.TokenType)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "test-secret", AccessExpiry: time.Hour})
	other := NewJWTService(config.JWTConfig{Secret: "other-secret", AccessExpiry: time.Hour})
	expired := NewJWTService(config.JWTConfig{Secret: "test-secret", AccessExpiry: -time.Minute})

	foreign, _, err := other.GenerateAccessToken(uuid.New(), "a@b.c", "admin")
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign)
	assert.Error(t, err)

	stale, _, err := expired.GenerateAccessToken(uuid.New(), "a@b.c", "admin")
	require.NoError(t, err)
	_, err = svc.ValidateToken(stale)
	assert.Error(t, err)

	_, err = svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}
