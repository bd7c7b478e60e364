package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTMaker_GenerateAndParseToken_ValidCases(t *testing.T) {
	secretKey := "test_secret_key_1234567890"
	tokenTTL := 15 * time.Minute
	maker := NewJWTMaker(secretKey, tokenTTL)

	tests := []struct {
		name     string
		username string
		role     string
		userUID  string
	}{
		{name: "admin user", username: "admin_user", role: "admin", userUID: "8b0e7c1e-0000-4000-8000-000000000001"},
		{name: "regular user", username: "regular_user", role: "user", userUID: "8b0e7c1e-0000-4000-8000-000000000002"},
		{name: "user with numbers in username", username: "user123", role: "user", userUID: "8b0e7c1e-0000-4000-8000-000000000003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := maker.GenerateToken(tt.username, tt.role, tt.userUID)
			require.NoError(t, err)
			assert.NotEmpty(t, token)

			claims, err := maker.ParseToken(token)
			require.NoError(t, err)
			assert.Equal(t, tt.username, claims.Username)
			assert.Equal(t, tt.role, claims.Role)
			assert.Equal(t, tt.userUID, claims.UserUID)
			assert.Equal(t, Issuer, claims.Issuer)
			assert.WithinDuration(t, time.Now().Add(tokenTTL), claims.ExpiresAt.Time, time.Second)
		})
	}
}

func TestJWTMaker_ParseToken_InvalidTokens(t *testing.T) {
	secretKey := "test_secret_key_1234567890"
	maker := NewJWTMaker(secretKey, 15*time.Minute)

	validToken, err := maker.GenerateToken("testuser", "user", "uid-1")
	require.NoError(t, err)

	expired := NewJWTMaker(secretKey, -time.Hour)
	expiredToken, err := expired.GenerateToken("testuser", "user", "uid-1")
	require.NoError(t, err)

	wrong := NewJWTMaker("wrong_secret_key", 15*time.Minute)
	wrongToken, err := wrong.GenerateToken("testuser", "user", "uid-1")
	require.NoError(t, err)

	noUID, err := maker.GenerateToken("testuser", "user", "")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "malformed token", token: "invalid.token.here"},
		{name: "expired token", token: expiredToken},
		{name: "wrong secret key", token: wrongToken},
		{name: "tampered token", token: validToken + "tampered"},
		{name: "token without user uid", token: noUID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := maker.ParseToken(tt.token)
			assert.Error(t, err)
			assert.Nil(t, claims)
		})
	}
}

func TestJWTMaker_FixedClock(t *testing.T) {
	maker := NewJWTMaker("secret", time.Hour)
	issued := time.Now().Add(-30 * time.Minute).Truncate(time.Second)
	maker.now = func() time.Time { return issued }

	token, err := maker.GenerateToken("u", "user", "uid")
	require.NoError(t, err)

	claims, err := maker.ParseToken(token)
	require.NoError(t, err)
	assert.True(t, issued.Equal(claims.IssuedAt.Time))
	assert.Equal(t, time.Hour, maker.TTL())
}
