package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mashora/mashora-backend/internal/models"
)

func TestSessionTokens(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		tokens := NewTokenService("test-secret")

		signed, err := tokens.GenerateSessionToken(testPhone, models.OTPPurposeLogin)
		require.NoError(t, err)
		require.NotEmpty(t, signed)

		claims, err := tokens.ParseSessionToken(signed)
		require.NoError(t, err)
		assert.Equal(t, testPhone, claims.Subject)
		assert.Equal(t, models.OTPPurposeLogin, claims.Purpose)
		assert.Equal(t, "mashora", claims.Issuer)
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		signed, err := NewTokenService("secret-a").GenerateSessionToken(testPhone, models.OTPPurposeLogin)
		require.NoError(t, err)

		_, err = NewTokenService("secret-b").ParseSessionToken(signed)
		assert.Error(t, err)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		_, err := NewTokenService("test-secret").ParseSessionToken("not.a.token")
		assert.Error(t, err)
	})
}
