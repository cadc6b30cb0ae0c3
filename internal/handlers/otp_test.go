package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mashora/mashora-backend/internal/models"
)

const testPhone = "+966501234567"

func issueCode(t *testing.T, env *testEnv, phone, purpose string) string {
	t.Helper()

	resp, _ := env.post(t, "/api/otp/send", map[string]string{
		"phone": phone, "purpose": purpose, "channel": models.OTPChannelDev,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	records := env.store.GetOTPsByPhone(phone, purpose)
	require.NotEmpty(t, records)
	return records[len(records)-1].Code
}

func TestSendOTPEndpoint(t *testing.T) {
	t.Run("issues a code over the requested channel", func(t *testing.T) {
		env := newTestEnv(t)

		resp, body := env.post(t, "/api/otp/send", map[string]string{
			"phone": testPhone, "channel": models.OTPChannelDev,
		}, nil)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, models.OTPChannelDev, body["channel"])
		assert.NotEmpty(t, body["request_id"])
	})

	t.Run("sms falls back to dev when no provider is configured", func(t *testing.T) {
		env := newTestEnv(t)

		resp, body := env.post(t, "/api/otp/send", map[string]string{
			"phone": testPhone, "channel": models.OTPChannelSMS,
		}, nil)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, models.OTPChannelDev, body["channel"])
	})

	t.Run("rejects malformed phones", func(t *testing.T) {
		env := newTestEnv(t)

		for _, phone := range []string{"", "0501234567", "+abc", "+123", "+12345678901234567890"} {
			resp, body := env.post(t, "/api/otp/send", map[string]string{"phone": phone}, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "phone %q", phone)
			assert.Equal(t, false, body["success"])
		}
	})

	t.Run("rejects unknown purpose and channel", func(t *testing.T) {
		env := newTestEnv(t)

		resp, _ := env.post(t, "/api/otp/send", map[string]string{
			"phone": testPhone, "purpose": "teleport",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp, _ = env.post(t, "/api/otp/send", map[string]string{
			"phone": testPhone, "channel": "fax",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("fourth request in an hour is throttled", func(t *testing.T) {
		env := newTestEnv(t)

		for i := 0; i < 3; i++ {
			resp, _ := env.post(t, "/api/otp/send", map[string]string{
				"phone": testPhone, "channel": models.OTPChannelDev,
			}, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
		}

		resp, body := env.post(t, "/api/otp/send", map[string]string{
			"phone": testPhone, "channel": models.OTPChannelDev,
		}, nil)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.Contains(t, body, "retry_after_seconds")
	})
}

func TestVerifyOTPEndpoint(t *testing.T) {
	t.Run("correct code verifies and mints a session token", func(t *testing.T) {
		env := newTestEnv(t)
		code := issueCode(t, env, testPhone, models.OTPPurposeLogin)

		resp, body := env.post(t, "/api/otp/verify", map[string]string{
			"phone": testPhone, "code": code,
		}, nil)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, testPhone, body["phone"])

		token, _ := body["token"].(string)
		require.NotEmpty(t, token)
		claims, err := env.tokens.ParseSessionToken(token)
		require.NoError(t, err)
		assert.Equal(t, testPhone, claims.Subject)
	})

	t.Run("wrong code returns 401 with remaining attempts", func(t *testing.T) {
		env := newTestEnv(t)
		code := issueCode(t, env, testPhone, models.OTPPurposeLogin)
		wrong := "000000"
		if code == wrong {
			wrong = "000001"
		}

		resp, body := env.post(t, "/api/otp/verify", map[string]string{
			"phone": testPhone, "code": wrong,
		}, nil)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, float64(2), body["attempts_remaining"])
	})

	t.Run("missing code returns 410", func(t *testing.T) {
		env := newTestEnv(t)

		resp, _ := env.post(t, "/api/otp/verify", map[string]string{
			"phone": testPhone, "code": "123456",
		}, nil)

		assert.Equal(t, http.StatusGone, resp.StatusCode)
	})

	t.Run("rejects malformed codes before touching the service", func(t *testing.T) {
		env := newTestEnv(t)

		for _, code := range []string{"", "12345", "1234567", "12345a"} {
			resp, _ := env.post(t, "/api/otp/verify", map[string]string{
				"phone": testPhone, "code": code,
			}, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "code %q", code)
		}
	})

	t.Run("verified code cannot be replayed", func(t *testing.T) {
		env := newTestEnv(t)
		code := issueCode(t, env, testPhone, models.OTPPurposeLogin)

		resp, _ := env.post(t, "/api/otp/verify", map[string]string{
			"phone": testPhone, "code": code,
		}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = env.post(t, "/api/otp/verify", map[string]string{
			"phone": testPhone, "code": code,
		}, nil)
		assert.Equal(t, http.StatusGone, resp.StatusCode)
	})
}
