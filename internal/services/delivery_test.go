package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mashora/mashora-backend/internal/models"
)

func TestDeliveryRouter(t *testing.T) {
	t.Run("dev channel always succeeds", func(t *testing.T) {
		router := NewDeliveryRouter(nil, false)

		result := router.Send(testPhone, "123456", models.OTPPurposeLogin, models.OTPChannelDev)
		assert.True(t, result.Success)
		assert.Equal(t, models.OTPChannelDev, result.Channel)
	})

	t.Run("unconfigured sms falls back to the dev sink", func(t *testing.T) {
		router := NewDeliveryRouter(nil, false)

		result := router.Send(testPhone, "123456", models.OTPPurposeLogin, models.OTPChannelSMS)
		assert.True(t, result.Success)
		assert.Equal(t, models.OTPChannelDev, result.Channel)
		assert.NoError(t, result.Err)
	})

	t.Run("unconfigured whatsapp falls back to the dev sink", func(t *testing.T) {
		router := NewDeliveryRouter(nil, false)

		result := router.Send(testPhone, "123456", models.OTPPurposeLogin, models.OTPChannelWhatsApp)
		assert.True(t, result.Success)
		assert.Equal(t, models.OTPChannelDev, result.Channel)
	})

	t.Run("strict mode fails instead of falling back", func(t *testing.T) {
		router := NewDeliveryRouter(nil, true)

		result := router.Send(testPhone, "123456", models.OTPPurposeLogin, models.OTPChannelSMS)
		assert.False(t, result.Success)
		assert.Equal(t, models.OTPChannelSMS, result.Channel)
		assert.Error(t, result.Err)
	})

	t.Run("unknown channel fails", func(t *testing.T) {
		router := NewDeliveryRouter(nil, false)

		result := router.Send(testPhone, "123456", models.OTPPurposeLogin, "carrier_pigeon")
		assert.False(t, result.Success)
		assert.Error(t, result.Err)
	})

	t.Run("twilio without sender numbers still falls back", func(t *testing.T) {
		// Credentials configured but no sender numbers
		router := NewDeliveryRouter(&TwilioService{}, false)

		result := router.Send(testPhone, "123456", models.OTPPurposeLogin, models.OTPChannelSMS)
		assert.True(t, result.Success)
		assert.Equal(t, models.OTPChannelDev, result.Channel)
	})
}

func TestCodeMessage(t *testing.T) {
	message := codeMessage("123456")
	assert.Contains(t, message, "123456")
	assert.Contains(t, message, "5 minutes")
}
