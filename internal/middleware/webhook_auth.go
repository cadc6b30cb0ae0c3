package middleware

import (
	"crypto/subtle"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
)

// VerifyWebhookToken checks the gateway's shared secret against the
// configured one without early exit. The webhook contract is to always
// respond 200, so a mismatch acknowledges the event and marks it ignored
// instead of returning an error status.
func VerifyWebhookToken(secretToken string) bool {
	expected := os.Getenv("PAYMENT_WEBHOOK_SECRET")
	if expected == "" {
		log.Println("ERROR: PAYMENT_WEBHOOK_SECRET not set - rejecting webhook events")
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secretToken), []byte(expected)) == 1
}

// WebhookAlwaysOK recovers from any downstream panic with a 200 so the
// gateway never enters a retry storm because of us.
func WebhookAlwaysOK() fiber.Handler {
	return func(c *fiber.Ctx) error {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Webhook handler panic: %v", r)
				_ = c.SendStatus(fiber.StatusOK)
			}
		}()
		return c.Next()
	}
}
