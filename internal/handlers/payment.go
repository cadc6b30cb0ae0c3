package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/mashora/mashora-backend/internal/middleware"
	"github.com/mashora/mashora-backend/internal/models"
	"github.com/mashora/mashora-backend/internal/services"
)

// PaymentHandler handles payment verification and gateway webhooks
type PaymentHandler struct {
	paymentService *services.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// VerifyPayment handles POST /api/payments/verify (synchronous path)
func (h *PaymentHandler) VerifyPayment(c *fiber.Ctx) error {
	var req services.VerifyInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.PaymentID == "" || req.MemberID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "payment_id and member_id are required",
		})
	}
	if req.ExpectedAmount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "expected_amount must be a positive amount in the smallest currency unit",
		})
	}
	switch req.PaymentType {
	case models.PaymentTypeSubscription:
		if req.PackageID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "package_id is required for subscription payments",
			})
		}
	case models.PaymentTypeExtraService:
		if req.ServiceID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "service_id is required for extra service payments",
			})
		}
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "payment_type must be subscription or extra_service",
		})
	}

	outcome, err := h.paymentService.VerifyAndSettle(req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPackageNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Package not found",
			})
		case errors.Is(err, services.ErrServiceNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Service not found",
			})
		default:
			log.Printf("Payment verification failed for %s: %v", req.PaymentID, err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Payment verification failed",
			})
		}
	}

	if !outcome.Valid {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"valid":  false,
			"reason": outcome.Reason,
		})
	}

	return c.JSON(fiber.Map{
		"valid":      true,
		"settlement": outcome.Settlement,
	})
}

// HandleWebhook handles POST /webhook/payments. Always responds 200: the
// gateway retries non-2xx deliveries aggressively, and settlement is
// idempotent anyway.
func (h *PaymentHandler) HandleWebhook(c *fiber.Ctx) error {
	var event services.WebhookEvent
	if err := c.BodyParser(&event); err != nil {
		log.Printf("Unparseable payment webhook: %v", err)
		return c.JSON(fiber.Map{"received": true, "processed": false})
	}

	if !middleware.VerifyWebhookToken(event.SecretToken) {
		log.Printf("Payment webhook with bad secret token - ignoring event %s", event.Type)
		return c.JSON(fiber.Map{"received": true, "processed": false})
	}

	if err := h.paymentService.ProcessWebhook(&event); err != nil {
		log.Printf("Webhook processing failed for %s: %v", event.Data.ID, err)
		return c.JSON(fiber.Map{"received": true, "processed": false})
	}

	return c.JSON(fiber.Map{"received": true, "processed": true})
}
