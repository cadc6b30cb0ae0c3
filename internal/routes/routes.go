package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mashora/mashora-backend/internal/handlers"
	"github.com/mashora/mashora-backend/internal/middleware"
	"github.com/mashora/mashora-backend/internal/services"
)

// Services bundles the wired services the routes need.
type Services struct {
	OTP        *services.OTPService
	Payment    *services.PaymentService
	Assignment *services.AssignmentService
	Tokens     *services.TokenService
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, svc Services) {
	otpHandler := handlers.NewOTPHandler(svc.OTP, svc.Tokens)
	paymentHandler := handlers.NewPaymentHandler(svc.Payment)
	distributionHandler := handlers.NewDistributionHandler(svc.Assignment)

	api := app.Group("/api")

	// OTP routes
	otp := api.Group("/otp")
	otp.Post("/send", otpHandler.SendOTP)
	otp.Post("/verify", otpHandler.VerifyOTP)

	// Payment routes (synchronous verification path)
	payments := api.Group("/payments")
	payments.Post("/verify", paymentHandler.VerifyPayment)

	// Request distribution (staff only)
	requests := api.Group("/requests", middleware.RequireAuth(svc.Tokens))
	requests.Post("/:id/distribute", distributionHandler.DistributeRequest)

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")
	webhooks.Post("/payments", middleware.WebhookAlwaysOK(), paymentHandler.HandleWebhook)
}
