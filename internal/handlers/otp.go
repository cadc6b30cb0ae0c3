package handlers

import (
	"errors"
	"log"
	"strings"
	"time"
	"unicode"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/mashora/mashora-backend/internal/models"
	"github.com/mashora/mashora-backend/internal/services"
)

// OTPHandler handles OTP issuance and verification requests
type OTPHandler struct {
	otpService *services.OTPService
	tokens     *services.TokenService
}

// NewOTPHandler creates a new OTP handler
func NewOTPHandler(otpService *services.OTPService, tokens *services.TokenService) *OTPHandler {
	return &OTPHandler{
		otpService: otpService,
		tokens:     tokens,
	}
}

// SendOTP handles POST /api/otp/send
func (h *OTPHandler) SendOTP(c *fiber.Ctx) error {
	requestID := uuid.NewString()

	var req struct {
		Phone              string `json:"phone"`
		Purpose            string `json:"purpose"`
		Channel            string `json:"channel"`
		LegalArmID         string `json:"legal_arm_id"`
		NationalID         string `json:"national_id"`
		RequestingLawyerID string `json:"requesting_lawyer_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Invalid request body", "request_id": requestID,
		})
	}

	if !validPhone(req.Phone) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Phone must be in E.164 format", "request_id": requestID,
		})
	}
	if req.Purpose == "" {
		req.Purpose = models.OTPPurposeLogin
	}
	if !models.ValidOTPPurpose(req.Purpose) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Unknown purpose", "request_id": requestID,
		})
	}
	if req.Channel == "" {
		req.Channel = models.OTPChannelSMS
	}
	if !models.ValidOTPChannel(req.Channel) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Unknown channel", "request_id": requestID,
		})
	}

	result, err := h.otpService.Issue(services.IssueInput{
		Phone:              req.Phone,
		Purpose:            req.Purpose,
		Channel:            req.Channel,
		LegalArmID:         req.LegalArmID,
		NationalID:         req.NationalID,
		RequestingLawyerID: req.RequestingLawyerID,
	})
	if err != nil {
		return h.issueError(c, err, requestID)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"channel":    result.Channel,
		"request_id": requestID,
	})
}

// VerifyOTP handles POST /api/otp/verify
func (h *OTPHandler) VerifyOTP(c *fiber.Ctx) error {
	requestID := uuid.NewString()

	var req struct {
		Phone   string `json:"phone"`
		Code    string `json:"code"`
		Purpose string `json:"purpose"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Invalid request body", "request_id": requestID,
		})
	}

	if !validPhone(req.Phone) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Phone must be in E.164 format", "request_id": requestID,
		})
	}
	if !validCode(req.Code) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Code must be exactly 6 digits", "request_id": requestID,
		})
	}
	if req.Purpose == "" {
		req.Purpose = models.OTPPurposeLogin
	}
	if !models.ValidOTPPurpose(req.Purpose) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Unknown purpose", "request_id": requestID,
		})
	}

	result, err := h.otpService.Verify(req.Phone, req.Purpose, req.Code)
	if err != nil {
		return h.verifyError(c, err, requestID)
	}

	token, err := h.tokens.GenerateSessionToken(result.Phone, req.Purpose)
	if err != nil {
		// Verification itself succeeded; the portal can retry login
		log.Printf("Failed to mint session token for %s: %v", result.Phone, err)
	}

	return c.JSON(fiber.Map{
		"success":              true,
		"phone":                result.Phone,
		"legal_arm_id":         result.LegalArmID,
		"requesting_lawyer_id": result.RequestingLawyerID,
		"national_id":          result.NationalID,
		"token":                token,
		"request_id":           requestID,
	})
}

func (h *OTPHandler) issueError(c *fiber.Ctx, err error, requestID string) error {
	var rateErr *services.RateLimitError
	var blockErr *services.BlockedError
	var deliveryErr *services.DeliveryError

	switch {
	case errors.As(err, &blockErr):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"success": false, "error": "Phone temporarily blocked",
			"retry_after_seconds": retryAfter(blockErr.Until), "request_id": requestID,
		})
	case errors.As(err, &rateErr):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"success": false, "error": "Too many OTP requests",
			"retry_after_seconds": retryAfter(rateErr.ResetAt), "request_id": requestID,
		})
	case errors.As(err, &deliveryErr):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false, "error": "Failed to deliver verification code", "request_id": requestID,
		})
	default:
		log.Printf("OTP issuance failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false, "error": "Failed to issue verification code", "request_id": requestID,
		})
	}
}

func (h *OTPHandler) verifyError(c *fiber.Ctx, err error, requestID string) error {
	var rateErr *services.RateLimitError
	var blockErr *services.BlockedError
	var mismatchErr *services.CodeMismatchError

	switch {
	case errors.As(err, &blockErr):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"success": false, "error": "Phone temporarily blocked",
			"retry_after_seconds": retryAfter(blockErr.Until), "request_id": requestID,
		})
	case errors.As(err, &rateErr):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"success": false, "error": "Too many verification attempts",
			"retry_after_seconds": retryAfter(rateErr.ResetAt), "request_id": requestID,
		})
	case errors.As(err, &mismatchErr):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false, "error": "Invalid verification code",
			"attempts_remaining": mismatchErr.Remaining, "request_id": requestID,
		})
	case errors.Is(err, services.ErrNoValidCode), errors.Is(err, services.ErrTooManyAttempts):
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"success": false, "error": "No valid verification code, request a new one", "request_id": requestID,
		})
	default:
		log.Printf("OTP verification failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false, "error": "Failed to verify code", "request_id": requestID,
		})
	}
}

func retryAfter(t time.Time) int {
	seconds := int(time.Until(t).Seconds())
	if seconds < 0 {
		seconds = 0
	}
	return seconds
}

// validPhone accepts E.164: leading + followed by 8 to 15 digits.
func validPhone(phone string) bool {
	if !strings.HasPrefix(phone, "+") {
		return false
	}
	digits := phone[1:]
	if len(digits) < 8 || len(digits) > 15 {
		return false
	}
	for _, r := range digits {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// validCode accepts exactly 6 ASCII digits.
func validCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
