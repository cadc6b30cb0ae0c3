package services

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mashora/mashora-backend/internal/models"
	"github.com/mashora/mashora-backend/internal/ratelimit"
	"github.com/mashora/mashora-backend/internal/storage"
	"github.com/mashora/mashora-backend/internal/utils"
)

const (
	otpTTL              = 5 * time.Minute
	otpMaxAttempts      = 3
	exhaustionBlockTime = 30 * time.Minute
)

// OTPService manages the verification-code lifecycle: issuance with
// supersession, rate limiting, attempt tracking, and channel delivery.
type OTPService struct {
	store         storage.Store
	sender        CodeSender
	sendLimiter   ratelimit.Limiter
	verifyLimiter ratelimit.Limiter
	now           func() time.Time
}

// NewOTPService creates a new OTP service
func NewOTPService(store storage.Store, sender CodeSender, sendLimiter, verifyLimiter ratelimit.Limiter) *OTPService {
	return &OTPService{
		store:         store,
		sender:        sender,
		sendLimiter:   sendLimiter,
		verifyLimiter: verifyLimiter,
		now:           time.Now,
	}
}

// SetClock overrides the service clock (tests only).
func (s *OTPService) SetClock(now func() time.Time) {
	s.now = now
}

// IssueInput carries an issuance request.
type IssueInput struct {
	Phone   string
	Purpose string
	Channel string

	// Optional references returned to the caller on verification
	LegalArmID         string
	NationalID         string
	RequestingLawyerID string
}

// IssueResult reports a successful issuance.
type IssueResult struct {
	Channel   string
	ExpiresAt time.Time
}

// Issue supersedes any pending code for (phone, purpose), creates a fresh
// 6-digit code valid for 5 minutes, and dispatches it. A delivery failure
// leaves the record persisted and is reported as a DeliveryError.
func (s *OTPService) Issue(input IssueInput) (*IssueResult, error) {
	phone := input.Phone

	// Explicit block wins over the window counter
	if blocked, until := s.sendLimiter.IsBlocked(phone); blocked {
		return nil, &BlockedError{Until: until}
	}
	if res := s.sendLimiter.Check(phone); !res.Allowed {
		return nil, &RateLimitError{ResetAt: res.ResetAt}
	}

	// At most one pending record per (phone, purpose)
	if _, err := s.store.ExpirePendingOTPs(phone, input.Purpose); err != nil {
		return nil, fmt.Errorf("failed to supersede pending codes: %w", err)
	}

	code, err := utils.GenerateSecureOTP()
	if err != nil {
		return nil, fmt.Errorf("failed to generate OTP: %w", err)
	}

	now := s.now()
	otp := &models.OTP{
		Phone:              phone,
		Code:               code,
		Purpose:            input.Purpose,
		Channel:            input.Channel,
		Status:             models.OTPStatusPending,
		Attempts:           0,
		MaxAttempts:        otpMaxAttempts,
		ExpiresAt:          now.Add(otpTTL),
		LegalArmID:         input.LegalArmID,
		NationalID:         input.NationalID,
		RequestingLawyerID: input.RequestingLawyerID,
	}
	otp.CreatedAt = now

	if _, err := s.store.CreateOTP(otp); err != nil {
		return nil, fmt.Errorf("failed to persist OTP: %w", err)
	}

	result := s.sender.Send(phone, code, input.Purpose, input.Channel)
	if !result.Success {
		// The code is technically valid until expiry but the user never
		// received it; a retry supersedes it.
		return nil, &DeliveryError{Err: result.Err}
	}

	if result.Channel != otp.Channel {
		otp.Channel = result.Channel
		if err := s.store.UpdateOTP(otp); err != nil {
			log.Printf("Failed to record fallback channel for OTP %d: %v", otp.ID, err)
		}
	}

	return &IssueResult{Channel: result.Channel, ExpiresAt: otp.ExpiresAt}, nil
}

// VerifyResult carries the reference fields of a verified record for
// downstream linking.
type VerifyResult struct {
	Phone              string
	LegalArmID         string
	NationalID         string
	RequestingLawyerID string
}

// Verify checks a supplied code against the most recent pending record.
// A correct code transitions the record to verified exactly once; a wrong
// code burns one attempt, and exhausting the budget blocks the phone for
// 30 minutes.
func (s *OTPService) Verify(phone, purpose, suppliedCode string) (*VerifyResult, error) {
	if blocked, until := s.verifyLimiter.IsBlocked(phone); blocked {
		return nil, &BlockedError{Until: until}
	}
	if res := s.verifyLimiter.Check(phone); !res.Allowed {
		return nil, &RateLimitError{ResetAt: res.ResetAt}
	}

	otp, err := s.store.GetLatestPendingOTP(phone, purpose, s.now())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Not a security event worth blocking, but worth a trace
			log.Printf("⚠️  Verify attempt without valid code: phone=%s purpose=%s", phone, purpose)
			return nil, ErrNoValidCode
		}
		return nil, fmt.Errorf("failed to look up OTP: %w", err)
	}

	if otp.Attempts >= otp.MaxAttempts {
		otp.Status = models.OTPStatusExpired
		if err := s.store.UpdateOTP(otp); err != nil {
			log.Printf("Failed to expire exhausted OTP %d: %v", otp.ID, err)
		}
		return nil, ErrTooManyAttempts
	}

	if !constantTimeCodeMatch(suppliedCode, otp.Code) {
		otp.Attempts++
		remaining := otp.MaxAttempts - otp.Attempts
		if remaining <= 0 {
			otp.Status = models.OTPStatusExpired
			s.verifyLimiter.Block(phone, exhaustionBlockTime)
			log.Printf("🚫 Phone %s blocked for %v after exhausting OTP attempts", phone, exhaustionBlockTime)
		}
		if err := s.store.UpdateOTP(otp); err != nil {
			return nil, fmt.Errorf("failed to record failed attempt: %w", err)
		}
		return nil, &CodeMismatchError{Remaining: remaining}
	}

	now := s.now()
	otp.Status = models.OTPStatusVerified
	otp.VerifiedAt = &now
	if err := s.store.UpdateOTP(otp); err != nil {
		return nil, fmt.Errorf("failed to mark OTP verified: %w", err)
	}

	return &VerifyResult{
		Phone:              otp.Phone,
		LegalArmID:         otp.LegalArmID,
		NationalID:         otp.NationalID,
		RequestingLawyerID: otp.RequestingLawyerID,
	}, nil
}

// constantTimeCodeMatch compares codes without early exit on the first
// differing byte, so response timing does not leak match prefixes.
func constantTimeCodeMatch(supplied, stored string) bool {
	if len(supplied) != len(stored) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(stored)) == 1
}
