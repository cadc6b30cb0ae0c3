package models

import (
	"time"

	"gorm.io/gorm"
)

// OTP purposes map one-to-one to the portals that request verification.
const (
	OTPPurposeLogin          = "login"
	OTPPurposeRegister       = "register"
	OTPPurposeVerify         = "verify"
	OTPPurposeLegalArmInvite = "legal_arm_invite"
	OTPPurposeLawyerLogin    = "lawyer_login"
	OTPPurposeLegalArmLogin  = "legal_arm_login"
	OTPPurposePartnerLogin   = "partner_login"
)

// Delivery channels for verification codes.
const (
	OTPChannelSMS      = "sms"
	OTPChannelWhatsApp = "whatsapp"
	OTPChannelDev      = "dev"
)

// OTP statuses. A record stays pending until it is verified, superseded
// by a newer issuance, or exhausts its attempt budget.
const (
	OTPStatusPending  = "pending"
	OTPStatusVerified = "verified"
	OTPStatusExpired  = "expired"
)

// OTP represents one issued verification code.
// At most one pending record exists per (phone, purpose); issuing a new
// code expires the previous one first.
type OTP struct {
	gorm.Model
	Phone       string     `json:"phone" gorm:"not null;index:idx_otp_phone_purpose"`
	Code        string     `json:"-" gorm:"not null"`
	Purpose     string     `json:"purpose" gorm:"not null;index:idx_otp_phone_purpose"`
	Channel     string     `json:"channel" gorm:"default:sms"`
	Status      string     `json:"status" gorm:"default:pending;index"`
	Attempts    int        `json:"attempts" gorm:"default:0"`
	MaxAttempts int        `json:"max_attempts" gorm:"default:3"`
	ExpiresAt   time.Time  `json:"expires_at" gorm:"not null"`
	VerifiedAt  *time.Time `json:"verified_at"`

	// Optional references carried through verification for downstream linking
	LegalArmID         string `json:"legal_arm_id" gorm:"index"`
	NationalID         string `json:"national_id"`
	RequestingLawyerID string `json:"requesting_lawyer_id"`
}

// ValidOTPPurpose reports whether purpose is one of the known purposes.
func ValidOTPPurpose(purpose string) bool {
	switch purpose {
	case OTPPurposeLogin, OTPPurposeRegister, OTPPurposeVerify,
		OTPPurposeLegalArmInvite, OTPPurposeLawyerLogin,
		OTPPurposeLegalArmLogin, OTPPurposePartnerLogin:
		return true
	}
	return false
}

// ValidOTPChannel reports whether channel is a known delivery channel.
func ValidOTPChannel(channel string) bool {
	switch channel {
	case OTPChannelSMS, OTPChannelWhatsApp, OTPChannelDev:
		return true
	}
	return false
}
