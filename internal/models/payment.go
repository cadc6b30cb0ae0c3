package models

import (
	"gorm.io/gorm"
)

// Payment statuses.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Payment types select the settlement branch.
const (
	PaymentTypeSubscription = "subscription"
	PaymentTypeExtraService = "extra_service"
)

// Payment represents a settled (or attempted) gateway payment.
// GatewayPaymentID carries a partial unique index over completed rows so a
// given external payment settles at most once even when the verify endpoint
// and the webhook race; failed audit rows do not block later settlement.
type Payment struct {
	gorm.Model

	PaymentReference string  `json:"payment_reference" gorm:"index"`
	GatewayPaymentID string  `json:"gateway_payment_id" gorm:"index;uniqueIndex:ux_payments_gateway_completed,where:status = 'completed'"`
	MemberID         string  `json:"member_id" gorm:"index"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency" gorm:"default:SAR"`
	PaymentMethod    string  `json:"payment_method"`
	PaymentType      string  `json:"payment_type"`
	Status           string  `json:"status" gorm:"default:pending;index"`
	RequestID        *string `json:"request_id" gorm:"index"`
	Metadata         string  `json:"metadata"` // JSON for gateway fields
}
