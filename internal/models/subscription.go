package models

import (
	"time"

	"gorm.io/gorm"
)

// Subscription statuses.
const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusExpired   = "expired"
	SubscriptionStatusCancelled = "cancelled"
)

// Package represents a subscription package members can purchase
type Package struct {
	gorm.Model

	PackageID         string  `json:"package_id" gorm:"uniqueIndex"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	DurationDays      int     `json:"duration_days" gorm:"default:365"`
	ConsultationLimit int     `json:"consultation_limit"`
	ContractLimit     int     `json:"contract_limit"`
	RequestLimit      int     `json:"request_limit"`
	IsActive          bool    `json:"is_active" gorm:"default:true"`
}

// Subscription represents an active package purchase. Remaining-usage
// counters are copied from the package limits at settlement time.
type Subscription struct {
	gorm.Model

	MemberID  string    `json:"member_id" gorm:"index"`
	PackageID string    `json:"package_id" gorm:"index"`
	Status    string    `json:"status" gorm:"default:active"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	RemainingConsultations int `json:"remaining_consultations"`
	RemainingContracts     int `json:"remaining_contracts"`
	RemainingRequests      int `json:"remaining_requests"`
}

// Member represents a subscriber. Subscription fields are denormalized
// copies updated at settlement time.
type Member struct {
	gorm.Model

	MemberID          string     `json:"member_id" gorm:"uniqueIndex"`
	Phone             string     `json:"phone" gorm:"uniqueIndex"`
	FullName          string     `json:"full_name"`
	SubscriptionStatus string    `json:"subscription_status" gorm:"default:none"`
	CurrentPackageID  string     `json:"current_package_id"`
	SubscriptionStart *time.Time `json:"subscription_start"`
	SubscriptionEnd   *time.Time `json:"subscription_end"`
}
