package storage

import (
	"errors"
	"time"

	"github.com/mashora/mashora-backend/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyAssigned is returned by AssignServiceRequest when the
	// request already has a lawyer (conditional update matched no rows).
	ErrAlreadyAssigned = errors.New("request already assigned")
	// ErrDuplicate is returned when an insert violates a unique index,
	// e.g. a second completed payment for the same gateway payment id.
	ErrDuplicate = errors.New("duplicate record")
)

var storeInstance Store

// SetStore sets the global store instance (call from main.go)
func SetStore(s Store) {
	storeInstance = s
}

// GetStore returns the global store instance
func GetStore() Store {
	return storeInstance
}

// Store defines the interface for storage operations
type Store interface {
	// Lawyer operations
	CreateLawyer(lawyer *models.Lawyer) (*models.Lawyer, error)
	GetLawyerByID(lawyerID string) (*models.Lawyer, error)
	GetEligibleLawyers() ([]*models.Lawyer, error)
	GetActiveLegalArmLawyers() ([]*models.Lawyer, error)
	UpdateLawyer(lawyer *models.Lawyer) error
	IncrementLawyerWorkload(lawyerID string) error

	// Service request operations
	CreateServiceRequest(request *models.ServiceRequest) (*models.ServiceRequest, error)
	GetServiceRequest(requestID string) (*models.ServiceRequest, error)
	UpdateServiceRequest(request *models.ServiceRequest) error
	// AssignServiceRequest commits an assignment only when the request is
	// still unassigned; returns ErrAlreadyAssigned otherwise.
	AssignServiceRequest(requestID, lawyerID string, assignedAt time.Time) error

	// OTP operations
	CreateOTP(otp *models.OTP) (*models.OTP, error)
	GetLatestPendingOTP(phone, purpose string, now time.Time) (*models.OTP, error)
	ExpirePendingOTPs(phone, purpose string) (int64, error)
	UpdateOTP(otp *models.OTP) error
	ExpireStaleOTPs(now time.Time) (int64, error)

	// Payment operations
	CreatePayment(payment *models.Payment) (*models.Payment, error)
	GetCompletedPaymentByGatewayID(gatewayPaymentID string) (*models.Payment, error)
	GetPaymentByGatewayID(gatewayPaymentID string) (*models.Payment, error)
	UpdatePayment(payment *models.Payment) error

	// Package / subscription / member operations
	GetPackage(packageID string) (*models.Package, error)
	CreateSubscription(sub *models.Subscription) (*models.Subscription, error)
	GetMember(memberID string) (*models.Member, error)
	UpdateMember(member *models.Member) error

	// Legal service operations
	GetLegalService(serviceID string) (*models.LegalService, error)
	GetServiceCategory(categoryID string) (*models.ServiceCategory, error)

	// Notification operations
	CreateNotification(notification *models.Notification) (*models.Notification, error)
	GetPendingNotifications(limit int) ([]*models.Notification, error)
	UpdateNotification(notification *models.Notification) error

	// Sequence operations
	NextSequenceValue(code string) (int64, error)
}
