package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ServiceRequest statuses. pending_assignment -> assigned -> in_progress ->
// completed is the main path; pending_quotes and cancelled are branches.
const (
	RequestStatusPendingAssignment = "pending_assignment"
	RequestStatusPendingQuotes     = "pending_quotes"
	RequestStatusAssigned          = "assigned"
	RequestStatusInProgress        = "in_progress"
	RequestStatusCompleted         = "completed"
	RequestStatusCancelled         = "cancelled"
)

// Handler types for a request.
const (
	HandlerTypeLegalArm    = "legal_arm"
	HandlerTypeIndependent = "independent"
)

// Fixed pricing/SLA policy for billable service requests.
const (
	VATRate  = 0.15 // 15% VAT
	SLAHours = 24
)

// ServiceRequest represents a member's request for a legal service
type ServiceRequest struct {
	gorm.Model

	RequestID    string `json:"request_id" gorm:"uniqueIndex"`
	TicketNumber string `json:"ticket_number" gorm:"uniqueIndex"`
	MemberID     string `json:"member_id" gorm:"index"`
	ServiceID    string `json:"service_id" gorm:"index"`
	CategoryCode string `json:"category_code"`
	Title        string `json:"title"`

	Status           string     `json:"status" gorm:"default:pending_assignment;index"`
	AssignedLawyerID *string    `json:"assigned_lawyer_id" gorm:"index"`
	HandlerType      string     `json:"handler_type"`
	AssignedAt       *time.Time `json:"assigned_at"`

	BasePrice   float64 `json:"base_price"`
	VATAmount   float64 `json:"vat_amount"`
	TotalAmount float64 `json:"total_amount"`

	SLADeadline *time.Time `json:"sla_deadline"`
}

// BeforeCreate hook to auto-generate RequestID
func (r *ServiceRequest) BeforeCreate(tx *gorm.DB) error {
	if r.RequestID == "" {
		r.RequestID = fmt.Sprintf("REQ%d%03d", time.Now().Unix(), time.Now().Nanosecond()%1000)
	}
	return nil
}
