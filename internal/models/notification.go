package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification priorities.
const (
	NotificationPriorityNormal = "normal"
	NotificationPriorityHigh   = "high"
)

// Notification delivery statuses.
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)

// Notification is a queued message to a lawyer or member. Rows are written
// by the services and delivered later by the notification job; enqueue
// failures never abort the operation that produced them.
type Notification struct {
	gorm.Model

	NotificationID string     `json:"notification_id" gorm:"uniqueIndex"`
	RecipientID    string     `json:"recipient_id" gorm:"index"`
	RecipientType  string     `json:"recipient_type"` // "lawyer" or "member"
	Title          string     `json:"title"`
	Body           string     `json:"body"`
	Priority       string     `json:"priority" gorm:"default:normal"`
	ReferenceID    string     `json:"reference_id" gorm:"index"` // e.g. request_id
	Status         string     `json:"status" gorm:"default:pending;index"`
	SentAt         *time.Time `json:"sent_at"`
}

// BeforeCreate hook to auto-generate NotificationID
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.NotificationID == "" {
		n.NotificationID = uuid.NewString()
	}
	return nil
}

// SequenceCounter backs human-readable reference generation (PAY-000123).
type SequenceCounter struct {
	gorm.Model

	Code      string `json:"code" gorm:"uniqueIndex"`
	LastValue int64  `json:"last_value" gorm:"default:0"`
}
