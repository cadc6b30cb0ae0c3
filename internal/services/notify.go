package services

import (
	"log"

	"github.com/mashora/mashora-backend/internal/models"
	"github.com/mashora/mashora-backend/internal/storage"
)

// Notifier enqueues notifications for later delivery by the notification
// job. Enqueue is fire-and-forget: a failure is logged and never aborts the
// operation that produced the notification.
type Notifier struct {
	store storage.Store
}

// NewNotifier creates a new notifier
func NewNotifier(store storage.Store) *Notifier {
	return &Notifier{store: store}
}

// Enqueue persists a notification row. Best-effort.
func (n *Notifier) Enqueue(notification *models.Notification) {
	if notification.Priority == "" {
		notification.Priority = models.NotificationPriorityNormal
	}
	notification.Status = models.NotificationStatusPending

	if _, err := n.store.CreateNotification(notification); err != nil {
		log.Printf("Failed to enqueue notification for %s: %v", notification.RecipientID, err)
	}
}
