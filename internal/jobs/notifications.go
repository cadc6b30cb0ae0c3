package jobs

import (
	"log"
	"time"

	"github.com/mashora/mashora-backend/internal/models"
	"github.com/mashora/mashora-backend/internal/services"
	"github.com/mashora/mashora-backend/internal/storage"
)

const (
	dispatchInterval  = 30 * time.Second
	otpSweepInterval  = time.Hour
	dispatchBatchSize = 50
)

// NotificationJob delivers queued notifications over WhatsApp and sweeps
// stale pending OTP records.
type NotificationJob struct {
	store         storage.Store
	twilioService *services.TwilioService
	stop          chan struct{}
	isRunning     bool
}

// NewNotificationJob creates a new notification job scheduler
func NewNotificationJob(store storage.Store, twilioService *services.TwilioService) *NotificationJob {
	return &NotificationJob{
		store:         store,
		twilioService: twilioService,
		stop:          make(chan struct{}),
	}
}

// Start begins the background loops
func (n *NotificationJob) Start() {
	if n.isRunning {
		log.Println("Notification jobs already running")
		return
	}
	n.isRunning = true
	log.Println("Starting scheduled notification jobs...")

	go n.dispatchLoop()
	go n.otpSweepLoop()
}

// Stop halts the background loops
func (n *NotificationJob) Stop() {
	if !n.isRunning {
		return
	}
	n.isRunning = false
	close(n.stop)
	log.Println("Stopping scheduled notification jobs...")
}

func (n *NotificationJob) dispatchLoop() {
	ticker := time.NewTicker(dispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.stop:
			return
		case <-ticker.C:
			n.dispatchPending()
		}
	}
}

// dispatchPending sends queued notifications. Each failure marks its row
// failed and moves on; delivery is at-least-once by design.
func (n *NotificationJob) dispatchPending() {
	pending, err := n.store.GetPendingNotifications(dispatchBatchSize)
	if err != nil {
		log.Printf("Failed to load pending notifications: %v", err)
		return
	}

	for _, notification := range pending {
		phone, ok := n.recipientPhone(notification)
		if !ok {
			notification.Status = models.NotificationStatusFailed
			if err := n.store.UpdateNotification(notification); err != nil {
				log.Printf("Failed to mark notification %s failed: %v", notification.NotificationID, err)
			}
			continue
		}

		if n.twilioService.CanSendWhatsApp() {
			if _, err := n.twilioService.SendWhatsAppMessage(phone, notification.Title+"\n"+notification.Body); err != nil {
				notification.Status = models.NotificationStatusFailed
				if err := n.store.UpdateNotification(notification); err != nil {
					log.Printf("Failed to mark notification %s failed: %v", notification.NotificationID, err)
				}
				continue
			}
		} else {
			log.Printf("📨 [dev] notification to %s: %s", notification.RecipientID, notification.Title)
		}

		now := time.Now()
		notification.Status = models.NotificationStatusSent
		notification.SentAt = &now
		if err := n.store.UpdateNotification(notification); err != nil {
			log.Printf("Failed to mark notification %s sent: %v", notification.NotificationID, err)
		}
	}
}

func (n *NotificationJob) recipientPhone(notification *models.Notification) (string, bool) {
	switch notification.RecipientType {
	case "lawyer":
		lawyer, err := n.store.GetLawyerByID(notification.RecipientID)
		if err != nil {
			log.Printf("Recipient lawyer %s not found: %v", notification.RecipientID, err)
			return "", false
		}
		return lawyer.Phone, true
	case "member":
		member, err := n.store.GetMember(notification.RecipientID)
		if err != nil {
			log.Printf("Recipient member %s not found: %v", notification.RecipientID, err)
			return "", false
		}
		return member.Phone, true
	default:
		log.Printf("Unknown recipient type %q on notification %s", notification.RecipientType, notification.NotificationID)
		return "", false
	}
}

func (n *NotificationJob) otpSweepLoop() {
	ticker := time.NewTicker(otpSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.stop:
			return
		case <-ticker.C:
			expired, err := n.store.ExpireStaleOTPs(time.Now())
			if err != nil {
				log.Printf("OTP sweep failed: %v", err)
				continue
			}
			if expired > 0 {
				log.Printf("🧹 Expired %d stale OTP records", expired)
			}
		}
	}
}
