package storage

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mashora/mashora-backend/internal/models"
)

// MemoryStore holds all data in memory for tests and local development
type MemoryStore struct {
	mu sync.RWMutex

	lawyers       map[string]*models.Lawyer
	requests      map[string]*models.ServiceRequest
	otps          []*models.OTP
	payments      map[string]*models.Payment // keyed by gateway payment id
	packages      map[string]*models.Package
	subscriptions []*models.Subscription
	members       map[string]*models.Member
	services      map[string]*models.LegalService
	categories    map[string]*models.ServiceCategory
	notifications []*models.Notification
	sequences     map[string]int64

	otpCounter uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lawyers:    make(map[string]*models.Lawyer),
		requests:   make(map[string]*models.ServiceRequest),
		payments:   make(map[string]*models.Payment),
		packages:   make(map[string]*models.Package),
		members:    make(map[string]*models.Member),
		services:   make(map[string]*models.LegalService),
		categories: make(map[string]*models.ServiceCategory),
		sequences:  make(map[string]int64),
	}
}

// Lawyer operations

func (m *MemoryStore) CreateLawyer(lawyer *models.Lawyer) (*models.Lawyer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lawyer.LawyerID == "" {
		lawyer.LawyerID = "LAW" + uuid.NewString()[:8]
	}
	lawyer.CreatedAt = time.Now()
	lawyer.UpdatedAt = time.Now()
	m.lawyers[lawyer.LawyerID] = lawyer
	return lawyer, nil
}

func (m *MemoryStore) GetLawyerByID(lawyerID string) (*models.Lawyer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lawyer, exists := m.lawyers[lawyerID]
	if !exists {
		return nil, ErrNotFound
	}
	return lawyer, nil
}

func (m *MemoryStore) GetEligibleLawyers() ([]*models.Lawyer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var eligible []*models.Lawyer
	for _, l := range m.lawyers {
		if l.IsEligible() {
			eligible = append(eligible, l)
		}
	}
	// Least loaded first; id as stable tie-break for determinism
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].CurrentWorkload != eligible[j].CurrentWorkload {
			return eligible[i].CurrentWorkload < eligible[j].CurrentWorkload
		}
		return eligible[i].LawyerID < eligible[j].LawyerID
	})
	return eligible, nil
}

func (m *MemoryStore) GetActiveLegalArmLawyers() ([]*models.Lawyer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var lawyers []*models.Lawyer
	for _, l := range m.lawyers {
		if l.Status == models.LawyerStatusActive && l.LawyerType == models.LawyerTypeLegalArm {
			lawyers = append(lawyers, l)
		}
	}
	sort.Slice(lawyers, func(i, j int) bool { return lawyers[i].LawyerID < lawyers[j].LawyerID })
	return lawyers, nil
}

func (m *MemoryStore) UpdateLawyer(lawyer *models.Lawyer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.lawyers[lawyer.LawyerID]; !exists {
		return ErrNotFound
	}
	lawyer.UpdatedAt = time.Now()
	m.lawyers[lawyer.LawyerID] = lawyer
	return nil
}

func (m *MemoryStore) IncrementLawyerWorkload(lawyerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lawyer, exists := m.lawyers[lawyerID]
	if !exists {
		return ErrNotFound
	}
	lawyer.CurrentWorkload++
	return nil
}

// Service request operations

func (m *MemoryStore) CreateServiceRequest(request *models.ServiceRequest) (*models.ServiceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if request.RequestID == "" {
		request.RequestID = "REQ" + uuid.NewString()[:8]
	}
	request.CreatedAt = time.Now()
	request.UpdatedAt = time.Now()
	m.requests[request.RequestID] = request
	return request, nil
}

func (m *MemoryStore) GetServiceRequest(requestID string) (*models.ServiceRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	request, exists := m.requests[requestID]
	if !exists {
		return nil, ErrNotFound
	}
	return request, nil
}

func (m *MemoryStore) UpdateServiceRequest(request *models.ServiceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.requests[request.RequestID]; !exists {
		return ErrNotFound
	}
	request.UpdatedAt = time.Now()
	m.requests[request.RequestID] = request
	return nil
}

func (m *MemoryStore) AssignServiceRequest(requestID, lawyerID string, assignedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	request, exists := m.requests[requestID]
	if !exists {
		return ErrNotFound
	}
	if request.AssignedLawyerID != nil {
		return ErrAlreadyAssigned
	}
	request.AssignedLawyerID = &lawyerID
	request.HandlerType = models.HandlerTypeLegalArm
	request.Status = models.RequestStatusAssigned
	request.AssignedAt = &assignedAt
	request.UpdatedAt = time.Now()
	return nil
}

// OTP operations

func (m *MemoryStore) CreateOTP(otp *models.OTP) (*models.OTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.otpCounter++
	otp.ID = m.otpCounter
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = time.Now()
	}
	otp.UpdatedAt = otp.CreatedAt
	m.otps = append(m.otps, otp)
	return otp, nil
}

func (m *MemoryStore) GetLatestPendingOTP(phone, purpose string, now time.Time) (*models.OTP, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *models.OTP
	for _, otp := range m.otps {
		if otp.Phone != phone || otp.Purpose != purpose {
			continue
		}
		if otp.Status != models.OTPStatusPending || !otp.ExpiresAt.After(now) {
			continue
		}
		if latest == nil || otp.CreatedAt.After(latest.CreatedAt) ||
			(otp.CreatedAt.Equal(latest.CreatedAt) && otp.ID > latest.ID) {
			latest = otp
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (m *MemoryStore) ExpirePendingOTPs(phone, purpose string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expired int64
	for _, otp := range m.otps {
		if otp.Phone == phone && otp.Purpose == purpose && otp.Status == models.OTPStatusPending {
			otp.Status = models.OTPStatusExpired
			expired++
		}
	}
	return expired, nil
}

func (m *MemoryStore) UpdateOTP(otp *models.OTP) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.otps {
		if existing.ID == otp.ID {
			otp.UpdatedAt = time.Now()
			m.otps[i] = otp
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) ExpireStaleOTPs(now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expired int64
	for _, otp := range m.otps {
		if otp.Status == models.OTPStatusPending && !otp.ExpiresAt.After(now) {
			otp.Status = models.OTPStatusExpired
			expired++
		}
	}
	return expired, nil
}

// Payment operations

func (m *MemoryStore) CreatePayment(payment *models.Payment) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, exists := m.payments[payment.GatewayPaymentID]; exists &&
		existing.Status == models.PaymentStatusCompleted &&
		payment.Status == models.PaymentStatusCompleted {
		return nil, ErrDuplicate
	}
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = time.Now()
	m.payments[payment.GatewayPaymentID] = payment
	return payment, nil
}

func (m *MemoryStore) GetCompletedPaymentByGatewayID(gatewayPaymentID string) (*models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	payment, exists := m.payments[gatewayPaymentID]
	if !exists || payment.Status != models.PaymentStatusCompleted {
		return nil, ErrNotFound
	}
	return payment, nil
}

func (m *MemoryStore) GetPaymentByGatewayID(gatewayPaymentID string) (*models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	payment, exists := m.payments[gatewayPaymentID]
	if !exists {
		return nil, ErrNotFound
	}
	return payment, nil
}

func (m *MemoryStore) UpdatePayment(payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.payments[payment.GatewayPaymentID]; !exists {
		return ErrNotFound
	}
	payment.UpdatedAt = time.Now()
	m.payments[payment.GatewayPaymentID] = payment
	return nil
}

// Package / subscription / member operations

func (m *MemoryStore) CreatePackage(pkg *models.Package) (*models.Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.packages[pkg.PackageID] = pkg
	return pkg, nil
}

func (m *MemoryStore) GetPackage(packageID string) (*models.Package, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pkg, exists := m.packages[packageID]
	if !exists {
		return nil, ErrNotFound
	}
	return pkg, nil
}

func (m *MemoryStore) CreateSubscription(sub *models.Subscription) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub.CreatedAt = time.Now()
	m.subscriptions = append(m.subscriptions, sub)
	return sub, nil
}

// GetSubscriptionsByMember is used by tests to inspect settlement results.
func (m *MemoryStore) GetSubscriptionsByMember(memberID string) []*models.Subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var subs []*models.Subscription
	for _, sub := range m.subscriptions {
		if sub.MemberID == memberID {
			subs = append(subs, sub)
		}
	}
	return subs
}

func (m *MemoryStore) CreateMember(member *models.Member) (*models.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.members[member.MemberID] = member
	return member, nil
}

func (m *MemoryStore) GetMember(memberID string) (*models.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	member, exists := m.members[memberID]
	if !exists {
		return nil, ErrNotFound
	}
	return member, nil
}

func (m *MemoryStore) UpdateMember(member *models.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.members[member.MemberID]; !exists {
		return ErrNotFound
	}
	m.members[member.MemberID] = member
	return nil
}

// Legal service operations

func (m *MemoryStore) CreateLegalService(service *models.LegalService) (*models.LegalService, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.services[service.ServiceID] = service
	return service, nil
}

func (m *MemoryStore) GetLegalService(serviceID string) (*models.LegalService, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	service, exists := m.services[serviceID]
	if !exists {
		return nil, ErrNotFound
	}
	return service, nil
}

func (m *MemoryStore) CreateServiceCategory(category *models.ServiceCategory) (*models.ServiceCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.categories[category.CategoryID] = category
	return category, nil
}

func (m *MemoryStore) GetServiceCategory(categoryID string) (*models.ServiceCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	category, exists := m.categories[categoryID]
	if !exists {
		return nil, ErrNotFound
	}
	return category, nil
}

// Notification operations

func (m *MemoryStore) CreateNotification(notification *models.Notification) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if notification.NotificationID == "" {
		notification.NotificationID = uuid.NewString()
	}
	notification.CreatedAt = time.Now()
	m.notifications = append(m.notifications, notification)
	return notification, nil
}

func (m *MemoryStore) GetPendingNotifications(limit int) ([]*models.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pending []*models.Notification
	for _, n := range m.notifications {
		if n.Status == models.NotificationStatusPending {
			pending = append(pending, n)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].Priority != pending[j].Priority {
			return pending[i].Priority == models.NotificationPriorityHigh
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (m *MemoryStore) UpdateNotification(notification *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.notifications {
		if existing.NotificationID == notification.NotificationID {
			m.notifications[i] = notification
			return nil
		}
	}
	return ErrNotFound
}

// GetNotificationsByRecipient is used by tests to inspect fan-out results.
func (m *MemoryStore) GetNotificationsByRecipient(recipientID string) []*models.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Notification
	for _, n := range m.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out
}

// GetOTPsByPhone is used by tests to inspect supersession results.
func (m *MemoryStore) GetOTPsByPhone(phone, purpose string) []*models.OTP {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.OTP
	for _, otp := range m.otps {
		if otp.Phone == phone && strings.EqualFold(otp.Purpose, purpose) {
			out = append(out, otp)
		}
	}
	return out
}

// Sequence operations

func (m *MemoryStore) NextSequenceValue(code string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sequences[code]++
	return m.sequences[code], nil
}
