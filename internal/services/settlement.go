package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/mashora/mashora-backend/internal/gateway"
	"github.com/mashora/mashora-backend/internal/models"
	"github.com/mashora/mashora-backend/internal/storage"
	"github.com/mashora/mashora-backend/internal/utils"
)

// SettlementService turns verified gateway payments into subscriptions or
// billable service requests, exactly once per gateway payment id.
type SettlementService struct {
	store    storage.Store
	seq      SequenceGenerator
	notifier *Notifier
	now      func() time.Time
}

// NewSettlementService creates a new settlement service
func NewSettlementService(store storage.Store, seq SequenceGenerator, notifier *Notifier) *SettlementService {
	return &SettlementService{
		store:    store,
		seq:      seq,
		notifier: notifier,
		now:      time.Now,
	}
}

// SetClock overrides the service clock (tests only).
func (s *SettlementService) SetClock(now func() time.Time) {
	s.now = now
}

// SettlementResult reports the outcome of a settlement.
type SettlementResult struct {
	AlreadyProcessed bool    `json:"already_processed"`
	PaymentReference string  `json:"payment_reference,omitempty"`
	RequestID        string  `json:"request_id,omitempty"`
	TicketNumber     string  `json:"ticket_number,omitempty"`
	VATAmount        float64 `json:"vat_amount,omitempty"`
	TotalAmount      float64 `json:"total_amount,omitempty"`
	EndDate          string  `json:"end_date,omitempty"`
}

// SettleSubscription persists the completed payment and activates the
// member's package. A duplicate gateway payment id short-circuits as an
// already-processed success with no further writes.
func (s *SettlementService) SettleSubscription(payment *gateway.Payment, memberID, packageID string) (*SettlementResult, error) {
	if existing, err := s.store.GetCompletedPaymentByGatewayID(payment.ID); err == nil {
		return &SettlementResult{AlreadyProcessed: true, PaymentReference: existing.PaymentReference}, nil
	}

	reference := s.paymentReference(payment)

	row, err := s.insertCompletedPayment(payment, reference, memberID, models.PaymentTypeSubscription, nil)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			// Lost the race to the other settlement path
			return &SettlementResult{AlreadyProcessed: true}, nil
		}
		return nil, fmt.Errorf("failed to persist payment: %w", err)
	}

	pkg, err := s.store.GetPackage(packageID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// The payment row stays for reconciliation; see error taxonomy
			log.Printf("⚠️  Payment %s settled but package %s not found - reconciliation required", payment.ID, packageID)
			return nil, ErrPackageNotFound
		}
		return nil, fmt.Errorf("package lookup failed: %w", err)
	}

	now := s.now()
	endDate := now.AddDate(0, 0, pkg.DurationDays)
	_, err = s.store.CreateSubscription(&models.Subscription{
		MemberID:               memberID,
		PackageID:              pkg.PackageID,
		Status:                 models.SubscriptionStatusActive,
		StartDate:              now,
		EndDate:                endDate,
		RemainingConsultations: pkg.ConsultationLimit,
		RemainingContracts:     pkg.ContractLimit,
		RemainingRequests:      pkg.RequestLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	member, err := s.store.GetMember(memberID)
	if err != nil {
		return nil, fmt.Errorf("member lookup failed: %w", err)
	}
	member.SubscriptionStatus = models.SubscriptionStatusActive
	member.CurrentPackageID = pkg.PackageID
	member.SubscriptionStart = &now
	member.SubscriptionEnd = &endDate
	if err := s.store.UpdateMember(member); err != nil {
		return nil, fmt.Errorf("failed to update member subscription fields: %w", err)
	}

	log.Printf("✅ Subscription settled: member %s package %s payment %s", memberID, pkg.PackageID, row.PaymentReference)
	return &SettlementResult{
		PaymentReference: row.PaymentReference,
		EndDate:          endDate.Format(time.RFC3339),
	}, nil
}

// SettleExtraService creates a billable service request from the payment
// and broadcasts it to every active legal-arm lawyer. Assignment happens
// later through the distribution flow, not here.
func (s *SettlementService) SettleExtraService(payment *gateway.Payment, memberID, serviceID string) (*SettlementResult, error) {
	if existing, err := s.store.GetCompletedPaymentByGatewayID(payment.ID); err == nil {
		return &SettlementResult{AlreadyProcessed: true, PaymentReference: existing.PaymentReference}, nil
	}

	service, err := s.store.GetLegalService(serviceID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("service lookup failed: %w", err)
	}

	categoryCode := ""
	if category, err := s.store.GetServiceCategory(service.CategoryID); err == nil {
		categoryCode = category.Code
	} else {
		log.Printf("Category %s lookup failed for service %s: %v", service.CategoryID, serviceID, err)
	}

	basePrice := service.BasePrice
	vatAmount := round2(basePrice * models.VATRate)
	totalAmount := round2(basePrice + vatAmount)

	now := s.now()
	slaDeadline := now.Add(models.SLAHours * time.Hour)
	ticketNumber := utils.GenerateTicketNumber("TKT")
	reference := s.paymentReference(payment)

	request, err := s.store.CreateServiceRequest(&models.ServiceRequest{
		TicketNumber: ticketNumber,
		MemberID:     memberID,
		ServiceID:    serviceID,
		CategoryCode: categoryCode,
		Title:        service.Name,
		Status:       models.RequestStatusPendingAssignment,
		BasePrice:    basePrice,
		VATAmount:    vatAmount,
		TotalAmount:  totalAmount,
		SLADeadline:  &slaDeadline,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create service request: %w", err)
	}

	if _, err := s.insertCompletedPayment(payment, reference, memberID, models.PaymentTypeExtraService, &request.RequestID); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return &SettlementResult{AlreadyProcessed: true}, nil
		}
		return nil, fmt.Errorf("failed to persist payment: %w", err)
	}

	s.broadcastNewRequest(request)

	log.Printf("✅ Extra service settled: request %s ticket %s total %.2f", request.RequestID, ticketNumber, totalAmount)
	return &SettlementResult{
		PaymentReference: reference,
		RequestID:        request.RequestID,
		TicketNumber:     ticketNumber,
		VATAmount:        vatAmount,
		TotalAmount:      totalAmount,
	}, nil
}

// broadcastNewRequest fans out a high-priority notification to every active
// legal-arm lawyer. Best-effort.
func (s *SettlementService) broadcastNewRequest(request *models.ServiceRequest) {
	lawyers, err := s.store.GetActiveLegalArmLawyers()
	if err != nil {
		log.Printf("Failed to load legal-arm lawyers for broadcast: %v", err)
		return
	}
	for _, lawyer := range lawyers {
		s.notifier.Enqueue(&models.Notification{
			RecipientID:   lawyer.LawyerID,
			RecipientType: "lawyer",
			Title:         "New paid service request",
			Body:          fmt.Sprintf("Request %s (%s) is awaiting assignment.", request.RequestID, request.Title),
			Priority:      models.NotificationPriorityHigh,
			ReferenceID:   request.RequestID,
		})
	}
}

// paymentReference asks the sequence generator for a reference and falls
// back to the gateway's own id when generation fails.
func (s *SettlementService) paymentReference(payment *gateway.Payment) string {
	reference, err := s.seq.Generate("PAY")
	if err != nil {
		log.Printf("Reference generation failed, using gateway id: %v", err)
		return payment.ID
	}
	return reference
}

func (s *SettlementService) insertCompletedPayment(payment *gateway.Payment, reference, memberID, paymentType string, requestID *string) (*models.Payment, error) {
	// Idempotency re-check as close to the write as possible; the partial
	// unique index on completed rows closes the residual race.
	if _, err := s.store.GetCompletedPaymentByGatewayID(payment.ID); err == nil {
		return nil, storage.ErrDuplicate
	}

	metadata, _ := json.Marshal(map[string]interface{}{
		"company":   payment.Source.Company,
		"last_four": payment.Source.LastFour,
		"message":   payment.Source.Message,
		"refunded":  payment.Refunded,
	})

	return s.store.CreatePayment(&models.Payment{
		PaymentReference: reference,
		GatewayPaymentID: payment.ID,
		MemberID:         memberID,
		Amount:           float64(payment.Amount) / 100,
		Currency:         payment.Currency,
		PaymentMethod:    payment.Source.Company,
		PaymentType:      paymentType,
		Status:           models.PaymentStatusCompleted,
		RequestID:        requestID,
		Metadata:         string(metadata),
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
