package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/mashora/mashora-backend/internal/gateway"
	"github.com/mashora/mashora-backend/internal/models"
	"github.com/mashora/mashora-backend/internal/storage"
)

// Verification failure reasons.
const (
	ReasonStatusMismatch = "status_mismatch"
	ReasonAmountMismatch = "amount_mismatch"
)

// Domain errors for the settlement branches.
var (
	ErrPackageNotFound = errors.New("package not found")
	ErrServiceNotFound = errors.New("service not found")
)

// VerifyGatewayPayment validates a fetched gateway payment against the
// amount expected in the smallest currency unit. Pure; no I/O.
func VerifyGatewayPayment(p *gateway.Payment, expectedAmount int) (bool, string) {
	if p.Status != gateway.PaymentStatusPaid {
		return false, fmt.Sprintf("%s: expected paid, got %s", ReasonStatusMismatch, p.Status)
	}
	if p.Amount != expectedAmount {
		return false, fmt.Sprintf("%s: expected %d, got %d", ReasonAmountMismatch, expectedAmount, p.Amount)
	}
	return true, ""
}

// PaymentService ties the gateway client, the verifier, and the settlement
// processor together. Both the synchronous verify endpoint and the webhook
// feed into the same idempotent settlement keyed by gateway payment id.
type PaymentService struct {
	store      storage.Store
	gateway    gateway.Client
	settlement *SettlementService
}

// NewPaymentService creates a new payment service
func NewPaymentService(store storage.Store, gw gateway.Client, settlement *SettlementService) *PaymentService {
	return &PaymentService{
		store:      store,
		gateway:    gw,
		settlement: settlement,
	}
}

// VerifyInput is the synchronous verification request.
type VerifyInput struct {
	PaymentID      string `json:"payment_id"`
	ExpectedAmount int    `json:"expected_amount"` // smallest currency unit
	PaymentType    string `json:"payment_type"`
	MemberID       string `json:"member_id"`
	PackageID      string `json:"package_id"`
	ServiceID      string `json:"service_id"`
}

// VerifyOutcome reports a verification failure reason or the settlement
// result.
type VerifyOutcome struct {
	Valid      bool              `json:"valid"`
	Reason     string            `json:"reason,omitempty"`
	Settlement *SettlementResult `json:"settlement,omitempty"`
}

// VerifyAndSettle fetches the payment from the gateway, validates it, and
// settles it. An invalid payment is recorded as a failed row for audit.
func (p *PaymentService) VerifyAndSettle(input VerifyInput) (*VerifyOutcome, error) {
	payment, err := p.gateway.FetchPayment(input.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("gateway fetch failed: %w", err)
	}

	valid, reason := VerifyGatewayPayment(payment, input.ExpectedAmount)
	if !valid {
		p.recordFailedVerification(payment, input.MemberID, input.PaymentType, reason)
		return &VerifyOutcome{Valid: false, Reason: reason}, nil
	}

	result, err := p.settle(payment, input.PaymentType, input.MemberID, input.PackageID, input.ServiceID)
	if err != nil {
		return nil, err
	}
	return &VerifyOutcome{Valid: true, Settlement: result}, nil
}

// WebhookEvent is the gateway's webhook envelope.
type WebhookEvent struct {
	SecretToken string          `json:"secret_token"`
	Type        string          `json:"type"`
	Data        gateway.Payment `json:"data"`
}

// ProcessWebhook handles a gateway event. Errors are returned for logging
// only; the webhook endpoint always responds 200 to prevent retry storms.
func (p *PaymentService) ProcessWebhook(event *WebhookEvent) error {
	log.Printf("Processing payment webhook: %s (%s)", event.Type, event.Data.ID)

	switch event.Type {
	case "payment_paid":
		return p.handlePaymentPaid(event.Data.ID)
	case "payment_refunded":
		return p.handlePaymentRefunded(event.Data.ID)
	case "payment_failed":
		log.Printf("Payment failed at gateway: %s - %s", event.Data.ID, event.Data.Source.Message)
		return nil
	default:
		log.Printf("Unhandled webhook event: %s", event.Type)
		return nil
	}
}

// handlePaymentPaid settles a webhook-delivered payment. The payment is
// re-fetched from the gateway so settlement works off the source of truth,
// not the webhook body; the settlement parameters ride in the gateway
// metadata attached at checkout time.
func (p *PaymentService) handlePaymentPaid(paymentID string) error {
	payment, err := p.gateway.FetchPayment(paymentID)
	if err != nil {
		return fmt.Errorf("gateway fetch failed for webhook payment %s: %v", paymentID, err)
	}

	valid, reason := VerifyGatewayPayment(payment, payment.Amount)
	if !valid {
		// Amount always matches itself here, so this is a status problem
		return fmt.Errorf("webhook payment %s not settleable: %s", paymentID, reason)
	}

	meta := payment.Metadata
	result, err := p.settle(payment, meta["payment_type"], meta["member_id"], meta["package_id"], meta["service_id"])
	if err != nil {
		return err
	}
	if result.AlreadyProcessed {
		log.Printf("Webhook payment %s already processed - skipping", paymentID)
	}
	return nil
}

// handlePaymentRefunded marks the settled payment refunded. Idempotent
// against repeated webhook delivery.
func (p *PaymentService) handlePaymentRefunded(paymentID string) error {
	payment, err := p.store.GetPaymentByGatewayID(paymentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Printf("Refund webhook for unknown payment %s - ignoring", paymentID)
			return nil
		}
		return err
	}
	if payment.Status == models.PaymentStatusRefunded {
		return nil
	}
	payment.Status = models.PaymentStatusRefunded
	if err := p.store.UpdatePayment(payment); err != nil {
		return fmt.Errorf("failed to mark payment %s refunded: %w", paymentID, err)
	}
	log.Printf("💸 Payment %s marked refunded", paymentID)
	return nil
}

func (p *PaymentService) settle(payment *gateway.Payment, paymentType, memberID, packageID, serviceID string) (*SettlementResult, error) {
	switch paymentType {
	case models.PaymentTypeSubscription:
		return p.settlement.SettleSubscription(payment, memberID, packageID)
	case models.PaymentTypeExtraService:
		return p.settlement.SettleExtraService(payment, memberID, serviceID)
	default:
		return nil, fmt.Errorf("unknown payment type: %q", paymentType)
	}
}

// recordFailedVerification writes an audit row. Best-effort.
func (p *PaymentService) recordFailedVerification(payment *gateway.Payment, memberID, paymentType, reason string) {
	metadata, _ := json.Marshal(map[string]interface{}{
		"reason":   reason,
		"status":   payment.Status,
		"amount":   payment.Amount,
		"company":  payment.Source.Company,
		"message":  payment.Source.Message,
		"currency": payment.Currency,
	})

	_, err := p.store.CreatePayment(&models.Payment{
		PaymentReference: payment.ID,
		GatewayPaymentID: payment.ID,
		MemberID:         memberID,
		Amount:           float64(payment.Amount) / 100,
		Currency:         payment.Currency,
		PaymentMethod:    payment.Source.Company,
		PaymentType:      paymentType,
		Status:           models.PaymentStatusFailed,
		Metadata:         string(metadata),
	})
	if err != nil {
		log.Printf("Failed to record failed verification for %s: %v", payment.ID, err)
	}
}
