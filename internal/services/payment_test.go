package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mashora/mashora-backend/internal/gateway"
	"github.com/mashora/mashora-backend/internal/models"
	"github.com/mashora/mashora-backend/internal/storage"
)

// fakeGateway serves scripted payment objects by id.
type fakeGateway struct {
	payments map[string]*gateway.Payment
	err      error
	fetches  int
}

func (f *fakeGateway) FetchPayment(paymentID string) (*gateway.Payment, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	payment, ok := f.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("payment %s not found at gateway", paymentID)
	}
	return payment, nil
}

func newPaymentFixture() (*PaymentService, *storage.MemoryStore, *fakeGateway) {
	store := storage.NewMemoryStore()
	gw := &fakeGateway{payments: make(map[string]*gateway.Payment)}
	settlement := NewSettlementService(store, NewStoreSequenceGenerator(store), NewNotifier(store))
	settlement.SetClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })
	return NewPaymentService(store, gw, settlement), store, gw
}

func TestVerifyGatewayPayment(t *testing.T) {
	t.Run("paid with matching amount is valid", func(t *testing.T) {
		valid, reason := VerifyGatewayPayment(paidPayment("pay_001", 11500), 11500)
		assert.True(t, valid)
		assert.Empty(t, reason)
	})

	t.Run("non-paid status is rejected", func(t *testing.T) {
		for _, status := range []string{"initiated", "failed", "authorized", "refunded", ""} {
			payment := paidPayment("pay_001", 11500)
			payment.Status = status

			valid, reason := VerifyGatewayPayment(payment, 11500)
			assert.False(t, valid, "status %q must not verify", status)
			assert.Contains(t, reason, ReasonStatusMismatch)
		}
	})

	t.Run("amount mismatch is rejected", func(t *testing.T) {
		valid, reason := VerifyGatewayPayment(paidPayment("pay_001", 11400), 11500)
		assert.False(t, valid)
		assert.Contains(t, reason, ReasonAmountMismatch)
	})

	t.Run("status is checked before amount", func(t *testing.T) {
		payment := paidPayment("pay_001", 11400)
		payment.Status = "failed"

		_, reason := VerifyGatewayPayment(payment, 11500)
		assert.Contains(t, reason, ReasonStatusMismatch)
	})
}

func TestVerifyAndSettle(t *testing.T) {
	t.Run("valid subscription payment settles", func(t *testing.T) {
		svc, store, gw := newPaymentFixture()
		gw.payments["pay_001"] = paidPayment("pay_001", 500000)
		_, err := store.CreateMember(&models.Member{MemberID: "MEM001"})
		require.NoError(t, err)
		_, err = store.CreatePackage(&models.Package{PackageID: "PKG001", DurationDays: 365})
		require.NoError(t, err)

		outcome, err := svc.VerifyAndSettle(VerifyInput{
			PaymentID:      "pay_001",
			ExpectedAmount: 500000,
			PaymentType:    models.PaymentTypeSubscription,
			MemberID:       "MEM001",
			PackageID:      "PKG001",
		})
		require.NoError(t, err)
		assert.True(t, outcome.Valid)
		require.NotNil(t, outcome.Settlement)
		assert.False(t, outcome.Settlement.AlreadyProcessed)
	})

	t.Run("invalid payment records a failed audit row", func(t *testing.T) {
		svc, store, gw := newPaymentFixture()
		payment := paidPayment("pay_002", 11400)
		payment.Status = "failed"
		gw.payments["pay_002"] = payment

		outcome, err := svc.VerifyAndSettle(VerifyInput{
			PaymentID:      "pay_002",
			ExpectedAmount: 11500,
			PaymentType:    models.PaymentTypeSubscription,
			MemberID:       "MEM001",
			PackageID:      "PKG001",
		})
		require.NoError(t, err)
		assert.False(t, outcome.Valid)
		assert.Contains(t, outcome.Reason, ReasonStatusMismatch)

		row, err := store.GetPaymentByGatewayID("pay_002")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusFailed, row.Status)

		_, err = store.GetCompletedPaymentByGatewayID("pay_002")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("failed audit row does not block later settlement", func(t *testing.T) {
		svc, store, gw := newPaymentFixture()
		payment := paidPayment("pay_003", 500000)
		payment.Status = "initiated"
		gw.payments["pay_003"] = payment
		_, err := store.CreateMember(&models.Member{MemberID: "MEM001"})
		require.NoError(t, err)
		_, err = store.CreatePackage(&models.Package{PackageID: "PKG001", DurationDays: 365})
		require.NoError(t, err)

		input := VerifyInput{
			PaymentID:      "pay_003",
			ExpectedAmount: 500000,
			PaymentType:    models.PaymentTypeSubscription,
			MemberID:       "MEM001",
			PackageID:      "PKG001",
		}

		outcome, err := svc.VerifyAndSettle(input)
		require.NoError(t, err)
		require.False(t, outcome.Valid)

		// The customer completes the 3DS flow; the gateway now reports paid
		payment.Status = gateway.PaymentStatusPaid

		outcome, err = svc.VerifyAndSettle(input)
		require.NoError(t, err)
		assert.True(t, outcome.Valid)
		require.NotNil(t, outcome.Settlement)
	})

	t.Run("gateway failure surfaces as an error", func(t *testing.T) {
		svc, _, gw := newPaymentFixture()
		gw.err = errors.New("connection refused")

		_, err := svc.VerifyAndSettle(VerifyInput{
			PaymentID:      "pay_004",
			ExpectedAmount: 11500,
			PaymentType:    models.PaymentTypeSubscription,
			MemberID:       "MEM001",
			PackageID:      "PKG001",
		})
		assert.Error(t, err)
	})

	t.Run("unknown payment type is rejected", func(t *testing.T) {
		svc, _, gw := newPaymentFixture()
		gw.payments["pay_005"] = paidPayment("pay_005", 11500)

		_, err := svc.VerifyAndSettle(VerifyInput{
			PaymentID:      "pay_005",
			ExpectedAmount: 11500,
			PaymentType:    "donation",
			MemberID:       "MEM001",
		})
		assert.Error(t, err)
	})
}

func TestProcessWebhook(t *testing.T) {
	t.Run("payment_paid settles from gateway metadata", func(t *testing.T) {
		svc, store, gw := newPaymentFixture()
		payment := paidPayment("pay_100", 500000)
		payment.Metadata = map[string]string{
			"payment_type": models.PaymentTypeSubscription,
			"member_id":    "MEM001",
			"package_id":   "PKG001",
		}
		gw.payments["pay_100"] = payment
		_, err := store.CreateMember(&models.Member{MemberID: "MEM001"})
		require.NoError(t, err)
		_, err = store.CreatePackage(&models.Package{PackageID: "PKG001", DurationDays: 365})
		require.NoError(t, err)

		err = svc.ProcessWebhook(&WebhookEvent{
			Type: "payment_paid",
			Data: gateway.Payment{ID: "pay_100"},
		})
		require.NoError(t, err)

		// Settlement works off the re-fetched payment, not the webhook body
		assert.Equal(t, 1, gw.fetches)
		_, err = store.GetCompletedPaymentByGatewayID("pay_100")
		assert.NoError(t, err)
		assert.Len(t, store.GetSubscriptionsByMember("MEM001"), 1)
	})

	t.Run("duplicate payment_paid delivery is idempotent", func(t *testing.T) {
		svc, store, gw := newPaymentFixture()
		payment := paidPayment("pay_101", 500000)
		payment.Metadata = map[string]string{
			"payment_type": models.PaymentTypeSubscription,
			"member_id":    "MEM001",
			"package_id":   "PKG001",
		}
		gw.payments["pay_101"] = payment
		_, err := store.CreateMember(&models.Member{MemberID: "MEM001"})
		require.NoError(t, err)
		_, err = store.CreatePackage(&models.Package{PackageID: "PKG001", DurationDays: 365})
		require.NoError(t, err)

		event := &WebhookEvent{Type: "payment_paid", Data: gateway.Payment{ID: "pay_101"}}
		require.NoError(t, svc.ProcessWebhook(event))
		require.NoError(t, svc.ProcessWebhook(event))

		assert.Len(t, store.GetSubscriptionsByMember("MEM001"), 1)
	})

	t.Run("payment_refunded flips the settled row once", func(t *testing.T) {
		svc, store, gw := newPaymentFixture()
		payment := paidPayment("pay_102", 500000)
		payment.Metadata = map[string]string{
			"payment_type": models.PaymentTypeSubscription,
			"member_id":    "MEM001",
			"package_id":   "PKG001",
		}
		gw.payments["pay_102"] = payment
		_, err := store.CreateMember(&models.Member{MemberID: "MEM001"})
		require.NoError(t, err)
		_, err = store.CreatePackage(&models.Package{PackageID: "PKG001", DurationDays: 365})
		require.NoError(t, err)
		require.NoError(t, svc.ProcessWebhook(&WebhookEvent{Type: "payment_paid", Data: gateway.Payment{ID: "pay_102"}}))

		refund := &WebhookEvent{Type: "payment_refunded", Data: gateway.Payment{ID: "pay_102"}}
		require.NoError(t, svc.ProcessWebhook(refund))

		row, err := store.GetPaymentByGatewayID("pay_102")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusRefunded, row.Status)

		// Repeated delivery is a no-op
		require.NoError(t, svc.ProcessWebhook(refund))
	})

	t.Run("refund for unknown payment is ignored", func(t *testing.T) {
		svc, _, _ := newPaymentFixture()

		err := svc.ProcessWebhook(&WebhookEvent{Type: "payment_refunded", Data: gateway.Payment{ID: "pay_404"}})
		assert.NoError(t, err)
	})

	t.Run("payment_failed and unknown events are acknowledged", func(t *testing.T) {
		svc, _, gw := newPaymentFixture()

		assert.NoError(t, svc.ProcessWebhook(&WebhookEvent{Type: "payment_failed", Data: gateway.Payment{ID: "pay_x"}}))
		assert.NoError(t, svc.ProcessWebhook(&WebhookEvent{Type: "payment_voided", Data: gateway.Payment{ID: "pay_x"}}))
		assert.Zero(t, gw.fetches, "no gateway fetch for non-paid events")
	})

	t.Run("unpaid webhook payment is not settled", func(t *testing.T) {
		svc, store, gw := newPaymentFixture()
		payment := paidPayment("pay_103", 500000)
		payment.Status = "initiated"
		gw.payments["pay_103"] = payment

		err := svc.ProcessWebhook(&WebhookEvent{Type: "payment_paid", Data: gateway.Payment{ID: "pay_103"}})
		assert.Error(t, err)

		_, err = store.GetPaymentByGatewayID("pay_103")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}
