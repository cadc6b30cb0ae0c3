package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/mashora/mashora-backend/internal/gateway"
	"github.com/mashora/mashora-backend/internal/middleware"
	"github.com/mashora/mashora-backend/internal/ratelimit"
	"github.com/mashora/mashora-backend/internal/services"
	"github.com/mashora/mashora-backend/internal/storage"
)

// stubGateway serves scripted payments to handler tests.
type stubGateway struct {
	payments map[string]*gateway.Payment
}

func (s *stubGateway) FetchPayment(paymentID string) (*gateway.Payment, error) {
	payment, ok := s.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("payment %s not found at gateway", paymentID)
	}
	return payment, nil
}

type testEnv struct {
	app    *fiber.App
	store  *storage.MemoryStore
	gw     *stubGateway
	tokens *services.TokenService
}

// newTestEnv wires the full handler stack against the in-memory store, with
// OTP delivery going to the dev sink.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := storage.NewMemoryStore()
	gw := &stubGateway{payments: make(map[string]*gateway.Payment)}

	sendLimiter := ratelimit.NewMemoryLimiter(ratelimit.OTPSendConfig)
	verifyLimiter := ratelimit.NewMemoryLimiter(ratelimit.OTPVerifyConfig)

	router := services.NewDeliveryRouter(nil, false)
	otpService := services.NewOTPService(store, router, sendLimiter, verifyLimiter)
	tokens := services.NewTokenService("test-secret")
	notifier := services.NewNotifier(store)
	settlement := services.NewSettlementService(store, services.NewStoreSequenceGenerator(store), notifier)
	paymentService := services.NewPaymentService(store, gw, settlement)
	assignmentService := services.NewAssignmentService(store, notifier)

	app := fiber.New()

	otpHandler := NewOTPHandler(otpService, tokens)
	paymentHandler := NewPaymentHandler(paymentService)
	distributionHandler := NewDistributionHandler(assignmentService)

	api := app.Group("/api")
	api.Post("/otp/send", otpHandler.SendOTP)
	api.Post("/otp/verify", otpHandler.VerifyOTP)
	api.Post("/payments/verify", paymentHandler.VerifyPayment)
	requests := api.Group("/requests", middleware.RequireAuth(tokens))
	requests.Post("/:id/distribute", distributionHandler.DistributeRequest)
	app.Post("/webhook/payments", middleware.WebhookAlwaysOK(), paymentHandler.HandleWebhook)

	return &testEnv{app: app, store: store, gw: gw, tokens: tokens}
}

func (e *testEnv) post(t *testing.T, path string, body interface{}, headers map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(http.MethodPost, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := e.app.Test(req, int(5*time.Second/time.Millisecond))
	require.NoError(t, err)

	payload := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload))
	}
	return resp, payload
}
