// Package gateway is a minimal client for the Moyasar-style payment API the
// platform settles against. Amounts are in the smallest currency unit
// (halalas for SAR).
package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// PaymentStatusPaid is the gateway's terminal success status.
const PaymentStatusPaid = "paid"

// Source describes the payment instrument as reported by the gateway.
type Source struct {
	Company  string `json:"company"`
	LastFour string `json:"last_four"`
	Message  string `json:"message"`
}

// Payment is a payment object fetched from the gateway.
type Payment struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"`
	Amount   int               `json:"amount"` // smallest currency unit
	Currency string            `json:"currency"`
	Refunded int               `json:"refunded"`
	Source   Source            `json:"source"`
	Metadata map[string]string `json:"metadata"`
}

// Client fetches payment objects from the gateway REST API.
type Client interface {
	FetchPayment(paymentID string) (*Payment, error)
}

// HTTPClient is the production gateway client.
type HTTPClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClientFromEnv builds a gateway client from PAYMENT_GATEWAY_API_KEY and
// PAYMENT_GATEWAY_URL. Returns an error when the API key is missing.
func NewClientFromEnv() (*HTTPClient, error) {
	apiKey := os.Getenv("PAYMENT_GATEWAY_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing PAYMENT_GATEWAY_API_KEY in environment variables")
	}

	baseURL := os.Getenv("PAYMENT_GATEWAY_URL")
	if baseURL == "" {
		baseURL = "https://api.moyasar.com/v1"
	}

	return NewHTTPClient(apiKey, baseURL), nil
}

// NewHTTPClient creates a gateway client against the given base URL
func NewHTTPClient(apiKey, baseURL string) *HTTPClient {
	return &HTTPClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		// Gateway calls must be bounded; a timeout is a verification
		// failure, never success-by-default.
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchPayment retrieves a payment object by its gateway id
func (c *HTTPClient) FetchPayment(paymentID string) (*Payment, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/payments/%s", c.baseURL, paymentID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("payment %s not found at gateway", paymentID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	var payment Payment
	if err := json.Unmarshal(body, &payment); err != nil {
		return nil, fmt.Errorf("failed to parse gateway response: %w", err)
	}

	return &payment, nil
}
