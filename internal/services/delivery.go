package services

import (
	"fmt"
	"log"

	"github.com/mashora/mashora-backend/internal/models"
)

// DeliveryResult reports the outcome of one code dispatch.
type DeliveryResult struct {
	Success   bool
	Channel   string // channel actually used (may fall back to dev)
	MessageID string
	Err       error
}

// CodeSender dispatches a verification code over a channel.
type CodeSender interface {
	Send(to, code, purpose, channel string) DeliveryResult
}

// DeliveryRouter routes verification codes to sms/whatsapp/dev. When a
// provider channel is selected but Twilio is not configured, the router
// falls back to the dev sink and reports success so issuance is never
// blocked in non-production environments. Strict mode turns that case into
// a delivery failure instead, so a misconfigured deployment cannot fail
// silently.
type DeliveryRouter struct {
	twilio *TwilioService
	strict bool
}

// NewDeliveryRouter creates a delivery router. twilio may be nil when no
// provider credentials are configured.
func NewDeliveryRouter(twilio *TwilioService, strict bool) *DeliveryRouter {
	return &DeliveryRouter{twilio: twilio, strict: strict}
}

// Send dispatches a verification code and reports the channel used
func (r *DeliveryRouter) Send(to, code, purpose, channel string) DeliveryResult {
	switch channel {
	case models.OTPChannelDev:
		return r.sendDev(to, code, purpose)

	case models.OTPChannelSMS:
		if !r.twilio.CanSendSMS() {
			return r.fallback(to, code, purpose, channel)
		}
		sid, err := r.twilio.SendSMS(to, codeMessage(code))
		if err != nil {
			return DeliveryResult{Success: false, Channel: channel, Err: fmt.Errorf("sms delivery failed: %w", err)}
		}
		return DeliveryResult{Success: true, Channel: channel, MessageID: sid}

	case models.OTPChannelWhatsApp:
		if !r.twilio.CanSendWhatsApp() {
			return r.fallback(to, code, purpose, channel)
		}
		sid, err := r.twilio.SendWhatsAppMessage(to, codeMessage(code))
		if err != nil {
			return DeliveryResult{Success: false, Channel: channel, Err: fmt.Errorf("whatsapp delivery failed: %w", err)}
		}
		return DeliveryResult{Success: true, Channel: channel, MessageID: sid}

	default:
		return DeliveryResult{Success: false, Channel: channel, Err: fmt.Errorf("unknown delivery channel: %s", channel)}
	}
}

// sendDev emits the code to the log only. Always succeeds.
func (r *DeliveryRouter) sendDev(to, code, purpose string) DeliveryResult {
	log.Printf("📨 [dev] OTP for %s (%s): %s", to, purpose, code)
	return DeliveryResult{Success: true, Channel: models.OTPChannelDev}
}

func (r *DeliveryRouter) fallback(to, code, purpose, requested string) DeliveryResult {
	if r.strict {
		return DeliveryResult{
			Success: false,
			Channel: requested,
			Err:     fmt.Errorf("%s channel selected but provider is not configured", requested),
		}
	}
	log.Printf("⚠️  %s provider not configured - falling back to dev sink", requested)
	return r.sendDev(to, code, purpose)
}

func codeMessage(code string) string {
	return fmt.Sprintf("Your Mashora verification code is %s. It expires in 5 minutes. Do not share it with anyone.", code)
}
