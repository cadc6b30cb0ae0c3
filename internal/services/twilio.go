package services

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

var twilioServiceInstance *TwilioService

// SetTwilioService sets the global Twilio service instance (call from main.go)
func SetTwilioService(t *TwilioService) {
	twilioServiceInstance = t
}

// GetTwilioService returns the global Twilio service instance
func GetTwilioService() *TwilioService {
	return twilioServiceInstance
}

// TwilioService sends SMS and WhatsApp messages via Twilio
type TwilioService struct {
	client       *twilio.RestClient
	smsFrom      string
	whatsappFrom string // Format: "whatsapp:+14155238886"
}

// NewTwilioService creates a new Twilio service instance
func NewTwilioService() (*TwilioService, error) {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	smsFrom := os.Getenv("TWILIO_PHONE_NUMBER")
	whatsappFrom := os.Getenv("TWILIO_WHATSAPP_FROM")

	if accountSid == "" || authToken == "" {
		return nil, fmt.Errorf("missing Twilio credentials in environment variables")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})
	// Provider calls must be bounded; a timeout surfaces as a delivery failure
	client.SetTimeout(15 * time.Second)

	return &TwilioService{
		client:       client,
		smsFrom:      smsFrom,
		whatsappFrom: whatsappFrom,
	}, nil
}

// CanSendSMS reports whether the SMS sender number is configured.
func (t *TwilioService) CanSendSMS() bool {
	return t != nil && t.smsFrom != ""
}

// CanSendWhatsApp reports whether the WhatsApp sender is configured.
func (t *TwilioService) CanSendWhatsApp() bool {
	return t != nil && t.whatsappFrom != ""
}

// SendSMS sends a plain SMS via Twilio and returns the message SID
func (t *TwilioService) SendSMS(to string, message string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.smsFrom)
	params.SetTo(to)
	params.SetBody(message)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send SMS: %v", err)
		return "", err
	}

	log.Printf("✅ SMS sent! SID: %s", *resp.Sid)
	return *resp.Sid, nil
}

// SendWhatsAppMessage sends a WhatsApp message via Twilio and returns the message SID
func (t *TwilioService) SendWhatsAppMessage(to string, message string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.whatsappFrom)
	params.SetTo(fmt.Sprintf("whatsapp:%s", to))
	params.SetBody(message)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send WhatsApp message: %v", err)
		return "", err
	}

	log.Printf("✅ WhatsApp message sent! SID: %s", *resp.Sid)
	return *resp.Sid, nil
}
