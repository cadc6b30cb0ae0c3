package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateSecureOTP generates a cryptographically secure 6-digit OTP
func GenerateSecureOTP() (string, error) {
	// Uniform in [100000, 999999] so the code is always 6 digits
	span := big.NewInt(900000)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}

	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// GenerateTicketNumber generates a unique ticket number for service requests
func GenerateTicketNumber(prefix string) string {
	max := big.NewInt(999999)
	n, _ := rand.Int(rand.Reader, max)

	// Timestamp + random for uniqueness
	return fmt.Sprintf("%s%d%06d", prefix, time.Now().Unix(), n.Int64())
}
