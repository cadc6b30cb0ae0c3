// Package ratelimit gates OTP issuance/verification and chat traffic with
// per-key sliding windows, plus an explicit phone deny-list that overrides
// the window counters.
package ratelimit

import (
	"time"
)

// Config defines one limiter policy.
type Config struct {
	// MaxAttempts is the maximum number of actions allowed within the window
	MaxAttempts int
	// Window is the time window for rate limiting
	Window time.Duration
}

// Result reports the outcome of a limiter check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter tracks attempt counts per key and explicit blocks. Exceeding a
// limit is a normal outcome, never an error.
type Limiter interface {
	// Check records one action for key and reports whether it is allowed.
	Check(key string) Result
	// Block denies all actions for key until the duration elapses,
	// independent of the window counter.
	Block(key string, duration time.Duration)
	// IsBlocked reports whether key is currently blocked and until when.
	IsBlocked(key string) (bool, time.Time)
}

// Pre-configured policies for the OTP and chat endpoints.
var (
	// OTPSendConfig limits OTP issuance to 3 per hour per phone
	OTPSendConfig = Config{MaxAttempts: 3, Window: time.Hour}
	// OTPVerifyConfig limits verification attempts to 5 per 10 minutes per phone
	OTPVerifyConfig = Config{MaxAttempts: 5, Window: 10 * time.Minute}
	// ChatConfig limits chat requests to 30 per minute per user
	ChatConfig = Config{MaxAttempts: 30, Window: time.Minute}
)
