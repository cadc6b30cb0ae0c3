package services

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel and typed errors shared by the verification, assignment, and
// settlement flows. Handlers map these onto HTTP statuses.

var (
	// ErrNoValidCode is returned when no pending, unexpired code exists
	// for the (phone, purpose) pair.
	ErrNoValidCode = errors.New("no valid verification code")
	// ErrTooManyAttempts is returned when the attempt budget is exhausted.
	ErrTooManyAttempts = errors.New("too many verification attempts")
	// ErrNoCandidates is returned when no lawyer is eligible for
	// assignment; the request must be escalated to a manager.
	ErrNoCandidates = errors.New("no eligible lawyers available, escalate to manager")
)

// RateLimitError reports a window limit exceeded; recoverable by waiting.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// BlockedError reports an explicit phone block.
type BlockedError struct {
	Until time.Time
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("phone temporarily blocked until %s", e.Until.Format(time.RFC3339))
}

// CodeMismatchError reports a wrong code with the remaining attempt budget.
type CodeMismatchError struct {
	Remaining int
}

func (e *CodeMismatchError) Error() string {
	return fmt.Sprintf("invalid verification code, %d attempts remaining", e.Remaining)
}

// DeliveryError reports a provider failure. The issued record stays valid
// for its natural lifetime, so re-issuing is safe (the record is superseded).
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
