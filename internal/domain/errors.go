package domain

import (
	"errors"
	"fmt"
)

// State-machine precondition failures. Handlers map these to 400 responses.
var (
	ErrNoPendingCode = errors.New("no pending code for this phone")
	ErrInvalidCode   = errors.New("invalid code")
	ErrNotVerified   = errors.New("phone not verified")
)

// ErrCooldownActive is returned by the verification store when an upsert is
// rejected because the resend cooldown has not elapsed yet.
var ErrCooldownActive = errors.New("resend cooldown active")

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// RateLimitError carries the remaining wait before the caller may request
// another code. WaitSeconds is always positive while the limit holds.
type RateLimitError struct {
	WaitSeconds int64
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many requests, retry in %d seconds", e.WaitSeconds)
}
