package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// VerificationAttempt is the per-phone verification ledger row. There is at
// most one row per phone number; every code issuance overwrites it.
type VerificationAttempt struct {
	Phone      string    `json:"phone"`
	CodeHash   string    `json:"-"`
	LastSentAt time.Time `json:"last_sent_at"`
	Verified   bool      `json:"verified"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Account maps a verified phone number to its password hash.
type Account struct {
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type IssueCodeRequest struct {
	Phone string `json:"phone"`
}

type ConfirmCodeRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type CommitPasswordRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

var codePattern = regexp.MustCompile(`^\d{6}$`)

// Validation methods
func (r *IssueCodeRequest) Validate() error {
	if r.Phone == "" {
		return &ValidationError{Reason: "phone is required"}
	}
	if !isValidPhoneFormat(r.Phone) {
		return &ValidationError{Reason: "invalid phone format"}
	}
	return nil
}

func (r *ConfirmCodeRequest) Validate() error {
	if r.Phone == "" {
		return &ValidationError{Reason: "phone is required"}
	}
	if r.Code == "" {
		return &ValidationError{Reason: "code is required"}
	}
	if !codePattern.MatchString(r.Code) {
		return &ValidationError{Reason: "code must be 6 digits"}
	}
	return nil
}

func (r *CommitPasswordRequest) Validate() error {
	if r.Phone == "" {
		return &ValidationError{Reason: "phone is required"}
	}
	if r.Password == "" {
		return &ValidationError{Reason: "password is required"}
	}
	return nil
}

// Normalize methods
func (r *IssueCodeRequest) Normalize() {
	r.Phone = NormalizePhone(r.Phone)
}

func (r *ConfirmCodeRequest) Normalize() {
	r.Phone = NormalizePhone(r.Phone)
	r.Code = strings.TrimSpace(r.Code)
}

func (r *CommitPasswordRequest) Normalize() {
	// The password is taken as-is; only the phone is normalized.
	r.Phone = NormalizePhone(r.Phone)
}

// NormalizePhone strips everything except digits and a leading +.
func NormalizePhone(phone string) string {
	cleaned := strings.TrimSpace(phone)
	if cleaned == "" {
		return ""
	}

	var result strings.Builder
	for i, r := range cleaned {
		if i == 0 && r == '+' {
			result.WriteRune(r)
		} else if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}

func isValidPhoneFormat(phone string) bool {
	digits := strings.TrimPrefix(phone, "+")
	return len(digits) >= 7
}

// Constants
const (
	// CodeMin and CodeMax bound the 6-digit verification code range.
	CodeMin = 100000
	CodeMax = 999999
)

// Business logic methods
func (v *VerificationAttempt) HasPendingCode() bool {
	return v.CodeHash != ""
}

// CooldownRemaining reports how long this phone has to wait before the next
// code issuance. Zero when the cooldown has already elapsed.
func (v *VerificationAttempt) CooldownRemaining(window time.Duration, now time.Time) time.Duration {
	remaining := window - now.Sub(v.LastSentAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (v *VerificationAttempt) String() string {
	return fmt.Sprintf("VerificationAttempt{phone=%s verified=%t last_sent=%s}",
		v.Phone, v.Verified, v.LastSentAt.Format(time.RFC3339))
}
