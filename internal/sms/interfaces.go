package sms

// Sender delivers a plaintext verification code to a phone number. The code
// is handed over exactly once at issuance and never persisted in plaintext.
type Sender interface {
	SendVerificationCode(phone, code string) error
}
