package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/verimobi/phone-verify/internal/domain"
	"github.com/verimobi/phone-verify/internal/hasher"
	"github.com/verimobi/phone-verify/internal/repository"
	"github.com/verimobi/phone-verify/internal/sms"
	"github.com/verimobi/phone-verify/pkg/config"
	"github.com/verimobi/phone-verify/pkg/events"
	"github.com/verimobi/phone-verify/pkg/logger"
)

// VerifyService drives the per-phone verification state machine:
// code issued -> code confirmed -> password committed.
type VerifyService interface {
	IssueCode(ctx context.Context, req *domain.IssueCodeRequest) error
	ConfirmCode(ctx context.Context, req *domain.ConfirmCodeRequest) error
	CommitPassword(ctx context.Context, req *domain.CommitPasswordRequest) error
}

type verifyService struct {
	verifyRepo  repository.VerifyRepository
	accountRepo repository.AccountRepository
	hasher      hasher.Hasher
	sender      sms.Sender
	eventBus    events.Publisher
	config      *config.Config
}

func NewVerifyService(
	verifyRepo repository.VerifyRepository,
	accountRepo repository.AccountRepository,
	hasher hasher.Hasher,
	sender sms.Sender,
	eventBus events.Publisher,
	config *config.Config,
) VerifyService {
	return &verifyService{
		verifyRepo:  verifyRepo,
		accountRepo: accountRepo,
		hasher:      hasher,
		sender:      sender,
		eventBus:    eventBus,
		config:      config,
	}
}

func (s *verifyService) IssueCode(ctx context.Context, req *domain.IssueCodeRequest) error {
	// Normalize and validate
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	// Generate and hash a fresh 6-digit code
	code := generateVerificationCode()
	codeHash, err := s.hasher.Hash(code)
	if err != nil {
		return fmt.Errorf("failed to hash verification code: %w", err)
	}

	// Single conditional upsert: the cooldown check and the write are one
	// statement, so two concurrent requests for the same phone cannot both
	// get a code inside the window.
	cooldown := s.config.Verify.CooldownWindow
	attempt, err := s.verifyRepo.UpsertCode(ctx, req.Phone, codeHash, cooldown)
	if errors.Is(err, domain.ErrCooldownActive) {
		return s.rateLimitError(ctx, req.Phone, cooldown)
	}
	if err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}

	// Hand the plaintext to the delivery adapter. The code was stored
	// hashed, so a delivery failure does not fail the request.
	if err := s.sender.SendVerificationCode(req.Phone, code); err != nil {
		logger.ErrorContext(ctx, "Failed to send verification code", "error", err, "phone", req.Phone)
	}

	s.publish(ctx, events.SubjectCodeIssued, map[string]any{
		"phone":   attempt.Phone,
		"sent_at": attempt.LastSentAt,
	})

	return nil
}

func (s *verifyService) ConfirmCode(ctx context.Context, req *domain.ConfirmCodeRequest) error {
	// Normalize and validate
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	attempt, err := s.verifyRepo.FindByPhone(ctx, req.Phone)
	if err != nil {
		return fmt.Errorf("failed to look up verification attempt: %w", err)
	}
	if attempt == nil || !attempt.HasPendingCode() {
		return domain.ErrNoPendingCode
	}

	// A hasher failure is never treated as a match.
	match, err := s.hasher.Verify(req.Code, attempt.CodeHash)
	if err != nil {
		return fmt.Errorf("failed to verify code: %w", err)
	}
	if !match {
		return domain.ErrInvalidCode
	}

	// Idempotent: confirming an already-verified code stays verified.
	if err := s.verifyRepo.MarkVerified(ctx, req.Phone); err != nil {
		return fmt.Errorf("failed to mark phone verified: %w", err)
	}

	s.publish(ctx, events.SubjectConfirmed, map[string]any{
		"phone": req.Phone,
	})

	return nil
}

func (s *verifyService) CommitPassword(ctx context.Context, req *domain.CommitPasswordRequest) error {
	// Normalize and validate
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	attempt, err := s.verifyRepo.FindByPhone(ctx, req.Phone)
	if err != nil {
		return fmt.Errorf("failed to look up verification attempt: %w", err)
	}
	if attempt == nil || !attempt.Verified {
		return domain.ErrNotVerified
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	// Re-running the flow for a registered phone overwrites the hash.
	if err := s.accountRepo.UpsertPassword(ctx, req.Phone, passwordHash); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	s.publish(ctx, events.SubjectPasswordSet, map[string]any{
		"phone": req.Phone,
	})

	return nil
}

// rateLimitError turns a cooldown rejection into a RateLimitError with the
// remaining wait rounded down, clamped to [1, cooldown] seconds.
func (s *verifyService) rateLimitError(ctx context.Context, phone string, cooldown time.Duration) error {
	remaining := cooldown

	attempt, err := s.verifyRepo.FindByPhone(ctx, phone)
	if err != nil {
		logger.WarnContext(ctx, "Failed to read attempt for cooldown wait", "error", err, "phone", phone)
	} else if attempt != nil {
		remaining = attempt.CooldownRemaining(cooldown, time.Now())
	}

	waitSeconds := int64(remaining.Seconds())
	if waitSeconds < 1 {
		waitSeconds = 1
	}
	if windowSeconds := int64(cooldown.Seconds()); waitSeconds > windowSeconds {
		waitSeconds = windowSeconds
	}

	return &domain.RateLimitError{WaitSeconds: waitSeconds}
}

func (s *verifyService) publish(ctx context.Context, subject string, data map[string]any) {
	if err := s.eventBus.Publish(ctx, subject, data); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "error", err, "subject", subject)
	}
}

// generateVerificationCode returns a 6-digit numeric code. The value is
// hashed before storage and issuance is rate limited, so a non-cryptographic
// source is sufficient here.
func generateVerificationCode() string {
	n := rand.IntN(domain.CodeMax-domain.CodeMin+1) + domain.CodeMin
	return fmt.Sprintf("%06d", n)
}
