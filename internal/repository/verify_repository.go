package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/verimobi/phone-verify/internal/domain"
)

type VerifyRepository interface {
	// UpsertCode stores a freshly hashed code for the phone, resetting the
	// verified flag. The write is rejected with domain.ErrCooldownActive
	// when the previous issuance is younger than the cooldown; the check
	// and the write happen in one statement, so concurrent calls for the
	// same phone cannot both pass the cooldown.
	UpsertCode(ctx context.Context, phone, codeHash string, cooldown time.Duration) (*domain.VerificationAttempt, error)

	// FindByPhone returns nil without error when no attempt exists.
	FindByPhone(ctx context.Context, phone string) (*domain.VerificationAttempt, error)

	MarkVerified(ctx context.Context, phone string) error

	// ListAttempts returns all attempts without hash material. Dev only.
	ListAttempts(ctx context.Context) ([]domain.VerificationAttempt, error)
}

type verifyRepository struct {
	pool querier
}

func NewVerifyRepository(pool querier) VerifyRepository {
	return &verifyRepository{pool: pool}
}

const attemptCols = `phone, code_hash, last_sent_at, verified, created_at, updated_at`

func (r *verifyRepository) UpsertCode(ctx context.Context, phone, codeHash string, cooldown time.Duration) (*domain.VerificationAttempt, error) {
	const q = `
		INSERT INTO phone_verifications (phone, code_hash, last_sent_at, verified)
		VALUES ($1, $2, now(), false)
		ON CONFLICT (phone) DO UPDATE SET
			code_hash    = EXCLUDED.code_hash,
			last_sent_at = now(),
			verified     = false,
			updated_at   = now()
		WHERE phone_verifications.last_sent_at <= now() - make_interval(secs => $3)
		RETURNING ` + attemptCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var a domain.VerificationAttempt
	err := r.pool.QueryRow(ctx, q, phone, codeHash, cooldown.Seconds()).Scan(
		&a.Phone, &a.CodeHash, &a.LastSentAt, &a.Verified, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		// The conflict branch was skipped: the cooldown guard rejected it.
		return nil, domain.ErrCooldownActive
	}
	if err != nil {
		return nil, err
	}

	return &a, nil
}

func (r *verifyRepository) FindByPhone(ctx context.Context, phone string) (*domain.VerificationAttempt, error) {
	const q = `SELECT ` + attemptCols + ` FROM phone_verifications WHERE phone = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var a domain.VerificationAttempt
	err := r.pool.QueryRow(ctx, q, phone).Scan(
		&a.Phone, &a.CodeHash, &a.LastSentAt, &a.Verified, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &a, nil
}

func (r *verifyRepository) MarkVerified(ctx context.Context, phone string) error {
	const q = `
		UPDATE phone_verifications
		SET verified = true, updated_at = now()
		WHERE phone = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, phone)
	return err
}

func (r *verifyRepository) ListAttempts(ctx context.Context) ([]domain.VerificationAttempt, error) {
	const q = `
		SELECT phone, last_sent_at, verified, created_at, updated_at
		FROM phone_verifications
		ORDER BY last_sent_at DESC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := []domain.VerificationAttempt{}
	for rows.Next() {
		var a domain.VerificationAttempt
		if err := rows.Scan(&a.Phone, &a.LastSentAt, &a.Verified, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}
