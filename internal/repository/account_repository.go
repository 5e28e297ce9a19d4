package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/verimobi/phone-verify/internal/domain"
)

type AccountRepository interface {
	// UpsertPassword inserts the account or replaces its password hash.
	UpsertPassword(ctx context.Context, phone, passwordHash string) error

	// FindByPhone returns nil without error when no account exists.
	FindByPhone(ctx context.Context, phone string) (*domain.Account, error)

	// ListAccounts returns all accounts without hash material. Dev only.
	ListAccounts(ctx context.Context) ([]domain.Account, error)
}

type accountRepository struct {
	pool querier
}

func NewAccountRepository(pool querier) AccountRepository {
	return &accountRepository{pool: pool}
}

func (r *accountRepository) UpsertPassword(ctx context.Context, phone, passwordHash string) error {
	const q = `
		INSERT INTO accounts (phone, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (phone) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			updated_at    = now()`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, phone, passwordHash)
	return err
}

func (r *accountRepository) FindByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	const q = `
		SELECT phone, password_hash, created_at, updated_at
		FROM accounts
		WHERE phone = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var a domain.Account
	err := r.pool.QueryRow(ctx, q, phone).Scan(&a.Phone, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &a, nil
}

func (r *accountRepository) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	const q = `SELECT phone, created_at, updated_at FROM accounts ORDER BY created_at DESC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.Phone, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}
