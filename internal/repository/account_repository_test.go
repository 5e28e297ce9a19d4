package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository_UpsertPassword(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   bool
	}{
		{
			name: "insert or replace hash",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO accounts`).
					WithArgs("+15550001", "digest").
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO accounts`).
					WithArgs("+15550001", "digest").
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.setupMock(mock)

			repo := NewAccountRepository(mock)
			err = repo.UpsertPassword(context.Background(), "+15550001", "digest")

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAccountRepository_FindByPhone(t *testing.T) {
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows([]string{"phone", "password_hash", "created_at", "updated_at"}).
			AddRow("+15550001", "digest", now, now)
		mock.ExpectQuery(`SELECT phone, password_hash`).
			WithArgs("+15550001").
			WillReturnRows(rows)

		repo := NewAccountRepository(mock)
		got, err := repo.FindByPhone(context.Background(), "+15550001")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "digest", got.PasswordHash)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found returns nil without error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT phone, password_hash`).
			WithArgs("+15559999").
			WillReturnError(pgx.ErrNoRows)

		repo := NewAccountRepository(mock)
		got, err := repo.FindByPhone(context.Background(), "+15559999")
		require.NoError(t, err)
		assert.Nil(t, got)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_ListAccounts(t *testing.T) {
	now := time.Now()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"phone", "created_at", "updated_at"}).
		AddRow("+15550001", now, now)
	mock.ExpectQuery(`SELECT phone, created_at, updated_at FROM accounts`).
		WillReturnRows(rows)

	repo := NewAccountRepository(mock)
	got, err := repo.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].PasswordHash, "dump must not carry hash material")

	assert.NoError(t, mock.ExpectationsWereMet())
}
