package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pigeon-sms/pigeon/internal/chain"
)

// PostgresStore stores accounts in PostgreSQL, one row per (phone, chain).
type PostgresStore struct {
	db      *pgxpool.Pool
	chainID chain.ID
}

// NewPostgresStore builds a store scoped to one chain.
func NewPostgresStore(db *pgxpool.Pool, chainID chain.ID) *PostgresStore {
	return &PostgresStore{db: db, chainID: chainID}
}

// Find fetches the record for a normalized phone number.
func (s *PostgresStore) Find(ctx context.Context, phone string) (Account, error) {
	row := s.db.QueryRow(ctx, `SELECT phone, address, encrypted_secret, created_at
        FROM wallet_accounts WHERE phone = $1 AND chain = $2`, phone, string(s.chainID))

	var a Account
	var createdAt time.Time
	if err := row.Scan(&a.Phone, &a.Address, &a.EncryptedSecret, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	a.Chain = s.chainID
	a.CreatedAt = createdAt.UTC()
	return a, nil
}

// Insert creates a record. A primary-key collision maps to ErrExists.
func (s *PostgresStore) Insert(ctx context.Context, account Account) error {
	_, err := s.db.Exec(ctx, `INSERT INTO wallet_accounts (phone, chain, address, encrypted_secret, created_at)
        VALUES ($1, $2, $3, $4, $5)`,
		account.Phone, string(s.chainID), account.Address, account.EncryptedSecret, account.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrExists
	}
	return err
}

// Update replaces address and encrypted secret, leaving created_at alone.
func (s *PostgresStore) Update(ctx context.Context, account Account) error {
	tag, err := s.db.Exec(ctx, `UPDATE wallet_accounts SET address = $3, encrypted_secret = $4
        WHERE phone = $1 AND chain = $2`,
		account.Phone, string(s.chainID), account.Address, account.EncryptedSecret)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the record for a phone.
func (s *PostgresStore) Delete(ctx context.Context, phone string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM wallet_accounts WHERE phone = $1 AND chain = $2`,
		phone, string(s.chainID))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
