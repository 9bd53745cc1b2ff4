package wallet

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/naira-pay/naira_pay/internal/storage"
)

const uniqueViolation = "23505"

// numberRetries bounds wallet number regeneration on unique collisions.
const numberRetries = 5

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a zero-balance wallet, regenerating the wallet number on
// unique collisions.
func (r *PostgresRepository) Create(ctx context.Context, ownerID string) (Wallet, error) {
	q := storage.QuerierFrom(ctx, r.pool)

	for attempt := 0; attempt < numberRetries; attempt++ {
		number, err := newWalletNumber()
		if err != nil {
			return Wallet{}, err
		}

		w := Wallet{
			ID:           uuid.NewString(),
			OwnerID:      ownerID,
			WalletNumber: number,
			CreatedAt:    time.Now().UTC(),
		}

		_, err = q.Exec(ctx, `INSERT INTO wallets (id, owner_id, wallet_number, balance, created_at)
            VALUES ($1, $2, $3, 0, $4)`, w.ID, w.OwnerID, w.WalletNumber, w.CreatedAt)
		if err == nil {
			return w, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "owner") {
				return Wallet{}, ErrExists
			}
			continue // wallet number collision, draw again
		}
		return Wallet{}, err
	}

	return Wallet{}, ErrNumberExhausted
}

// GetByOwner fetches the wallet belonging to the given user.
func (r *PostgresRepository) GetByOwner(ctx context.Context, ownerID string) (Wallet, error) {
	return r.get(ctx, `SELECT id, owner_id, wallet_number, balance, created_at
        FROM wallets WHERE owner_id = $1`, ownerID)
}

// GetByNumber fetches a wallet by its shareable wallet number.
func (r *PostgresRepository) GetByNumber(ctx context.Context, number string) (Wallet, error) {
	return r.get(ctx, `SELECT id, owner_id, wallet_number, balance, created_at
        FROM wallets WHERE wallet_number = $1`, number)
}

// GetForUpdate loads a wallet row under FOR UPDATE. The row lock is held
// until the surrounding unit of work commits or aborts.
func (r *PostgresRepository) GetForUpdate(ctx context.Context, id string) (Wallet, error) {
	return r.get(ctx, `SELECT id, owner_id, wallet_number, balance, created_at
        FROM wallets WHERE id = $1 FOR UPDATE`, id)
}

// AdjustBalance applies balance += delta, refusing any result below zero.
func (r *PostgresRepository) AdjustBalance(ctx context.Context, id string, delta int64) error {
	q := storage.QuerierFrom(ctx, r.pool)

	cmd, err := q.Exec(ctx, `UPDATE wallets SET balance = balance + $1
        WHERE id = $2 AND balance + $1 >= 0`, delta, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}

	// Distinguish a missing wallet from a refused debit.
	var exists bool
	if err := q.QueryRow(ctx, `SELECT true FROM wallets WHERE id = $1`, id).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return ErrInsufficientFunds
}

func (r *PostgresRepository) get(ctx context.Context, query, arg string) (Wallet, error) {
	q := storage.QuerierFrom(ctx, r.pool)

	var w Wallet
	var createdAt time.Time
	if err := q.QueryRow(ctx, query, arg).Scan(&w.ID, &w.OwnerID, &w.WalletNumber, &w.Balance, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	w.CreatedAt = createdAt.UTC()
	return w, nil
}
