package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/naira-pay/naira_pay/internal/storage"
)

const uniqueViolation = "23505"

const txColumns = `id, wallet_id, amount, type, status, reference, metadata, created_at, paid_at`

// PostgresStore persists ledger transactions in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed transaction log.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// RecordPendingDeposit appends a pending deposit row keyed by reference.
func (s *PostgresStore) RecordPendingDeposit(ctx context.Context, walletID string, amount int64, reference string, metadata map[string]string) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, fmt.Errorf("amount must be positive")
	}

	txn := Transaction{
		ID:        uuid.NewString(),
		WalletID:  walletID,
		Amount:    amount,
		Type:      TypeDeposit,
		Status:    StatusPending,
		Reference: reference,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}

	meta, err := marshalMetadata(metadata)
	if err != nil {
		return Transaction{}, err
	}

	q := storage.QuerierFrom(ctx, s.pool)
	_, err = q.Exec(ctx, `INSERT INTO transactions (id, wallet_id, amount, type, status, reference, metadata, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		txn.ID, txn.WalletID, txn.Amount, txn.Type, txn.Status, txn.Reference, meta, txn.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Transaction{}, ErrDuplicateReference
		}
		return Transaction{}, err
	}

	return txn, nil
}

// FindPendingDepositDuplicate returns the newest pending deposit matching
// wallet and amount inside the window.
func (s *PostgresStore) FindPendingDepositDuplicate(ctx context.Context, walletID string, amount int64, window time.Duration) (Transaction, error) {
	cutoff := time.Now().UTC().Add(-window)
	return s.scanOne(ctx, `SELECT `+txColumns+` FROM transactions
        WHERE wallet_id = $1 AND amount = $2 AND type = $3 AND status = $4 AND created_at >= $5
        ORDER BY created_at DESC LIMIT 1`,
		walletID, amount, TypeDeposit, StatusPending, cutoff)
}

// FindByReference fetches a transaction by its correlation reference.
func (s *PostgresStore) FindByReference(ctx context.Context, reference string) (Transaction, error) {
	return s.scanOne(ctx, `SELECT `+txColumns+` FROM transactions WHERE reference = $1`, reference)
}

// FindByReferenceForUpdate fetches the row under FOR UPDATE so concurrent
// reconciliations of the same reference serialize.
func (s *PostgresStore) FindByReferenceForUpdate(ctx context.Context, reference string) (Transaction, error) {
	return s.scanOne(ctx, `SELECT `+txColumns+` FROM transactions WHERE reference = $1 FOR UPDATE`, reference)
}

// MarkSuccess transitions pending -> success, recording paid_at. Rows already
// terminal are left untouched.
func (s *PostgresStore) MarkSuccess(ctx context.Context, id string, paidAt time.Time) error {
	return s.markTerminal(ctx, id, StatusSuccess, &paidAt)
}

// MarkFailed transitions pending -> failed. Rows already terminal are left
// untouched.
func (s *PostgresStore) MarkFailed(ctx context.Context, id string) error {
	return s.markTerminal(ctx, id, StatusFailed, nil)
}

func (s *PostgresStore) markTerminal(ctx context.Context, id string, status Status, paidAt *time.Time) error {
	q := storage.QuerierFrom(ctx, s.pool)

	cmd, err := q.Exec(ctx, `UPDATE transactions SET status = $1, paid_at = COALESCE($2, paid_at)
        WHERE id = $3 AND status = $4`, status, paidAt, id, StatusPending)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}

	var current Status
	if err := q.QueryRow(ctx, `SELECT status FROM transactions WHERE id = $1`, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil // already terminal, reconciliation may run twice
}

// RecordTransferPair appends both legs of a transfer as successful rows.
func (s *PostgresStore) RecordTransferPair(ctx context.Context, debitWalletID, creditWalletID string, amount int64, debitMeta, creditMeta map[string]string) (Transaction, Transaction, error) {
	if amount <= 0 {
		return Transaction{}, Transaction{}, fmt.Errorf("amount must be positive")
	}

	now := time.Now().UTC()
	debit := Transaction{
		ID:        uuid.NewString(),
		WalletID:  debitWalletID,
		Amount:    amount,
		Type:      TypeTransfer,
		Status:    StatusSuccess,
		Metadata:  debitMeta,
		CreatedAt: now,
		PaidAt:    &now,
	}
	credit := Transaction{
		ID:        uuid.NewString(),
		WalletID:  creditWalletID,
		Amount:    amount,
		Type:      TypeTransfer,
		Status:    StatusSuccess,
		Metadata:  creditMeta,
		CreatedAt: now,
		PaidAt:    &now,
	}

	q := storage.QuerierFrom(ctx, s.pool)
	for _, txn := range []Transaction{debit, credit} {
		meta, err := marshalMetadata(txn.Metadata)
		if err != nil {
			return Transaction{}, Transaction{}, err
		}
		if _, err := q.Exec(ctx, `INSERT INTO transactions (id, wallet_id, amount, type, status, metadata, created_at, paid_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			txn.ID, txn.WalletID, txn.Amount, txn.Type, txn.Status, meta, txn.CreatedAt, txn.PaidAt); err != nil {
			return Transaction{}, Transaction{}, err
		}
	}

	return debit, credit, nil
}

// ListForWallet returns the wallet's transactions newest first.
func (s *PostgresStore) ListForWallet(ctx context.Context, walletID string, limit, offset int) ([]Transaction, error) {
	q := storage.QuerierFrom(ctx, s.pool)

	rows, err := q.Query(ctx, `SELECT `+txColumns+` FROM transactions
        WHERE wallet_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, walletID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, txn)
	}
	return out, rows.Err()
}

func (s *PostgresStore) scanOne(ctx context.Context, query string, args ...any) (Transaction, error) {
	q := storage.QuerierFrom(ctx, s.pool)

	txn, err := scanTransaction(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrNotFound
		}
		return Transaction{}, err
	}
	return txn, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var (
		txn       Transaction
		reference *string
		meta      []byte
		createdAt time.Time
		paidAt    *time.Time
	)
	if err := row.Scan(&txn.ID, &txn.WalletID, &txn.Amount, &txn.Type, &txn.Status, &reference, &meta, &createdAt, &paidAt); err != nil {
		return Transaction{}, err
	}
	if reference != nil {
		txn.Reference = *reference
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &txn.Metadata); err != nil {
			return Transaction{}, fmt.Errorf("decode transaction metadata: %w", err)
		}
	}
	txn.CreatedAt = createdAt.UTC()
	if paidAt != nil {
		t := paidAt.UTC()
		txn.PaidAt = &t
	}
	return txn, nil
}

func marshalMetadata(metadata map[string]string) ([]byte, error) {
	if metadata == nil {
		metadata = map[string]string{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode transaction metadata: %w", err)
	}
	return meta, nil
}
