package apikeys

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/naira-pay/naira_pay/internal/storage"
)

// ErrNotFound occurs when no key matches the lookup.
var ErrNotFound = errors.New("api key not found")

// Repository persists API keys.
type Repository interface {
	Create(ctx context.Context, key Key) error
	FindByDigest(ctx context.Context, digest string) (Key, error)
	FindByID(ctx context.Context, userID, id string) (Key, error)
	ListByUser(ctx context.Context, userID string) ([]Key, error)
	// Replace swaps the digest and expiry of an existing key (rollover).
	Replace(ctx context.Context, id, digest string, expiresAt *time.Time) error
	Revoke(ctx context.Context, id string, at time.Time) error
}

const keyColumns = `id, user_id, digest, name, permissions, expires_at, revoked_at, created_at`

// PostgresRepository stores API keys in PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed API key repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, key Key) error {
	q := storage.QuerierFrom(ctx, r.pool)
	_, err := q.Exec(ctx, `INSERT INTO api_keys (id, user_id, digest, name, permissions, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.UserID, key.Digest, key.Name, key.Permissions, key.ExpiresAt, key.CreatedAt.UTC())
	return err
}

func (r *PostgresRepository) FindByDigest(ctx context.Context, digest string) (Key, error) {
	return r.scan(ctx, `SELECT `+keyColumns+` FROM api_keys WHERE digest = $1`, digest)
}

func (r *PostgresRepository) FindByID(ctx context.Context, userID, id string) (Key, error) {
	return r.scan(ctx, `SELECT `+keyColumns+` FROM api_keys WHERE id = $1 AND user_id = $2`, id, userID)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Key, error) {
	q := storage.QuerierFrom(ctx, r.pool)
	rows, err := q.Query(ctx, `SELECT `+keyColumns+` FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		key, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (r *PostgresRepository) Replace(ctx context.Context, id, digest string, expiresAt *time.Time) error {
	q := storage.QuerierFrom(ctx, r.pool)
	cmd, err := q.Exec(ctx, `UPDATE api_keys SET digest = $1, expires_at = $2, revoked_at = NULL WHERE id = $3`, digest, expiresAt, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	q := storage.QuerierFrom(ctx, r.pool)
	cmd, err := q.Exec(ctx, `UPDATE api_keys SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`, at.UTC(), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) scan(ctx context.Context, query string, args ...any) (Key, error) {
	q := storage.QuerierFrom(ctx, r.pool)
	key, err := scanKey(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Key{}, ErrNotFound
		}
		return Key{}, err
	}
	return key, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKey(row rowScanner) (Key, error) {
	var key Key
	var createdAt time.Time
	if err := row.Scan(&key.ID, &key.UserID, &key.Digest, &key.Name, &key.Permissions, &key.ExpiresAt, &key.RevokedAt, &createdAt); err != nil {
		return Key{}, err
	}
	key.CreatedAt = createdAt.UTC()
	return key, nil
}
