package wallet

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound occurs when no wallet matches the requested owner, number or id.
	ErrNotFound = errors.New("wallet not found")

	// ErrInsufficientFunds occurs when a debit would drive the balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrExists indicates the owner already has a wallet.
	ErrExists = errors.New("wallet exists for owner")

	// ErrNumberExhausted indicates wallet number generation kept colliding.
	// Practically unreachable given the 12-14 digit key space.
	ErrNumberExhausted = errors.New("wallet number space exhausted")
)

// Wallet is a stored-value account holding a balance in kobo. The wallet
// number is the shareable 12-14 digit transfer address.
type Wallet struct {
	ID           string
	OwnerID      string
	WalletNumber string
	Balance      int64
	CreatedAt    time.Time
}

// Repository persists wallets and is the sole writer of balance. Balance
// mutation happens only through AdjustBalance inside a unit of work.
type Repository interface {
	// Create provisions a zero-balance wallet with a fresh wallet number,
	// retrying generation on number collisions.
	Create(ctx context.Context, ownerID string) (Wallet, error)

	GetByOwner(ctx context.Context, ownerID string) (Wallet, error)
	GetByNumber(ctx context.Context, number string) (Wallet, error)

	// GetForUpdate loads a wallet row holding its row lock. Only meaningful
	// inside a unit of work.
	GetForUpdate(ctx context.Context, id string) (Wallet, error)

	// AdjustBalance applies balance += delta, rejecting any result below
	// zero with ErrInsufficientFunds. Callers must wrap it in a unit of work
	// together with the ledger writes that justify the adjustment.
	AdjustBalance(ctx context.Context, id string, delta int64) error
}
