package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound occurs when no transaction matches the requested reference or id.
	ErrNotFound = errors.New("transaction not found")

	// ErrDuplicateReference indicates the reference is already recorded.
	ErrDuplicateReference = errors.New("duplicate transaction reference")
)

// Type classifies how money entered or left a wallet.
type Type string

const (
	TypeDeposit  Type = "deposit"
	TypeTransfer Type = "transfer"
)

// Status is a transaction lifecycle state. Deposits move pending -> success
// or pending -> failed exactly once; transfers are written terminal.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Metadata keys used by the engine.
const (
	MetaAuthorizationURL      = "authorization_url"
	MetaAccessCode            = "access_code"
	MetaSenderWalletID        = "sender_wallet_id"
	MetaSenderWalletNumber    = "sender_wallet_number"
	MetaRecipientWalletID     = "recipient_wallet_id"
	MetaRecipientWalletNumber = "recipient_wallet_number"
)

// Transaction is one ledger row. Reference correlates a deposit with its
// checkout session and webhook events; transfer legs carry no reference and
// point at their counterparty through metadata instead.
type Transaction struct {
	ID        string
	WalletID  string
	Amount    int64
	Type      Type
	Status    Status
	Reference string
	Metadata  map[string]string
	CreatedAt time.Time
	PaidAt    *time.Time
}

// Store is the append/update log of deposit and transfer events. Status
// transitions and the transfer pair must run inside the caller's unit of
// work alongside the matching balance writes.
type Store interface {
	RecordPendingDeposit(ctx context.Context, walletID string, amount int64, reference string, metadata map[string]string) (Transaction, error)

	// FindPendingDepositDuplicate returns the most recent pending deposit for
	// the same wallet and amount created within the window, or ErrNotFound.
	FindPendingDepositDuplicate(ctx context.Context, walletID string, amount int64, window time.Duration) (Transaction, error)

	FindByReference(ctx context.Context, reference string) (Transaction, error)

	// FindByReferenceForUpdate locks the row for the rest of the unit of work.
	FindByReferenceForUpdate(ctx context.Context, reference string) (Transaction, error)

	// MarkSuccess and MarkFailed are no-ops, not errors, when the row already
	// sits in a terminal state: reconciliation must be safe to run twice.
	MarkSuccess(ctx context.Context, id string, paidAt time.Time) error
	MarkFailed(ctx context.Context, id string) error

	// RecordTransferPair appends the debit and credit legs of one transfer,
	// both already successful.
	RecordTransferPair(ctx context.Context, debitWalletID, creditWalletID string, amount int64, debitMeta, creditMeta map[string]string) (Transaction, Transaction, error)

	// ListForWallet returns transactions newest first.
	ListForWallet(ctx context.Context, walletID string, limit, offset int) ([]Transaction, error)
}
