package funding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/naira-pay/naira_pay/internal/events"
	"github.com/naira-pay/naira_pay/internal/identity"
	"github.com/naira-pay/naira_pay/internal/ledger"
	"github.com/naira-pay/naira_pay/internal/paystack"
	"github.com/naira-pay/naira_pay/internal/storage"
	"github.com/naira-pay/naira_pay/internal/wallet"
)

// ErrInvalidAmount rejects deposits below the provider minimum.
var ErrInvalidAmount = errors.New("deposit amount below minimum")

// checkoutURLBase reconstructs an authorization URL when a reused pending
// deposit predates metadata capture.
const checkoutURLBase = "https://checkout.paystack.com/"

// Service drives the deposit lifecycle: checkout initialization, webhook
// reconciliation and manual status refresh.
type Service struct {
	wallets      wallet.Repository
	users        identity.Repository
	store        ledger.Store
	gateway      paystack.Gateway
	tx           storage.TxRunner
	events       events.Publisher
	logger       *slog.Logger
	dedupeWindow time.Duration
	minAmount    int64
}

// Deps wires the deposit service.
type Deps struct {
	Wallets      wallet.Repository
	Users        identity.Repository
	Store        ledger.Store
	Gateway      paystack.Gateway
	Tx           storage.TxRunner
	Events       events.Publisher
	Logger       *slog.Logger
	DedupeWindow time.Duration
	MinAmount    int64
}

// NewService builds the deposit service.
func NewService(d Deps) *Service {
	if d.DedupeWindow <= 0 {
		d.DedupeWindow = 5 * time.Minute
	}
	if d.MinAmount <= 0 {
		d.MinAmount = 100
	}
	return &Service{
		wallets:      d.Wallets,
		users:        d.Users,
		store:        d.Store,
		gateway:      d.Gateway,
		tx:           d.Tx,
		events:       d.Events,
		logger:       d.Logger,
		dedupeWindow: d.DedupeWindow,
		minAmount:    d.MinAmount,
	}
}

// Checkout is a deposit awaiting payment at the provider's hosted page.
type Checkout struct {
	Reference        string
	AuthorizationURL string
	AccessCode       string
	Amount           int64
	Status           ledger.Status
	Reused           bool
}

// InitiateDeposit opens a checkout session for the owner's wallet. A pending
// deposit for the same wallet and amount within the dedupe window is reused
// instead of opening a second session.
func (s *Service) InitiateDeposit(ctx context.Context, ownerID string, amount int64) (Checkout, error) {
	if amount < s.minAmount {
		return Checkout{}, fmt.Errorf("%w: minimum is %d kobo", ErrInvalidAmount, s.minAmount)
	}

	w, err := s.wallets.GetByOwner(ctx, ownerID)
	if err != nil {
		return Checkout{}, err
	}

	if pending, err := s.store.FindPendingDepositDuplicate(ctx, w.ID, amount, s.dedupeWindow); err == nil {
		authURL := pending.Metadata[ledger.MetaAuthorizationURL]
		if authURL == "" {
			authURL = checkoutURLBase + pending.Reference
		}
		return Checkout{
			Reference:        pending.Reference,
			AuthorizationURL: authURL,
			AccessCode:       pending.Metadata[ledger.MetaAccessCode],
			Amount:           pending.Amount,
			Status:           pending.Status,
			Reused:           true,
		}, nil
	} else if !errors.Is(err, ledger.ErrNotFound) {
		return Checkout{}, err
	}

	user, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		return Checkout{}, err
	}

	session, err := s.gateway.Initialize(ctx, user.Email, amount, map[string]string{
		"wallet_id": w.ID,
	})
	if err != nil {
		return Checkout{}, err
	}

	_, err = s.store.RecordPendingDeposit(ctx, w.ID, amount, session.Reference, map[string]string{
		ledger.MetaAuthorizationURL: session.AuthorizationURL,
		ledger.MetaAccessCode:       session.AccessCode,
	})
	if err != nil {
		return Checkout{}, err
	}

	s.logger.Info("deposit initialized",
		slog.String("wallet_id", w.ID),
		slog.String("reference", session.Reference),
		slog.Int64("amount", amount),
	)

	return Checkout{
		Reference:        session.Reference,
		AuthorizationURL: session.AuthorizationURL,
		AccessCode:       session.AccessCode,
		Amount:           amount,
		Status:           ledger.StatusPending,
	}, nil
}

// ReconcileDeposit settles a confirmed charge: marks the deposit successful
// and credits the wallet, atomically. Safe to call any number of times per
// reference. The stored amount wins when the provider reports a different
// one; a mismatch is logged for manual review.
func (s *Service) ReconcileDeposit(ctx context.Context, reference string, reportedAmount int64, paidAt time.Time) error {
	var settled ledger.Transaction
	credited := false

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		txn, err := s.store.FindByReferenceForUpdate(ctx, reference)
		if err != nil {
			return err
		}
		if txn.Status != ledger.StatusPending {
			return nil
		}
		if reportedAmount != 0 && reportedAmount != txn.Amount {
			s.logger.Warn("deposit amount mismatch, crediting recorded amount",
				slog.String("reference", reference),
				slog.Int64("recorded", txn.Amount),
				slog.Int64("reported", reportedAmount),
			)
		}
		if err := s.store.MarkSuccess(ctx, txn.ID, paidAt); err != nil {
			return err
		}
		if err := s.wallets.AdjustBalance(ctx, txn.WalletID, txn.Amount); err != nil {
			return err
		}
		settled = txn
		credited = true
		return nil
	})
	if err != nil {
		return err
	}

	if credited {
		s.publish(ctx, events.KeyDepositCompleted, map[string]any{
			"reference": reference,
			"wallet_id": settled.WalletID,
			"amount":    settled.Amount,
			"paid_at":   paidAt.UTC(),
		})
		s.logger.Info("deposit settled",
			slog.String("reference", reference),
			slog.String("wallet_id", settled.WalletID),
			slog.Int64("amount", settled.Amount),
		)
	}
	return nil
}

// failDeposit marks a pending deposit failed without touching the balance.
func (s *Service) failDeposit(ctx context.Context, reference string) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		txn, err := s.store.FindByReferenceForUpdate(ctx, reference)
		if err != nil {
			return err
		}
		if txn.Status != ledger.StatusPending {
			return nil
		}
		return s.store.MarkFailed(ctx, txn.ID)
	})
}

// StatusResult is a deposit's current state. GatewayChecked is false when
// the provider could not be reached and the local state may lag.
type StatusResult struct {
	Transaction    ledger.Transaction
	GatewayChecked bool
}

// DepositStatus returns the deposit for the owner's wallet, consulting the
// provider when it is still pending. A provider outage degrades to the local
// state rather than failing the request.
func (s *Service) DepositStatus(ctx context.Context, ownerID, reference string) (StatusResult, error) {
	w, err := s.wallets.GetByOwner(ctx, ownerID)
	if err != nil {
		return StatusResult{}, err
	}
	txn, err := s.store.FindByReference(ctx, reference)
	if err != nil {
		return StatusResult{}, err
	}
	if txn.WalletID != w.ID {
		return StatusResult{}, ledger.ErrNotFound
	}
	if txn.Status != ledger.StatusPending {
		return StatusResult{Transaction: txn, GatewayChecked: false}, nil
	}

	remote, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		s.logger.Warn("status refresh degraded to local state",
			slog.String("reference", reference),
			slog.Any("error", err),
		)
		return StatusResult{Transaction: txn, GatewayChecked: false}, nil
	}

	switch remote.Status {
	case paystack.RemoteStatusSuccess:
		paidAt := time.Now().UTC()
		if remote.PaidAt != nil {
			paidAt = *remote.PaidAt
		}
		if err := s.ReconcileDeposit(ctx, reference, 0, paidAt); err != nil {
			return StatusResult{}, err
		}
	case paystack.RemoteStatusFailed:
		if err := s.failDeposit(ctx, reference); err != nil {
			return StatusResult{}, err
		}
	}

	txn, err = s.store.FindByReference(ctx, reference)
	if err != nil {
		return StatusResult{}, err
	}
	return StatusResult{Transaction: txn, GatewayChecked: true}, nil
}

// Transactions lists the owner's wallet history, newest first.
func (s *Service) Transactions(ctx context.Context, ownerID string, limit, offset int) ([]ledger.Transaction, error) {
	w, err := s.wallets.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListForWallet(ctx, w.ID, limit, offset)
}

func (s *Service) publish(ctx context.Context, key string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, key, payload); err != nil {
		s.logger.Warn("event publish failed", slog.String("routing_key", key), slog.Any("error", err))
	}
}
