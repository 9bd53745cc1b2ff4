package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/naira-pay/naira_pay/internal/events"
	"github.com/naira-pay/naira_pay/internal/ledger"
	"github.com/naira-pay/naira_pay/internal/storage"
	"github.com/naira-pay/naira_pay/internal/wallet"
)

var (
	// ErrInvalidAmount rejects transfer amounts below the configured minimum.
	ErrInvalidAmount = errors.New("invalid transfer amount")

	// ErrSelfTransfer rejects transfers into the sender's own wallet.
	ErrSelfTransfer = errors.New("cannot transfer to own wallet")

	// ErrTransferFailed wraps unexpected failures that aborted the transfer
	// unit of work. Nothing was written.
	ErrTransferFailed = errors.New("transfer failed")
)

// Service moves money between wallets. Both balance writes and both ledger
// legs commit in one unit of work or not at all.
type Service struct {
	wallets   wallet.Repository
	store     ledger.Store
	tx        storage.TxRunner
	events    events.Publisher
	minAmount int64
	logger    *slog.Logger
}

// NewService builds the transfer service. Transfers below minAmount kobo
// are rejected; a non-positive minAmount falls back to 100.
func NewService(wallets wallet.Repository, store ledger.Store, tx storage.TxRunner, publisher events.Publisher, minAmount int64, logger *slog.Logger) *Service {
	if minAmount <= 0 {
		minAmount = 100
	}
	return &Service{wallets: wallets, store: store, tx: tx, events: publisher, minAmount: minAmount, logger: logger}
}

// Result is the sender's view of a completed transfer.
type Result struct {
	Debit         ledger.Transaction
	Credit        ledger.Transaction
	SenderBalance int64
}

// Transfer debits the sender's wallet and credits the wallet addressed by
// number. Wallet rows are locked in ascending id order so two opposing
// transfers cannot deadlock, and the balance is re-read under the lock
// before it is spent.
func (s *Service) Transfer(ctx context.Context, senderOwnerID, recipientNumber string, amount int64) (Result, error) {
	if amount < s.minAmount {
		return Result{}, fmt.Errorf("%w: minimum is %d kobo", ErrInvalidAmount, s.minAmount)
	}

	sender, err := s.wallets.GetByOwner(ctx, senderOwnerID)
	if err != nil {
		return Result{}, err
	}
	recipient, err := s.wallets.GetByNumber(ctx, recipientNumber)
	if err != nil {
		return Result{}, err
	}
	if sender.ID == recipient.ID {
		return Result{}, ErrSelfTransfer
	}
	if sender.Balance < amount {
		return Result{}, wallet.ErrInsufficientFunds
	}

	var result Result
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		first, second := sender.ID, recipient.ID
		if second < first {
			first, second = second, first
		}
		if _, err := s.wallets.GetForUpdate(ctx, first); err != nil {
			return err
		}
		if _, err := s.wallets.GetForUpdate(ctx, second); err != nil {
			return err
		}

		locked, err := s.wallets.GetForUpdate(ctx, sender.ID)
		if err != nil {
			return err
		}
		if locked.Balance < amount {
			return wallet.ErrInsufficientFunds
		}

		if err := s.wallets.AdjustBalance(ctx, sender.ID, -amount); err != nil {
			return err
		}
		if err := s.wallets.AdjustBalance(ctx, recipient.ID, amount); err != nil {
			return err
		}

		debitMeta := map[string]string{
			ledger.MetaRecipientWalletID:     recipient.ID,
			ledger.MetaRecipientWalletNumber: recipient.WalletNumber,
		}
		creditMeta := map[string]string{
			ledger.MetaSenderWalletID:     sender.ID,
			ledger.MetaSenderWalletNumber: sender.WalletNumber,
		}
		debit, credit, err := s.store.RecordTransferPair(ctx, sender.ID, recipient.ID, amount, debitMeta, creditMeta)
		if err != nil {
			return err
		}

		result = Result{Debit: debit, Credit: credit, SenderBalance: locked.Balance - amount}
		return nil
	})
	if err != nil {
		if errors.Is(err, wallet.ErrInsufficientFunds) || errors.Is(err, wallet.ErrNotFound) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	s.publish(ctx, events.KeyTransferCompleted, map[string]any{
		"debit_id":         result.Debit.ID,
		"credit_id":        result.Credit.ID,
		"sender_wallet":    sender.ID,
		"recipient_wallet": recipient.ID,
		"amount":           amount,
	})
	s.logger.Info("transfer completed",
		slog.String("sender_wallet", sender.ID),
		slog.String("recipient_wallet", recipient.ID),
		slog.Int64("amount", amount),
	)
	return result, nil
}

func (s *Service) publish(ctx context.Context, key string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, key, payload); err != nil {
		s.logger.Warn("event publish failed", slog.String("routing_key", key), slog.Any("error", err))
	}
}
