package payments

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/naira-pay/naira_pay/internal/ledger"
	"github.com/naira-pay/naira_pay/internal/logging"
	"github.com/naira-pay/naira_pay/internal/storage"
	"github.com/naira-pay/naira_pay/internal/wallet"
)

type transferFixture struct {
	svc       *Service
	wallets   *wallet.MemoryRepository
	store     *ledger.MemoryStore
	sender    wallet.Wallet
	recipient wallet.Wallet
}

func newTransferFixture(t *testing.T, senderBalance, recipientBalance int64) transferFixture {
	t.Helper()
	ctx := context.Background()

	wallets := wallet.NewMemoryRepository()
	sender, err := wallets.Create(ctx, "alice")
	require.NoError(t, err)
	recipient, err := wallets.Create(ctx, "bob")
	require.NoError(t, err)
	wallets.SeedBalance(sender.ID, senderBalance)
	wallets.SeedBalance(recipient.ID, recipientBalance)

	store := ledger.NewMemoryStore()
	svc := NewService(wallets, store, storage.NewMemoryTxRunner(wallets, store), nil, 100, logging.Discard())

	sender.Balance = senderBalance
	recipient.Balance = recipientBalance
	return transferFixture{svc: svc, wallets: wallets, store: store, sender: sender, recipient: recipient}
}

func (f transferFixture) balances(t *testing.T) (int64, int64) {
	t.Helper()
	sender, err := f.wallets.GetByOwner(context.Background(), "alice")
	require.NoError(t, err)
	recipient, err := f.wallets.GetByOwner(context.Background(), "bob")
	require.NoError(t, err)
	return sender.Balance, recipient.Balance
}

func TestTransferMovesMoney(t *testing.T) {
	f := newTransferFixture(t, 500_000, 0)
	ctx := context.Background()

	result, err := f.svc.Transfer(ctx, "alice", f.recipient.WalletNumber, 300_000)
	require.NoError(t, err)
	require.Equal(t, int64(200_000), result.SenderBalance)

	senderBal, recipientBal := f.balances(t)
	require.Equal(t, int64(200_000), senderBal)
	require.Equal(t, int64(300_000), recipientBal)
}

func TestTransferWritesBothLegs(t *testing.T) {
	f := newTransferFixture(t, 100_000, 0)
	ctx := context.Background()

	result, err := f.svc.Transfer(ctx, "alice", f.recipient.WalletNumber, 40_000)
	require.NoError(t, err)

	require.Equal(t, f.sender.ID, result.Debit.WalletID)
	require.Equal(t, f.recipient.ID, result.Credit.WalletID)
	require.Equal(t, ledger.StatusSuccess, result.Debit.Status)
	require.Equal(t, ledger.StatusSuccess, result.Credit.Status)
	require.Equal(t, ledger.TypeTransfer, result.Debit.Type)

	// The legs cross-reference each other's wallet.
	require.Equal(t, f.recipient.ID, result.Debit.Metadata[ledger.MetaRecipientWalletID])
	require.Equal(t, f.recipient.WalletNumber, result.Debit.Metadata[ledger.MetaRecipientWalletNumber])
	require.Equal(t, f.sender.ID, result.Credit.Metadata[ledger.MetaSenderWalletID])
	require.Equal(t, f.sender.WalletNumber, result.Credit.Metadata[ledger.MetaSenderWalletNumber])

	senderTxns, err := f.store.ListForWallet(ctx, f.sender.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, senderTxns, 1)
	recipientTxns, err := f.store.ListForWallet(ctx, f.recipient.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, recipientTxns, 1)
}

func TestTransferInsufficientFunds(t *testing.T) {
	f := newTransferFixture(t, 100, 0)

	_, err := f.svc.Transfer(context.Background(), "alice", f.recipient.WalletNumber, 500)
	require.ErrorIs(t, err, wallet.ErrInsufficientFunds)

	senderBal, recipientBal := f.balances(t)
	require.Equal(t, int64(100), senderBal)
	require.Zero(t, recipientBal)

	txns, err := f.store.ListForWallet(context.Background(), f.sender.ID, 10, 0)
	require.NoError(t, err)
	require.Empty(t, txns, "a rejected transfer leaves no ledger rows")
}

func TestTransferRejectsSelfAndBadAmounts(t *testing.T) {
	f := newTransferFixture(t, 100_000, 0)
	ctx := context.Background()

	_, err := f.svc.Transfer(ctx, "alice", f.sender.WalletNumber, 1_000)
	require.ErrorIs(t, err, ErrSelfTransfer)

	_, err = f.svc.Transfer(ctx, "alice", f.recipient.WalletNumber, 0)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.svc.Transfer(ctx, "alice", f.recipient.WalletNumber, -50)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.svc.Transfer(ctx, "alice", "000000000000", 1_000)
	require.ErrorIs(t, err, wallet.ErrNotFound)
}

func TestTransferRejectsBelowMinimum(t *testing.T) {
	f := newTransferFixture(t, 100_000, 0)
	ctx := context.Background()

	_, err := f.svc.Transfer(ctx, "alice", f.recipient.WalletNumber, 50)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.svc.Transfer(ctx, "alice", f.recipient.WalletNumber, 99)
	require.ErrorIs(t, err, ErrInvalidAmount)

	senderBal, recipientBal := f.balances(t)
	require.Equal(t, int64(100_000), senderBal)
	require.Zero(t, recipientBal)

	// 100 kobo is the floor, not below it.
	_, err = f.svc.Transfer(ctx, "alice", f.recipient.WalletNumber, 100)
	require.NoError(t, err)
}

func TestConcurrentTransfersConserveMoney(t *testing.T) {
	f := newTransferFixture(t, 1_000_000, 1_000_000)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers * 2)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			f.svc.Transfer(ctx, "alice", f.recipient.WalletNumber, 10_000)
		}()
		go func() {
			defer wg.Done()
			f.svc.Transfer(ctx, "bob", f.sender.WalletNumber, 7_000)
		}()
	}
	wg.Wait()

	senderBal, recipientBal := f.balances(t)
	require.Equal(t, int64(2_000_000), senderBal+recipientBal, "transfers must conserve total balance")
	require.GreaterOrEqual(t, senderBal, int64(0))
	require.GreaterOrEqual(t, recipientBal, int64(0))
}

func TestConcurrentOverdraftNeverGoesNegative(t *testing.T) {
	f := newTransferFixture(t, 50_000, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	success := make(chan int64, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Transfer(ctx, "alice", f.recipient.WalletNumber, 20_000); err == nil {
				success <- 20_000
			}
		}()
	}
	wg.Wait()
	close(success)

	var moved int64
	for amt := range success {
		moved += amt
	}
	require.LessOrEqual(t, moved, int64(40_000), "only two 20k transfers fit a 50k balance")

	senderBal, recipientBal := f.balances(t)
	require.GreaterOrEqual(t, senderBal, int64(0))
	require.Equal(t, int64(50_000), senderBal+recipientBal)
}
