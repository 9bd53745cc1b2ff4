package funding

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/naira-pay/naira_pay/internal/identity"
	"github.com/naira-pay/naira_pay/internal/ledger"
	"github.com/naira-pay/naira_pay/internal/logging"
	"github.com/naira-pay/naira_pay/internal/paystack"
	"github.com/naira-pay/naira_pay/internal/storage"
	"github.com/naira-pay/naira_pay/internal/wallet"
)

type fakeGateway struct {
	initCalls    atomic.Int64
	verifyStatus string
	verifyErr    error
	initErr      error
}

func (g *fakeGateway) Initialize(_ context.Context, _ string, _ int64, _ map[string]string) (paystack.Checkout, error) {
	if g.initErr != nil {
		return paystack.Checkout{}, g.initErr
	}
	n := g.initCalls.Add(1)
	ref := fmt.Sprintf("ref-%d", n)
	return paystack.Checkout{
		Reference:        ref,
		AuthorizationURL: "https://checkout.paystack.com/" + ref,
		AccessCode:       "ac_" + ref,
	}, nil
}

func (g *fakeGateway) Verify(_ context.Context, _ string) (paystack.RemoteStatus, error) {
	if g.verifyErr != nil {
		return paystack.RemoteStatus{}, g.verifyErr
	}
	status := g.verifyStatus
	if status == "" {
		status = paystack.RemoteStatusPending
	}
	return paystack.RemoteStatus{Status: status}, nil
}

func (g *fakeGateway) VerifySignature(payload []byte, signature string) bool {
	return signature == "valid"
}

type fixture struct {
	svc     *Service
	gateway *fakeGateway
	wallets *wallet.MemoryRepository
	store   *ledger.MemoryStore
	wallet  wallet.Wallet
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	users := identity.NewMemoryRepository()
	require.NoError(t, users.Create(ctx, identity.User{ID: "user-1", Email: "ada@example.com"}))

	wallets := wallet.NewMemoryRepository()
	w, err := wallets.Create(ctx, "user-1")
	require.NoError(t, err)

	store := ledger.NewMemoryStore()
	gateway := &fakeGateway{}

	svc := NewService(Deps{
		Wallets:      wallets,
		Users:        users,
		Store:        store,
		Gateway:      gateway,
		Tx:           storage.NewMemoryTxRunner(wallets, store),
		Logger:       logging.Discard(),
		DedupeWindow: 5 * time.Minute,
		MinAmount:    100,
	})

	return fixture{svc: svc, gateway: gateway, wallets: wallets, store: store, wallet: w}
}

func TestInitiateDepositOpensCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	checkout, err := f.svc.InitiateDeposit(ctx, "user-1", 50000)
	require.NoError(t, err)
	require.Equal(t, "ref-1", checkout.Reference)
	require.Equal(t, ledger.StatusPending, checkout.Status)
	require.False(t, checkout.Reused)

	txn, err := f.store.FindByReference(ctx, "ref-1")
	require.NoError(t, err)
	require.Equal(t, f.wallet.ID, txn.WalletID)
	require.Equal(t, int64(50000), txn.Amount)
	require.Equal(t, ledger.StatusPending, txn.Status)

	// The balance moves only at reconciliation.
	w, err := f.wallets.GetByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Zero(t, w.Balance)
}

func TestInitiateDepositRejectsBelowMinimum(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.InitiateDeposit(context.Background(), "user-1", 99)
	require.ErrorIs(t, err, ErrInvalidAmount)
	require.Zero(t, f.gateway.initCalls.Load())
}

func TestInitiateDepositReusesRecentPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.InitiateDeposit(ctx, "user-1", 50000)
	require.NoError(t, err)

	second, err := f.svc.InitiateDeposit(ctx, "user-1", 50000)
	require.NoError(t, err)
	require.True(t, second.Reused)
	require.Equal(t, first.Reference, second.Reference)
	require.Equal(t, first.AuthorizationURL, second.AuthorizationURL)
	require.Equal(t, int64(1), f.gateway.initCalls.Load(), "no second checkout session")

	// A different amount gets its own session.
	third, err := f.svc.InitiateDeposit(ctx, "user-1", 70000)
	require.NoError(t, err)
	require.False(t, third.Reused)
	require.NotEqual(t, first.Reference, third.Reference)
}

func TestInitiateDepositIgnoresStalePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.InitiateDeposit(ctx, "user-1", 50000)
	require.NoError(t, err)
	txn, err := f.store.FindByReference(ctx, first.Reference)
	require.NoError(t, err)
	f.store.Backdate(txn.ID, time.Now().UTC().Add(-6*time.Minute))

	second, err := f.svc.InitiateDeposit(ctx, "user-1", 50000)
	require.NoError(t, err)
	require.False(t, second.Reused)
	require.NotEqual(t, first.Reference, second.Reference)
}

func TestInitiateDepositGatewayFailure(t *testing.T) {
	f := newFixture(t)
	f.gateway.initErr = fmt.Errorf("%w: connect refused", paystack.ErrGateway)

	_, err := f.svc.InitiateDeposit(context.Background(), "user-1", 50000)
	require.ErrorIs(t, err, paystack.ErrGateway)

	// Nothing was recorded.
	txns, err := f.store.ListForWallet(context.Background(), f.wallet.ID, 10, 0)
	require.NoError(t, err)
	require.Empty(t, txns)
}

func TestReconcileDepositCreditsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	checkout, err := f.svc.InitiateDeposit(ctx, "user-1", 50000)
	require.NoError(t, err)
	paidAt := time.Now().UTC()

	require.NoError(t, f.svc.ReconcileDeposit(ctx, checkout.Reference, 50000, paidAt))

	w, err := f.wallets.GetByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(50000), w.Balance)

	txn, err := f.store.FindByReference(ctx, checkout.Reference)
	require.NoError(t, err)
	require.Equal(t, ledger.StatusSuccess, txn.Status)
	require.NotNil(t, txn.PaidAt)

	// Redelivered webhooks must not credit again.
	require.NoError(t, f.svc.ReconcileDeposit(ctx, checkout.Reference, 50000, paidAt))
	require.NoError(t, f.svc.ReconcileDeposit(ctx, checkout.Reference, 50000, paidAt))

	w, err = f.wallets.GetByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(50000), w.Balance)
}

func TestConcurrentReconcileCreditsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	checkout, err := f.svc.InitiateDeposit(ctx, "user-1", 50000)
	require.NoError(t, err)
	paidAt := time.Now().UTC()

	// A provider can retry delivery before the first attempt settles.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, f.svc.ReconcileDeposit(ctx, checkout.Reference, 50000, paidAt))
		}()
	}
	wg.Wait()

	w, err := f.wallets.GetByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(50000), w.Balance, "racing deliveries must credit exactly once")

	txn, err := f.store.FindByReference(ctx, checkout.Reference)
	require.NoError(t, err)
	require.Equal(t, ledger.StatusSuccess, txn.Status)
}

func TestReconcileDepositCreditsRecordedAmountOnMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	checkout, err := f.svc.InitiateDeposit(ctx, "user-1", 50000)
	require.NoError(t, err)

	require.NoError(t, f.svc.ReconcileDeposit(ctx, checkout.Reference, 999999, time.Now().UTC()))

	w, err := f.wallets.GetByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(50000), w.Balance)
}

func TestReconcileDepositUnknownReference(t *testing.T) {
	f := newFixture(t)
	err := f.svc.ReconcileDeposit(context.Background(), "no-such-ref", 100, time.Now().UTC())
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestDepositStatusSettlesPendingViaVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	checkout, err := f.svc.InitiateDeposit(ctx, "user-1", 50000)
	require.NoError(t, err)
	f.gateway.verifyStatus = paystack.RemoteStatusSuccess

	result, err := f.svc.DepositStatus(ctx, "user-1", checkout.Reference)
	require.NoError(t, err)
	require.True(t, result.GatewayChecked)
	require.Equal(t, ledger.StatusSuccess, result.Transaction.Status)

	w, err := f.wallets.GetByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(50000), w.Balance)
}

func TestDepositStatusMarksFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	checkout, err := f.svc.InitiateDeposit(ctx, "user-1", 50000)
	require.NoError(t, err)
	f.gateway.verifyStatus = paystack.RemoteStatusFailed

	result, err := f.svc.DepositStatus(ctx, "user-1", checkout.Reference)
	require.NoError(t, err)
	require.Equal(t, ledger.StatusFailed, result.Transaction.Status)

	w, err := f.wallets.GetByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Zero(t, w.Balance)
}

func TestDepositStatusDegradesWhenProviderDown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	checkout, err := f.svc.InitiateDeposit(ctx, "user-1", 50000)
	require.NoError(t, err)
	f.gateway.verifyErr = fmt.Errorf("%w: timeout", paystack.ErrGateway)

	result, err := f.svc.DepositStatus(ctx, "user-1", checkout.Reference)
	require.NoError(t, err)
	require.False(t, result.GatewayChecked)
	require.Equal(t, ledger.StatusPending, result.Transaction.Status)
}

func TestDepositStatusHidesOtherWalletsTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	checkout, err := f.svc.InitiateDeposit(ctx, "user-1", 50000)
	require.NoError(t, err)

	users := identity.NewMemoryRepository()
	require.NoError(t, users.Create(ctx, identity.User{ID: "user-2", Email: "eve@example.com"}))
	_, err = f.wallets.Create(ctx, "user-2")
	require.NoError(t, err)

	_, err = f.svc.DepositStatus(ctx, "user-2", checkout.Reference)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}
