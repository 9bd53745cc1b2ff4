package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a concurrency-safe in-memory transaction log for tests and
// the database-less dev mode. It snapshots for the memory unit of work.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]Transaction
	byRef map[string]string
}

// NewMemoryStore constructs an in-memory transaction log.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[string]Transaction),
		byRef: make(map[string]string),
	}
}

func (s *MemoryStore) RecordPendingDeposit(_ context.Context, walletID string, amount int64, reference string, metadata map[string]string) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, fmt.Errorf("amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byRef[reference]; exists {
		return Transaction{}, ErrDuplicateReference
	}

	txn := Transaction{
		ID:        uuid.NewString(),
		WalletID:  walletID,
		Amount:    amount,
		Type:      TypeDeposit,
		Status:    StatusPending,
		Reference: reference,
		Metadata:  copyMeta(metadata),
		CreatedAt: time.Now().UTC(),
	}
	s.byID[txn.ID] = txn
	s.byRef[reference] = txn.ID
	return txn, nil
}

func (s *MemoryStore) FindPendingDepositDuplicate(_ context.Context, walletID string, amount int64, window time.Duration) (Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().UTC().Add(-window)
	var newest Transaction
	found := false
	for _, txn := range s.byID {
		if txn.WalletID != walletID || txn.Amount != amount || txn.Type != TypeDeposit || txn.Status != StatusPending {
			continue
		}
		if txn.CreatedAt.Before(cutoff) {
			continue
		}
		if !found || txn.CreatedAt.After(newest.CreatedAt) {
			newest = txn
			found = true
		}
	}
	if !found {
		return Transaction{}, ErrNotFound
	}
	return newest, nil
}

func (s *MemoryStore) FindByReference(_ context.Context, reference string) (Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byRef[reference]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return s.byID[id], nil
}

// FindByReferenceForUpdate behaves like FindByReference; the memory unit of
// work already serializes writers.
func (s *MemoryStore) FindByReferenceForUpdate(ctx context.Context, reference string) (Transaction, error) {
	return s.FindByReference(ctx, reference)
}

func (s *MemoryStore) MarkSuccess(_ context.Context, id string, paidAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if txn.Status != StatusPending {
		return nil // already terminal
	}
	txn.Status = StatusSuccess
	paid := paidAt.UTC()
	txn.PaidAt = &paid
	s.byID[id] = txn
	return nil
}

func (s *MemoryStore) MarkFailed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if txn.Status != StatusPending {
		return nil
	}
	txn.Status = StatusFailed
	s.byID[id] = txn
	return nil
}

func (s *MemoryStore) RecordTransferPair(_ context.Context, debitWalletID, creditWalletID string, amount int64, debitMeta, creditMeta map[string]string) (Transaction, Transaction, error) {
	if amount <= 0 {
		return Transaction{}, Transaction{}, fmt.Errorf("amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	debit := Transaction{
		ID:        uuid.NewString(),
		WalletID:  debitWalletID,
		Amount:    amount,
		Type:      TypeTransfer,
		Status:    StatusSuccess,
		Metadata:  copyMeta(debitMeta),
		CreatedAt: now,
		PaidAt:    &now,
	}
	credit := Transaction{
		ID:        uuid.NewString(),
		WalletID:  creditWalletID,
		Amount:    amount,
		Type:      TypeTransfer,
		Status:    StatusSuccess,
		Metadata:  copyMeta(creditMeta),
		CreatedAt: now,
		PaidAt:    &now,
	}
	s.byID[debit.ID] = debit
	s.byID[credit.ID] = credit
	return debit, credit, nil
}

func (s *MemoryStore) ListForWallet(_ context.Context, walletID string, limit, offset int) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Transaction
	for _, txn := range s.byID {
		if txn.WalletID == walletID {
			all = append(all, txn)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

type storeSnapshot struct {
	byID  map[string]Transaction
	byRef map[string]string
}

// Snapshot captures the full store state for the memory unit of work.
func (s *MemoryStore) Snapshot() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := storeSnapshot{
		byID:  make(map[string]Transaction, len(s.byID)),
		byRef: make(map[string]string, len(s.byRef)),
	}
	for k, v := range s.byID {
		snap.byID[k] = v
	}
	for k, v := range s.byRef {
		snap.byRef[k] = v
	}
	return snap
}

// Restore rolls the store back to a previously captured snapshot.
func (s *MemoryStore) Restore(snapshot any) {
	snap, ok := snapshot.(storeSnapshot)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]Transaction, len(snap.byID))
	s.byRef = make(map[string]string, len(snap.byRef))
	for k, v := range snap.byID {
		s.byID[k] = v
	}
	for k, v := range snap.byRef {
		s.byRef[k] = v
	}
}

// Backdate shifts a transaction's creation time. Test helper for exercising
// the deposit dedupe window.
func (s *MemoryStore) Backdate(id string, createdAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if txn, ok := s.byID[id]; ok {
		txn.CreatedAt = createdAt
		s.byID[id] = txn
	}
}

func copyMeta(metadata map[string]string) map[string]string {
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
