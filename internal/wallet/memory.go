package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is a concurrency-safe in-memory wallet store for tests and
// the database-less dev mode. It snapshots for the memory unit of work.
type MemoryRepository struct {
	mu       sync.RWMutex
	byID     map[string]Wallet
	byOwner  map[string]string
	byNumber map[string]string
}

// NewMemoryRepository constructs an in-memory wallet repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:     make(map[string]Wallet),
		byOwner:  make(map[string]string),
		byNumber: make(map[string]string),
	}
}

func (r *MemoryRepository) Create(_ context.Context, ownerID string) (Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byOwner[ownerID]; exists {
		return Wallet{}, ErrExists
	}

	for attempt := 0; attempt < numberRetries; attempt++ {
		number, err := newWalletNumber()
		if err != nil {
			return Wallet{}, err
		}
		if _, taken := r.byNumber[number]; taken {
			continue
		}

		w := Wallet{
			ID:           uuid.NewString(),
			OwnerID:      ownerID,
			WalletNumber: number,
			CreatedAt:    time.Now().UTC(),
		}
		r.byID[w.ID] = w
		r.byOwner[ownerID] = w.ID
		r.byNumber[number] = w.ID
		return w, nil
	}

	return Wallet{}, ErrNumberExhausted
}

func (r *MemoryRepository) GetByOwner(_ context.Context, ownerID string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byOwner[ownerID]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryRepository) GetByNumber(_ context.Context, number string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byNumber[number]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryRepository) GetForUpdate(ctx context.Context, id string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.byID[id]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return w, nil
}

func (r *MemoryRepository) AdjustBalance(_ context.Context, id string, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if w.Balance+delta < 0 {
		return ErrInsufficientFunds
	}
	w.Balance += delta
	r.byID[id] = w
	return nil
}

type memorySnapshot struct {
	byID     map[string]Wallet
	byOwner  map[string]string
	byNumber map[string]string
}

// Snapshot captures the full store state for the memory unit of work.
func (r *MemoryRepository) Snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return memorySnapshot{
		byID:     copyMap(r.byID),
		byOwner:  copyMap(r.byOwner),
		byNumber: copyMap(r.byNumber),
	}
}

// Restore rolls the store back to a previously captured snapshot.
func (r *MemoryRepository) Restore(snapshot any) {
	snap, ok := snapshot.(memorySnapshot)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = copyMap(snap.byID)
	r.byOwner = copyMap(snap.byOwner)
	r.byNumber = copyMap(snap.byNumber)
}

func copyMap[V any](src map[string]V) map[string]V {
	dst := make(map[string]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// SeedBalance force-sets a wallet balance. Test helper.
func (r *MemoryRepository) SeedBalance(id string, balance int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.byID[id]; ok {
		w.Balance = balance
		r.byID[id] = w
	}
}
