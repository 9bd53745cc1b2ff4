package storage

import (
	"context"
	"sync"
)

// Snapshotter is implemented by in-memory stores that can capture and restore
// their full state, giving the memory unit of work rollback semantics.
type Snapshotter interface {
	Snapshot() any
	Restore(snapshot any)
}

// MemoryTxRunner serializes units of work under a single mutex and restores
// the registered stores' snapshots when fn fails, mirroring what the
// Postgres runner gets from ROLLBACK. Intended for tests and the in-memory
// dev mode.
type MemoryTxRunner struct {
	mu     sync.Mutex
	stores []Snapshotter
}

// NewMemoryTxRunner builds a memory unit-of-work runner over the given stores.
func NewMemoryTxRunner(stores ...Snapshotter) *MemoryTxRunner {
	return &MemoryTxRunner{stores: stores}
}

// RunInTx runs fn while holding the runner lock. On error every registered
// store is restored to its pre-fn state.
func (r *MemoryTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshots := make([]any, len(r.stores))
	for i, s := range r.stores {
		snapshots[i] = s.Snapshot()
	}

	if err := fn(ctx); err != nil {
		for i, s := range r.stores {
			s.Restore(snapshots[i])
		}
		return err
	}

	return nil
}
