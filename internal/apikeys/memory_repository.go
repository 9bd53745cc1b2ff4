package apikeys

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu   sync.RWMutex
	byID map[string]Key
}

// NewMemoryRepository builds an in-memory API key store for tests and dev mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{byID: make(map[string]Key)}
}

func (r *memoryRepository) Create(_ context.Context, key Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[key.ID] = key
	return nil
}

func (r *memoryRepository) FindByDigest(_ context.Context, digest string) (Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, key := range r.byID {
		if key.Digest == digest {
			return key, nil
		}
	}
	return Key{}, ErrNotFound
}

func (r *memoryRepository) FindByID(_ context.Context, userID, id string) (Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.byID[id]
	if !ok || key.UserID != userID {
		return Key{}, ErrNotFound
	}
	return key, nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string) ([]Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var keys []Key
	for _, key := range r.byID {
		if key.UserID == userID {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].CreatedAt.After(keys[j].CreatedAt) })
	return keys, nil
}

func (r *memoryRepository) Replace(_ context.Context, id, digest string, expiresAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	key.Digest = digest
	key.ExpiresAt = expiresAt
	key.RevokedAt = nil
	r.byID[id] = key
	return nil
}

func (r *memoryRepository) Revoke(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.byID[id]
	if !ok || key.RevokedAt != nil {
		return ErrNotFound
	}
	revoked := at.UTC()
	key.RevokedAt = &revoked
	r.byID[id] = key
	return nil
}
