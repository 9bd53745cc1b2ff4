package apikeys

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxActiveKeys = 5

var validPermissions = map[string]bool{
	PermissionRead:     true,
	PermissionDeposit:  true,
	PermissionTransfer: true,
}

// Service manages API key lifecycle: issue, verify, rollover, revoke.
type Service struct {
	repo Repository
}

// NewService builds an API key service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput captures an API key issuance request.
type CreateInput struct {
	UserID      string
	Name        string
	Permissions []string
	// TTL of zero means the key never expires.
	TTL time.Duration
}

// Create issues a new key. The raw secret is returned exactly once.
func (s *Service) Create(ctx context.Context, input CreateInput) (Key, string, error) {
	if len(input.Permissions) == 0 {
		return Key{}, "", errors.New("at least one permission is required")
	}
	for _, p := range input.Permissions {
		if !validPermissions[p] {
			return Key{}, "", fmt.Errorf("unknown permission %q", p)
		}
	}

	existing, err := s.repo.ListByUser(ctx, input.UserID)
	if err != nil {
		return Key{}, "", err
	}
	now := time.Now().UTC()
	active := 0
	for _, key := range existing {
		if key.Active(now) {
			active++
		}
	}
	if active >= maxActiveKeys {
		return Key{}, "", fmt.Errorf("maximum %d active api keys allowed", maxActiveKeys)
	}

	raw, digest, err := newSecret()
	if err != nil {
		return Key{}, "", err
	}

	key := Key{
		ID:          uuid.NewString(),
		UserID:      input.UserID,
		Digest:      digest,
		Name:        input.Name,
		Permissions: input.Permissions,
		CreatedAt:   now,
	}
	if input.TTL > 0 {
		expires := now.Add(input.TTL)
		key.ExpiresAt = &expires
	}

	if err := s.repo.Create(ctx, key); err != nil {
		return Key{}, "", err
	}
	return key, KeyPrefix + raw, nil
}

// Rollover replaces the secret of an expired key, keeping its permissions.
func (s *Service) Rollover(ctx context.Context, userID, keyID string, ttl time.Duration) (Key, string, error) {
	key, err := s.repo.FindByID(ctx, userID, keyID)
	if err != nil {
		return Key{}, "", err
	}

	now := time.Now().UTC()
	if key.RevokedAt != nil {
		return Key{}, "", errors.New("cannot rollover a revoked api key")
	}
	if !key.Expired(now) {
		return Key{}, "", errors.New("can only rollover expired api keys")
	}

	raw, digest, err := newSecret()
	if err != nil {
		return Key{}, "", err
	}

	var expiresAt *time.Time
	if ttl > 0 {
		expires := now.Add(ttl)
		expiresAt = &expires
	}
	if err := s.repo.Replace(ctx, key.ID, digest, expiresAt); err != nil {
		return Key{}, "", err
	}

	key.Digest = digest
	key.ExpiresAt = expiresAt
	key.RevokedAt = nil
	return key, KeyPrefix + raw, nil
}

// Revoke disables a key immediately.
func (s *Service) Revoke(ctx context.Context, userID, keyID string) error {
	key, err := s.repo.FindByID(ctx, userID, keyID)
	if err != nil {
		return err
	}
	return s.repo.Revoke(ctx, key.ID, time.Now().UTC())
}

// List returns the user's keys, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Key, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Verify resolves a raw key to its owner and permissions. Returns ErrNotFound
// for unknown, expired or revoked keys.
func (s *Service) Verify(ctx context.Context, rawKey string) (Key, error) {
	secret := strings.TrimPrefix(rawKey, KeyPrefix)
	if secret == "" {
		return Key{}, ErrNotFound
	}

	key, err := s.repo.FindByDigest(ctx, digestOf(secret))
	if err != nil {
		return Key{}, err
	}
	if !key.Active(time.Now().UTC()) {
		return Key{}, ErrNotFound
	}
	return key, nil
}

func newSecret() (raw, digest string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate api key: %w", err)
	}
	raw = hex.EncodeToString(buf)
	return raw, digestOf(raw), nil
}

func digestOf(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
