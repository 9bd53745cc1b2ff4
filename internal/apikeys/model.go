package apikeys

import "time"

// Permissions an API key can carry.
const (
	PermissionRead     = "read"
	PermissionDeposit  = "deposit"
	PermissionTransfer = "transfer"
)

// KeyPrefix marks raw keys handed to callers.
const KeyPrefix = "sk_live_"

// Key is a stored API key. Only the SHA-256 digest of the raw secret is
// persisted; the raw key is returned once at creation.
type Key struct {
	ID          string
	UserID      string
	Digest      string
	Name        string
	Permissions []string
	ExpiresAt   *time.Time
	RevokedAt   *time.Time
	CreatedAt   time.Time
}

// Active reports whether the key is usable at the given instant.
func (k Key) Active(now time.Time) bool {
	if k.RevokedAt != nil {
		return false
	}
	if k.ExpiresAt != nil && !now.Before(*k.ExpiresAt) {
		return false
	}
	return true
}

// Expired reports whether the key passed its expiry without being revoked.
func (k Key) Expired(now time.Time) bool {
	return k.RevokedAt == nil && k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}

// HasPermission reports whether the key grants the permission.
func (k Key) HasPermission(permission string) bool {
	for _, p := range k.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
