package apikeys

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateAndVerify(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	key, raw, err := svc.Create(ctx, CreateInput{
		UserID:      "user-1",
		Name:        "backend",
		Permissions: []string{PermissionRead, PermissionDeposit},
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(raw, KeyPrefix))
	require.NotContains(t, key.Digest, raw[len(KeyPrefix):], "digest must not embed the raw secret")

	verified, err := svc.Verify(ctx, raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", verified.UserID)
	require.True(t, verified.HasPermission(PermissionDeposit))
	require.False(t, verified.HasPermission(PermissionTransfer))
}

func TestVerifyRejectsUnknownAndRevoked(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	_, err := svc.Verify(ctx, KeyPrefix+"deadbeef")
	require.ErrorIs(t, err, ErrNotFound)

	key, raw, err := svc.Create(ctx, CreateInput{UserID: "user-1", Name: "ops", Permissions: []string{PermissionRead}})
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, "user-1", key.ID))

	_, err = svc.Verify(ctx, raw)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateEnforcesActiveLimit(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	for i := 0; i < maxActiveKeys; i++ {
		_, _, err := svc.Create(ctx, CreateInput{UserID: "user-1", Name: "k", Permissions: []string{PermissionRead}})
		require.NoError(t, err)
	}
	_, _, err := svc.Create(ctx, CreateInput{UserID: "user-1", Name: "overflow", Permissions: []string{PermissionRead}})
	require.Error(t, err)

	// Another user is unaffected.
	_, _, err = svc.Create(ctx, CreateInput{UserID: "user-2", Name: "k", Permissions: []string{PermissionRead}})
	require.NoError(t, err)
}

func TestCreateRejectsUnknownPermission(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	_, _, err := svc.Create(context.Background(), CreateInput{UserID: "user-1", Permissions: []string{"admin"}})
	require.Error(t, err)
}

func TestRolloverOnlyExpiredKeys(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	live, liveRaw, err := svc.Create(ctx, CreateInput{UserID: "user-1", Name: "live", Permissions: []string{PermissionRead}})
	require.NoError(t, err)

	_, _, err = svc.Rollover(ctx, "user-1", live.ID, 0)
	require.Error(t, err, "a key that has not expired cannot be rolled over")

	expired := time.Now().UTC().Add(-time.Hour)
	stale := Key{
		ID:          "stale-key",
		UserID:      "user-1",
		Digest:      digestOf("old-secret"),
		Name:        "stale",
		Permissions: []string{PermissionTransfer},
		ExpiresAt:   &expired,
		CreatedAt:   expired.Add(-24 * time.Hour),
	}
	require.NoError(t, repo.Create(ctx, stale))

	rolled, raw, err := svc.Rollover(ctx, "user-1", stale.ID, 30*24*time.Hour)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(raw, KeyPrefix))
	require.Equal(t, stale.Permissions, rolled.Permissions)

	verified, err := svc.Verify(ctx, raw)
	require.NoError(t, err)
	require.Equal(t, stale.ID, verified.ID)

	// The live key's secret keeps working.
	_, err = svc.Verify(ctx, liveRaw)
	require.NoError(t, err)
}

func TestRolloverRejectsRevokedKey(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	key, _, err := svc.Create(ctx, CreateInput{UserID: "user-1", Name: "k", Permissions: []string{PermissionRead}, TTL: time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, "user-1", key.ID))

	_, _, err = svc.Rollover(ctx, "user-1", key.ID, 0)
	require.Error(t, err)
}
