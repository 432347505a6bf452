package accounts

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopyhq/canopy/pkg/roles"
)

type countingDirectory struct {
	*MemoryDirectory
	reads int64
}

func (c *countingDirectory) GetByEmail(ctx context.Context, email string) (*Account, error) {
	atomic.AddInt64(&c.reads, 1)
	return c.MemoryDirectory.GetByEmail(ctx, email)
}

func (c *countingDirectory) GetByID(ctx context.Context, id string) (*Account, error) {
	atomic.AddInt64(&c.reads, 1)
	return c.MemoryDirectory.GetByID(ctx, id)
}

func newTestCachedDirectory(t *testing.T) (*CachedDirectory, *countingDirectory) {
	t.Helper()
	inner := &countingDirectory{MemoryDirectory: NewMemoryDirectory()}
	return NewCachedDirectory(inner, 16, time.Minute), inner
}

func seedAccount(t *testing.T, dir Directory, email string, role roles.Role, home string) *Account {
	t.Helper()
	account := &Account{Email: email, Role: role, HomeAgencyID: home}
	require.NoError(t, dir.Create(context.Background(), account))
	return account
}

func TestCachedDirectoryReads(t *testing.T) {
	cache, inner := newTestCachedDirectory(t)
	ctx := context.Background()
	seeded := seedAccount(t, inner.MemoryDirectory, "m@agency.test", roles.AccountUser, "agency-1")

	byEmail, err := cache.GetByEmail(ctx, "m@agency.test")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, byEmail.ID)

	// Both key spaces were warmed by the first read.
	_, err = cache.GetByEmail(ctx, "m@agency.test")
	require.NoError(t, err)
	_, err = cache.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inner.reads)
}

func TestCachedDirectorySetRoleInvalidates(t *testing.T) {
	cache, inner := newTestCachedDirectory(t)
	ctx := context.Background()
	seeded := seedAccount(t, inner.MemoryDirectory, "m@agency.test", roles.AccountUser, "agency-1")

	_, err := cache.GetByID(ctx, seeded.ID)
	require.NoError(t, err)

	require.NoError(t, cache.SetRole(ctx, seeded.ID, roles.AgencyAdmin, "agency-1"))

	// Next read must come from the directory, not the stale cache entry.
	account, err := cache.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, roles.AgencyAdmin, account.Role)

	account, err = cache.GetByEmail(ctx, "m@agency.test")
	require.NoError(t, err)
	assert.Equal(t, roles.AgencyAdmin, account.Role)
}

func TestCachedDirectoryMiss(t *testing.T) {
	cache, _ := newTestCachedDirectory(t)

	_, err := cache.GetByEmail(context.Background(), "ghost@agency.test")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachedDirectoryCopiesResults(t *testing.T) {
	cache, inner := newTestCachedDirectory(t)
	ctx := context.Background()
	seeded := seedAccount(t, inner.MemoryDirectory, "m@agency.test", roles.AccountUser, "agency-1")

	first, err := cache.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	first.Role = roles.AgencyOwner // caller mutation must not poison the cache

	second, err := cache.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, roles.AccountUser, second.Role)
}
