package accounts

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/canopyhq/canopy/pkg/roles"
)

// CachedDirectory wraps a Directory with an in-process expirable LRU cache.
// Reads on the authorization hot path (every guarded request loads actor and
// target) are served from memory; writes invalidate both key spaces so a
// role change is visible on the next read from this process.
type CachedDirectory struct {
	inner   Directory
	byEmail *expirable.LRU[string, *Account]
	byID    *expirable.LRU[string, *Account]
}

// NewCachedDirectory wraps inner with an LRU cache of the given size and TTL.
func NewCachedDirectory(inner Directory, size int, ttl time.Duration) *CachedDirectory {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedDirectory{
		inner:   inner,
		byEmail: expirable.NewLRU[string, *Account](size, nil, ttl),
		byID:    expirable.NewLRU[string, *Account](size, nil, ttl),
	}
}

// GetByEmail returns the cached account if present.
func (c *CachedDirectory) GetByEmail(ctx context.Context, email string) (*Account, error) {
	if account, ok := c.byEmail.Get(email); ok {
		cp := *account
		return &cp, nil
	}
	account, err := c.inner.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	c.cache(account)
	return account, nil
}

// GetByID returns the cached account if present.
func (c *CachedDirectory) GetByID(ctx context.Context, id string) (*Account, error) {
	if account, ok := c.byID.Get(id); ok {
		cp := *account
		return &cp, nil
	}
	account, err := c.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache(account)
	return account, nil
}

// Create inserts through to the backing directory and caches the result.
func (c *CachedDirectory) Create(ctx context.Context, account *Account) error {
	if err := c.inner.Create(ctx, account); err != nil {
		return err
	}
	c.cache(account)
	return nil
}

// SetRole writes through and invalidates the stale entries.
func (c *CachedDirectory) SetRole(ctx context.Context, id string, role roles.Role, homeAgencyID string) error {
	if err := c.inner.SetRole(ctx, id, role, homeAgencyID); err != nil {
		return err
	}
	if account, ok := c.byID.Get(id); ok {
		c.byEmail.Remove(account.Email)
	}
	c.byID.Remove(id)
	return nil
}

func (c *CachedDirectory) cache(account *Account) {
	cp := *account
	c.byEmail.Add(cp.Email, &cp)
	c.byID.Add(cp.ID, &cp)
}
