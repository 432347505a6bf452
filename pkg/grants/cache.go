package grants

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// CachedStore is a Redis read-through cache in front of a grant store.
// Lookups are cached with a short TTL; every write goes to the backing store
// first and then refreshes the cache, so readers never observe a stale value
// after a toggle on the same instance's cache.
type CachedStore struct {
	inner Store
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCachedStore wraps inner with a Redis cache.
func NewCachedStore(inner Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedStore{inner: inner, rdb: rdb, ttl: ttl}
}

func cacheKey(email, resourceID string) string {
	return fmt.Sprintf("canopy:grant:%s:%s", email, resourceID)
}

// Get returns the cached grant if present, falling back to the backing
// store. Cache failures degrade to a direct store read.
func (c *CachedStore) Get(ctx context.Context, email, resourceID string) (*Grant, error) {
	key := cacheKey(email, resourceID)
	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		grant := &Grant{}
		if err := json.Unmarshal(data, grant); err == nil {
			return grant, nil
		}
		// Corrupt entry; drop it and fall through to the store.
		c.rdb.Del(ctx, key)
	}

	grant, err := c.inner.Get(ctx, email, resourceID)
	if err != nil {
		return nil, err
	}
	c.cache(ctx, grant)
	return grant, nil
}

// ListForSubject is a pass-through; list results are not cached.
func (c *CachedStore) ListForSubject(ctx context.Context, email string) ([]*Grant, error) {
	return c.inner.ListForSubject(ctx, email)
}

// Set writes through to the backing store and refreshes the cache.
func (c *CachedStore) Set(ctx context.Context, email, resourceID string, access bool) (*Grant, error) {
	grant, err := c.inner.Set(ctx, email, resourceID, access)
	if err != nil {
		return nil, err
	}
	c.cache(ctx, grant)
	return grant, nil
}

func (c *CachedStore) cache(ctx context.Context, grant *Grant) {
	data, err := json.Marshal(grant)
	if err != nil {
		return
	}
	// Best effort: a failed cache write only costs a future DB read.
	c.rdb.Set(ctx, cacheKey(grant.SubjectEmail, grant.ResourceID), data, c.ttl)
}
