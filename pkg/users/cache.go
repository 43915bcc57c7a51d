package users

import (
	"context"
	"sync"
	"time"

	"mycloud/pkg/models"
	"mycloud/pkg/quota"
)

type cacheEntry struct {
	role    models.Role
	expires time.Time
}

// Cache keeps looked up roles in memory in front of a quota.Directory.
// With a non-positive TTL every lookup goes to the directory.
type Cache struct {
	directory quota.Directory
	ttl       time.Duration
	now       func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

var _ quota.Directory = (*Cache)(nil)

// NewCache wraps directory with a role cache.
func NewCache(directory quota.Directory, ttl time.Duration) *Cache {
	return &Cache{
		directory: directory,
		ttl:       ttl,
		now:       time.Now,
		entries:   make(map[string]cacheEntry),
	}
}

// Role returns the cached role of userID or looks it up. Errors are not cached.
func (c *Cache) Role(ctx context.Context, userID string) (models.Role, error) {
	if c.ttl <= 0 {
		return c.directory.Role(ctx, userID)
	}

	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()

	if ok && c.now().Before(entry.expires) {
		return entry.role, nil
	}

	role, err := c.directory.Role(ctx, userID)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.entries[userID] = cacheEntry{role: role, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return role, nil
}

// Invalidate drops the cached role of userID.
func (c *Cache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

// InvalidateAll drops every cached role.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// CachedStore is a Store whose role reads go through a Cache.
// Mutations invalidate the affected entries.
type CachedStore struct {
	*Store
	cache *Cache
}

var _ quota.Directory = (*CachedStore)(nil)

// NewCachedStore wraps store with a role cache of the given TTL.
func NewCachedStore(store *Store, ttl time.Duration) *CachedStore {
	return &CachedStore{
		Store: store,
		cache: NewCache(store, ttl),
	}
}

// Role returns the role of userID through the cache.
func (c *CachedStore) Role(ctx context.Context, userID string) (models.Role, error) {
	return c.cache.Role(ctx, userID)
}

// SetRole updates the store and drops the cached role.
func (c *CachedStore) SetRole(ctx context.Context, userID string, role models.Role) (*Record, error) {
	defer c.cache.Invalidate(userID)
	return c.Store.SetRole(ctx, userID, role)
}

// Delete removes the entry and drops the cached role.
func (c *CachedStore) Delete(ctx context.Context, userID string) error {
	defer c.cache.Invalidate(userID)
	return c.Store.Delete(ctx, userID)
}

// Import loads a users file and drops the whole cache.
func (c *CachedStore) Import(ctx context.Context, path string) (int, error) {
	defer c.cache.InvalidateAll()
	return c.Store.Import(ctx, path)
}

// Invalidate drops the cached role of userID.
func (c *CachedStore) Invalidate(userID string) {
	c.cache.Invalidate(userID)
}

// InvalidateAll drops every cached role.
func (c *CachedStore) InvalidateAll() {
	c.cache.InvalidateAll()
}
