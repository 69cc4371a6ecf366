package catalog

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Cache owns one Catalog per workspace/connection key (typically a DSN or a
// static snapshot path), so multiple open documents against the same
// database share one live backend and one refresh cycle instead of each
// paying its own introspection round trip. Construction is
// singleflight-guarded; a lookup of an already-built entry only takes the
// short mutex around the LRU and never waits on a construction.
type Cache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, Catalog]
	group   singleflight.Group
}

// NewCache builds a Cache holding up to capacity catalogs, evicting the
// least recently used when full (following the teacher's core/cache.go
// golang-lru/v2 usage).
func NewCache(capacity int) (*Cache, error) {
	l, err := lru.New[string, Catalog](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: l}, nil
}

// GetOrBuild returns the Catalog for key, building it via build if absent.
// Concurrent callers racing on the same key share one build call.
func (c *Cache) GetOrBuild(ctx context.Context, key string, build func(context.Context) (Catalog, error)) (Catalog, error) {
	c.mu.Lock()
	if cat, ok := c.entries.Get(key); ok {
		c.mu.Unlock()
		return cat, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		c.mu.Lock()
		if cat, ok := c.entries.Get(key); ok {
			c.mu.Unlock()
			return cat, nil
		}
		c.mu.Unlock()

		cat, err := build(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries.Add(key, cat)
		c.mu.Unlock()
		return cat, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Catalog), nil
}

// Invalidate evicts key's catalog, closing it first, so the next
// GetOrBuild rebuilds from scratch (used on workspace/config changes).
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	cat, ok := c.entries.Peek(key)
	c.entries.Remove(key)
	c.mu.Unlock()
	if ok {
		_ = cat.Close()
	}
}

// Close closes every cached catalog.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.entries.Keys() {
		if cat, ok := c.entries.Peek(key); ok {
			_ = cat.Close()
		}
	}
	c.entries.Purge()
	return nil
}
