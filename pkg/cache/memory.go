package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/matzehuels/stackgraph/pkg/errors"
	"github.com/matzehuels/stackgraph/pkg/observability"
)

// DefaultMemoryEntries is the default capacity of a [MemoryCache].
const DefaultMemoryEntries = 64

// MemoryCache is an in-process LRU cache of rendered artifacts. It is safe
// for concurrent use.
type MemoryCache struct {
	keyType string
	entries *lru.Cache[string, []byte]
}

// NewMemoryCache creates an LRU cache holding up to size entries. keyType
// labels hit and miss events reported to the observability hooks.
func NewMemoryCache(keyType string, size int) (*MemoryCache, error) {
	if size <= 0 {
		size = DefaultMemoryEntries
	}
	entries, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create lru cache")
	}
	return &MemoryCache{keyType: keyType, entries: entries}, nil
}

// Get returns the cached data for key.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok := c.entries.Get(key)
	if ok {
		observability.Cache().OnCacheHit(ctx, c.keyType)
	} else {
		observability.Cache().OnCacheMiss(ctx, c.keyType)
	}
	return data, ok, nil
}

// Set stores data under key, evicting the least recently used entry when
// full.
func (c *MemoryCache) Set(ctx context.Context, key string, data []byte) error {
	c.entries.Add(key, data)
	observability.Cache().OnCacheSet(ctx, c.keyType, len(data))
	return nil
}

// Delete removes key.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.entries.Remove(key)
	return nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int { return c.entries.Len() }

// Close purges the cache.
func (c *MemoryCache) Close() error {
	c.entries.Purge()
	return nil
}

var _ Cache = (*MemoryCache)(nil)
