// Package cache holds the engine's memoization layers.
//
// [ModelCache] keeps the (trie, layout) pair for the most recent snapshot,
// filter and display options, rebuilding only what is stale. [Cache] is a
// small byte cache for rendered artifacts, keyed with [Key]; the HTTP server
// uses it to avoid re-rendering an unchanged model.
package cache

import "context"

// Cache stores rendered artifacts by key.
type Cache interface {
	// Get returns the data for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key.
	Set(ctx context.Context, key string, data []byte) error

	// Delete removes key.
	Delete(ctx context.Context, key string) error

	// Close releases resources.
	Close() error
}

// NullCache stores nothing; every Get misses. Runners use it when artifact or
// result caching is turned off.
type NullCache struct{}

var _ Cache = (*NullCache)(nil)

// NewNullCache returns a cache that never hits.
func NewNullCache() Cache { return &NullCache{} }

func (*NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (*NullCache) Set(context.Context, string, []byte) error         { return nil }
func (*NullCache) Delete(context.Context, string) error              { return nil }
func (*NullCache) Close() error                                      { return nil }
