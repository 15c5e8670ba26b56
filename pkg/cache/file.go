package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/stackgraph/pkg/errors"
	"github.com/matzehuels/stackgraph/pkg/observability"
)

// DefaultFileTTL is the lifetime of entries in the default on-disk cache.
const DefaultFileTTL = 7 * 24 * time.Hour

// ErrExpired is returned by [FileCache.Get] when an entry exists but has
// outlived the cache's TTL. Callers treat it as a miss and overwrite the
// entry with [FileCache.Set].
var ErrExpired = errors.New(errors.ErrCodeNotFound, "cache entry expired")

// FileCache stores artifacts as files named by the SHA-256 of their key.
// Entries expire by modification time; a TTL of 0 keeps them forever.
//
// Multiple processes may share a directory: every entry is written to a
// temporary file and renamed into place.
type FileCache struct {
	dir    string
	ttl    time.Duration
	prefix string
}

// DefaultDir returns ~/.cache/stackgraph.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "locate home directory")
	}
	return filepath.Join(home, ".cache", "stackgraph"), nil
}

// NewFileCache creates a cache in dir, creating the directory if needed. An
// empty dir selects [DefaultDir].
func NewFileCache(dir string, ttl time.Duration) (*FileCache, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create cache dir %s", dir)
	}
	return &FileCache{dir: dir, ttl: ttl}, nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string { return c.dir }

// TTL returns the entry lifetime.
func (c *FileCache) TTL() time.Duration { return c.ttl }

// Namespace returns a view of the cache whose keys are prefixed with prefix.
func (c *FileCache) Namespace(prefix string) *FileCache {
	return &FileCache{dir: c.dir, ttl: c.ttl, prefix: c.prefix + prefix}
}

// Get returns the data stored under key. An expired entry yields
// [ErrExpired].
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.keyPath(key)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		observability.Cache().OnCacheMiss(ctx, "file")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "stat cache entry")
	}
	if c.ttl > 0 && time.Since(info.ModTime()) > c.ttl {
		observability.Cache().OnCacheMiss(ctx, "file")
		return nil, false, ErrExpired
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "read cache entry")
	}
	observability.Cache().OnCacheHit(ctx, "file")
	return data, true, nil
}

// Set writes data under key, refreshing its TTL.
func (c *FileCache) Set(ctx context.Context, key string, data []byte) error {
	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create cache entry")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(errors.ErrCodeInternal, err, "write cache entry")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(errors.ErrCodeInternal, err, "write cache entry")
	}
	if err := os.Rename(tmp.Name(), c.keyPath(key)); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(errors.ErrCodeInternal, err, "store cache entry")
	}
	observability.Cache().OnCacheSet(ctx, "file", len(data))
	return nil
}

// Delete removes key. Missing keys are not an error.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	if err := os.Remove(c.keyPath(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeInternal, err, "delete cache entry")
	}
	return nil
}

// Clear removes every entry in the cache directory, across namespaces, and
// returns how many were removed.
func (c *FileCache) Clear() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrap(errors.ErrCodeInternal, err, "list cache dir")
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err == nil {
			n++
		}
	}
	return n, nil
}

// Close is a no-op; entries live on disk.
func (c *FileCache) Close() error { return nil }

func (c *FileCache) keyPath(key string) string {
	return filepath.Join(c.dir, Hash([]byte(c.prefix+key)))
}

var _ Cache = (*FileCache)(nil)
