// Package cache stores rendered tiles keyed by their render parameters.
//
// Four backends are provided: null (caching disabled), file (local
// directory, suits single-host CLI use), redis, and mongo (shared caches
// for server deployments). All of them implement the same Cache interface
// and are selected by name through Open, so callers never depend on a
// concrete backend.
//
// Cached values are opaque bytes; for tiles that means encoded PNGs. Key
// derivation lives in keys.go and folds every parameter that changes tile
// bytes into the key, so a cache can be shared by servers with different
// render settings without collisions.
package cache

import (
	"context"
	"time"

	"github.com/maplibre/maplibre-native-go/pkg/errors"
)

// Cache is a byte store with optional expiry. Implementations must be safe
// for concurrent use.
type Cache interface {
	// Get returns the cached value and whether it was present. A miss is
	// (nil, false, nil); errors are reserved for backend failures.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Config selects and configures a cache backend.
type Config struct {
	// Backend is one of "null", "file", "redis", "mongo". Empty means null.
	Backend string

	// Dir is the storage directory for the file backend.
	Dir string

	// RedisURL is a redis:// connection URL for the redis backend.
	RedisURL string

	// MongoURI, MongoDatabase, and MongoCollection configure the mongo
	// backend. Database and collection default to "maplibre" and "tiles".
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	// KeyPrefix namespaces every key, so deployments can share one
	// backing store.
	KeyPrefix string

	// TTL is the default expiry applied by callers that do not choose
	// their own. Zero means entries never expire.
	TTL time.Duration
}

// Open constructs the cache selected by cfg. Network backends are dialed
// and pinged here, so a misconfigured cache fails at startup rather than
// on the first request.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	var (
		c   Cache
		err error
	)
	switch cfg.Backend {
	case "", "null":
		c = NewNullCache()
	case "file":
		if cfg.Dir == "" {
			return nil, errors.New(errors.ErrCodeConfig, "file cache requires a directory")
		}
		c, err = NewFileCache(cfg.Dir)
	case "redis":
		c, err = NewRedisCache(ctx, cfg.RedisURL)
	case "mongo":
		c, err = NewMongoCache(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	default:
		return nil, errors.New(errors.ErrCodeConfig, "unknown cache backend %q (available: null, file, redis, mongo)", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.KeyPrefix != "" {
		c = WithPrefix(c, cfg.KeyPrefix)
	}
	return c, nil
}

// prefixedCache namespaces an inner cache. Useful when several deployments
// or tenants share one redis or mongo instance.
type prefixedCache struct {
	inner  Cache
	prefix string
}

// WithPrefix wraps c so every key is prepended with prefix.
func WithPrefix(c Cache, prefix string) Cache {
	return &prefixedCache{inner: c, prefix: prefix}
}

func (c *prefixedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return c.inner.Get(ctx, c.prefix+key)
}

func (c *prefixedCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.inner.Set(ctx, c.prefix+key, data, ttl)
}

func (c *prefixedCache) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, c.prefix+key)
}

func (c *prefixedCache) Close() error {
	return c.inner.Close()
}
