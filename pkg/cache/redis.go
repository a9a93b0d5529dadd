package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maplibre/maplibre-native-go/pkg/errors"
)

// connectTimeout bounds the startup ping for network cache backends.
const connectTimeout = 5 * time.Second

// RedisCache stores tiles in redis. Expiry is handled server-side through
// SET with TTL, so Get never has to reason about staleness.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to the redis instance named by a redis:// URL and
// verifies the connection with a ping. The ping is retried briefly; in
// container deployments redis often becomes reachable moments after this
// process starts.
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	if url == "" {
		return nil, errors.New(errors.ErrCodeConfig, "redis cache requires a connection URL")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "parse redis URL")
	}

	client := redis.NewClient(opt)
	err = RetryWithBackoff(ctx, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return Retryable(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, errors.Wrap(errors.ErrCodeCache, err, "connect redis")
	}

	return &RedisCache{client: client}, nil
}

// Get retrieves a value from redis.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeCache, err, "redis get")
	}
	return data, true, nil
}

// Set stores a value in redis. A ttl of zero stores it without expiry.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeCache, err, "redis set")
	}
	return nil
}

// Delete removes a value from redis.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeCache, err, "redis del")
	}
	return nil
}

// Close releases the client's connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ensure RedisCache implements Cache.
var _ Cache = (*RedisCache)(nil)
