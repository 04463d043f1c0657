package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/geo-mcp/domain/cache"
)

// responseNamespace separates cached tool responses from anything else a
// shared Redis holds under the same prefix.
const responseNamespace = "resp:"

// clearBatch bounds SCAN pages and UNLINK batches during Clear.
const clearBatch = 100

// Cache stores tool responses in Redis. Expiry is delegated to Redis TTLs.
type Cache struct {
	client *redis.Client
	prefix string

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache dials Redis and pings it before returning, so a wrong address
// fails at startup rather than on the first tool call.
func NewCache(ctx context.Context, cfg Config) (*Cache, error) {
	client := redis.NewClient(cfg.options())

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(cache.ErrConnectionFailed, err)
	}
	return NewCacheFromClient(client, cfg.KeyPrefix), nil
}

// NewCacheFromClient wraps an existing client.
func NewCacheFromClient(client *redis.Client, keyPrefix string) *Cache {
	return &Cache{client: client, prefix: keyPrefix + responseNamespace}
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

// Get returns the cached response for key. A missing key is a miss, not an error.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	value, err := c.client.Get(ctx, c.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		c.misses.Add(1)
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	c.hits.Add(1)
	return value, true, nil
}

// Set stores value. A non-positive ttl stores without expiry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return cache.ErrInvalidKey
	}
	return c.client.Set(ctx, c.key(key), value, max(ttl, 0)).Err()
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.client.Unlink(ctx, c.key(key)).Err()
}

// Clear removes every cached response under the prefix.
func (c *Cache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	iter := c.client.Scan(ctx, 0, c.prefix+"*", clearBatch).Iterator()
	keys := make([]string, 0, clearBatch)
	flush := func() error {
		if len(keys) == 0 {
			return nil
		}
		err := c.client.Unlink(ctx, keys...).Err()
		keys = keys[:0]
		return err
	}

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == clearBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return flush()
}

// Stats reports hits and misses seen by this process. Size is not tracked.
func (c *Cache) Stats() cache.Stats {
	return cache.Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}

var (
	_ cache.Cache         = (*Cache)(nil)
	_ cache.StatsProvider = (*Cache)(nil)
)
