// Package redis provides a Redis-backed response cache.
package redis

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds connection settings. KeyPrefix namespaces every key the
// cache writes, so several servers can share one database.
type Config struct {
	Address  string
	Password string
	DB       int

	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int

	KeyPrefix string
}

// DefaultConfig targets a local Redis.
func DefaultConfig() Config {
	return Config{
		Address:      "localhost:6379",
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		KeyPrefix:    "geo-mcp:",
	}
}

func (c Config) options() *redis.Options {
	return &redis.Options{
		Addr:         c.Address,
		Password:     c.Password,
		DB:           c.DB,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		PoolSize:     c.PoolSize,
	}
}
