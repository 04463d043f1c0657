package api

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/geo-mcp/domain/cache"
	"github.com/felixgeelhaar/geo-mcp/domain/config"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/storage/badger"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/storage/memory"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/storage/redis"
)

// Cache backend names.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheBadger = "badger"
)

// openCache creates the configured response cache. "none" returns nil.
func (s *Server) openCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case CacheNone, "":
		return nil, nil

	case CacheMemory:
		var opts []memory.CacheOption
		if cfg.MaxEntries > 0 {
			opts = append(opts, memory.WithMaxSize(cfg.MaxEntries))
		}
		return memory.NewCache(opts...), nil

	case CacheRedis:
		rcfg := redis.DefaultConfig()
		rcfg.Address = cfg.Redis.Address
		rcfg.Password = cfg.Redis.Password
		rcfg.DB = cfg.Redis.DB
		if cfg.Redis.KeyPrefix != "" {
			rcfg.KeyPrefix = cfg.Redis.KeyPrefix
		}
		c, err := redis.NewCache(ctx, rcfg)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		s.closers = append(s.closers, func(context.Context) error { return c.Close() })
		return c, nil

	case CacheBadger:
		bcfg := badger.DefaultConfig()
		bcfg.Dir = cfg.Badger.Dir
		bcfg.InMemory = cfg.Badger.InMemory
		c, err := badger.NewCache(bcfg)
		if err != nil {
			return nil, fmt.Errorf("badger cache: %w", err)
		}
		s.closers = append(s.closers, func(context.Context) error { return c.Close() })
		return c, nil

	default:
		return nil, fmt.Errorf("%w: cache backend %q", config.ErrValidationFailed, cfg.Backend)
	}
}
