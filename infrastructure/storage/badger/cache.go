package badger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/felixgeelhaar/geo-mcp/domain/cache"
)

// Cache stores tool responses in an embedded BadgerDB. Entries expire
// through Badger TTLs, so no sweeper is needed.
type Cache struct {
	db     *badger.DB
	prefix []byte

	hits   atomic.Int64
	misses atomic.Int64

	stopGC    context.CancelFunc
	gcDone    chan struct{}
	closeOnce sync.Once
}

// NewCache opens the database. On-disk databases also get a background
// value log GC loop, stopped by Close.
func NewCache(cfg Config) (*Cache, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		db:     db,
		prefix: []byte(cfg.KeyPrefix),
		stopGC: cancel,
		gcDone: make(chan struct{}),
	}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		go c.collectGarbage(ctx, cfg.GCInterval, cfg.GCDiscardRatio)
	} else {
		close(c.gcDone)
	}
	return c, nil
}

func (c *Cache) collectGarbage(ctx context.Context, every time.Duration, ratio float64) {
	defer close(c.gcDone)

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Each successful run rewrites one file; ErrNoRewrite ends the round.
			for c.db.RunValueLogGC(ratio) == nil {
			}
		}
	}
}

func (c *Cache) key(k string) []byte {
	return append(append([]byte(nil), c.prefix...), k...)
}

// Get returns the cached response for key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.key(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
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

	entry := badger.NewEntry(c.key(key), value)
	if ttl > 0 {
		entry = entry.WithTTL(ttl)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(entry)
	})
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(c.key(key))
	})
}

// Clear drops every cached response under the prefix.
func (c *Cache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.db.DropPrefix(c.prefix)
}

// Stats reports hits, misses and the number of live entries.
func (c *Cache) Stats() cache.Stats {
	stats := cache.Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
	_ = c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: c.prefix})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			stats.Size++
		}
		return nil
	})
	return stats
}

// Close stops the GC loop and closes the database. It is safe to call twice.
func (c *Cache) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.stopGC()
		<-c.gcDone
		err = c.db.Close()
	})
	return err
}

var (
	_ cache.Cache         = (*Cache)(nil)
	_ cache.StatsProvider = (*Cache)(nil)
)
