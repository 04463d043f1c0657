package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/geo-mcp/domain/cache"
)

type cacheItem struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func (i *cacheItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// Cache is an in-memory LRU implementation of cache.Cache with per-entry TTL.
type Cache struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	lru     *list.List
	maxSize int
	hits    int64
	misses  int64
	now     func() time.Time
}

// CacheOption configures the cache.
type CacheOption func(*Cache)

// WithMaxSize sets the maximum number of entries.
func WithMaxSize(size int) CacheOption {
	return func(c *Cache) {
		if size > 0 {
			c.maxSize = size
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates a new in-memory cache holding up to 1000 entries.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		maxSize: 1000,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a copy of a cached value.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false, nil
	}
	item := el.Value.(*cacheItem)
	if item.expired(c.now()) {
		c.removeElement(el)
		c.misses++
		return nil, false, nil
	}

	c.lru.MoveToFront(el)
	c.hits++
	return append([]byte(nil), item.value...), true, nil
}

// Set stores a copy of value, evicting the least recently used entry when full.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return cache.ErrInvalidKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	item := &cacheItem{key: key, value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = c.now().Add(ttl)
	}

	if el, ok := c.items[key]; ok {
		el.Value = item
		c.lru.MoveToFront(el)
		return nil
	}

	for c.lru.Len() >= c.maxSize {
		c.removeElement(c.lru.Back())
	}
	c.items[key] = c.lru.PushFront(item)
	return nil
}

// Delete removes a value from the cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	return nil
}

// Clear removes all entries from the cache.
func (c *Cache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.lru.Init()
	return nil
}

// Stats returns cache statistics.
func (c *Cache) Stats() cache.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return cache.Stats{
		Hits:    c.hits,
		Misses:  c.misses,
		Size:    int64(c.lru.Len()),
		MaxSize: int64(c.maxSize),
	}
}

// must be called with c.mu held
func (c *Cache) removeElement(el *list.Element) {
	c.lru.Remove(el)
	delete(c.items, el.Value.(*cacheItem).key)
}

var (
	_ cache.Cache         = (*Cache)(nil)
	_ cache.StatsProvider = (*Cache)(nil)
)
