// Package cache provides the port for caching read-only tool responses.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Cache stores serialized tool responses.
// Implementations may be in-memory, Redis, or Badger.
type Cache interface {
	// Get retrieves a cached value by key.
	// Returns the value, whether it was found, and any error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value for the given TTL. Zero means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a cached entry by key.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries owned by this cache.
	Clear(ctx context.Context) error
}

// Stats provides cache statistics.
type Stats struct {
	Hits    int64
	Misses  int64
	Size    int64
	MaxSize int64
}

// StatsProvider is implemented by caches that track statistics.
type StatsProvider interface {
	Stats() Stats
}

// Key derives a cache key from a tool name and its arguments.
// Arguments are compacted first so whitespace does not split entries.
func Key(toolName string, args json.RawMessage) string {
	h := sha256.New()
	h.Write([]byte(toolName))
	h.Write([]byte{0})
	if compact, err := compactJSON(args); err == nil {
		h.Write(compact)
	} else {
		h.Write(args)
	}
	return toolName + ":" + hex.EncodeToString(h.Sum(nil))
}

// compactJSON re-encodes through a generic value so object keys are sorted.
func compactJSON(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return []byte("{}"), nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
