// Package badger provides an embedded BadgerDB response cache.
package badger

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/felixgeelhaar/geo-mcp/domain/cache"
)

// Config configures the BadgerDB cache.
type Config struct {
	// Dir is the directory to store data in. Must be empty when InMemory is set.
	Dir string

	// InMemory keeps everything in memory (useful for testing).
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// ValueLogFileSize sets the size of value log files in bytes.
	ValueLogFileSize int64

	// GCInterval is the interval between value log GC runs. Zero disables GC.
	GCInterval time.Duration

	// GCDiscardRatio is the discard ratio passed to RunValueLogGC.
	GCDiscardRatio float64

	// KeyPrefix is added to all keys.
	KeyPrefix string
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		ValueLogFileSize: 64 << 20,
		GCInterval:       10 * time.Minute,
		GCDiscardRatio:   0.5,
		KeyPrefix:        "resp:",
	}
}

func openDB(cfg Config) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(nil)
	if cfg.ValueLogFileSize > 0 {
		opts = opts.WithValueLogFileSize(cfg.ValueLogFileSize)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Join(cache.ErrConnectionFailed, err)
	}
	return db, nil
}
