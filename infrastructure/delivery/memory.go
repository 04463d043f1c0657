package delivery

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/geo-mcp/domain/imagery"
)

// ErrBucketNotFound is returned by MemoryLister for unknown buckets.
var ErrBucketNotFound = errors.New("bucket not found")

// MemoryLister is an in-memory lister for development and tests.
type MemoryLister struct {
	mu      sync.RWMutex
	driver  imagery.Driver
	buckets map[string]map[string]imagery.DeliveredObject
}

var _ imagery.DeliveryLister = (*MemoryLister)(nil)

// NewMemoryLister creates an empty in-memory lister for the driver.
func NewMemoryLister(driver imagery.Driver) *MemoryLister {
	return &MemoryLister{
		driver:  driver,
		buckets: make(map[string]map[string]imagery.DeliveredObject),
	}
}

// Driver returns the configured driver.
func (l *MemoryLister) Driver() imagery.Driver {
	return l.driver
}

// Put records a delivered object, creating the bucket if needed.
func (l *MemoryLister) Put(bucket, key string, size int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[bucket]
	if !ok {
		b = make(map[string]imagery.DeliveredObject)
		l.buckets[bucket] = b
	}
	b[key] = imagery.DeliveredObject{Key: key, Size: size, LastModified: time.Now().UTC()}
}

// List returns objects under the prefix in key order.
func (l *MemoryLister) List(_ context.Context, req imagery.ListRequest) ([]imagery.DeliveredObject, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	b, ok := l.buckets[req.Bucket]
	if !ok {
		return nil, ErrBucketNotFound
	}

	objects := make([]imagery.DeliveredObject, 0, len(b))
	for key, obj := range b {
		if strings.HasPrefix(key, req.Prefix) {
			objects = append(objects, obj)
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })

	if limit := maxKeys(req.MaxKeys); len(objects) > limit {
		objects = objects[:limit]
	}
	return objects, nil
}
