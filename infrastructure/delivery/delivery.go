// Package delivery lists imagery delivered to cloud storage buckets.
package delivery

import (
	"fmt"
	"sort"
	"sync"

	"github.com/felixgeelhaar/geo-mcp/domain/imagery"
)

// DefaultMaxKeys bounds a listing when the caller gives no limit.
const DefaultMaxKeys = 100

// Listers holds one lister per delivery driver.
type Listers struct {
	mu      sync.RWMutex
	listers map[imagery.Driver]imagery.DeliveryLister
}

// NewListers creates a set from the given listers. Later listers replace
// earlier ones for the same driver.
func NewListers(listers ...imagery.DeliveryLister) *Listers {
	l := &Listers{listers: make(map[imagery.Driver]imagery.DeliveryLister)}
	for _, lister := range listers {
		l.Add(lister)
	}
	return l
}

// Add registers a lister for its driver.
func (l *Listers) Add(lister imagery.DeliveryLister) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listers[lister.Driver()] = lister
}

// Get returns the lister for a driver.
func (l *Listers) Get(driver imagery.Driver) (imagery.DeliveryLister, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	lister, ok := l.listers[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %s", imagery.ErrUnsupportedDriver, driver)
	}
	return lister, nil
}

// Drivers returns the configured drivers in sorted order.
func (l *Listers) Drivers() []imagery.Driver {
	l.mu.RLock()
	defer l.mu.RUnlock()
	drivers := make([]imagery.Driver, 0, len(l.listers))
	for d := range l.listers {
		drivers = append(drivers, d)
	}
	sort.Slice(drivers, func(i, j int) bool { return drivers[i] < drivers[j] })
	return drivers
}

// Len returns the number of configured drivers.
func (l *Listers) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.listers)
}

func maxKeys(n int) int {
	if n <= 0 {
		return DefaultMaxKeys
	}
	return n
}
