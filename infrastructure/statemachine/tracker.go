package statemachine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/geo-mcp/domain/imagery"
)

// Snapshot is the observable state of a tracked order.
type Snapshot struct {
	OrderID  string         `json:"orderId"`
	Status   imagery.Status `json:"lifecycle"`
	Terminal bool           `json:"terminal"`
	History  []Transition   `json:"history"`
}

// Tracker keeps one lifecycle per order.
type Tracker struct {
	mu         sync.Mutex
	machine    *statekit.MachineConfig[*Context]
	lifecycles map[string]*Lifecycle
}

// NewTracker builds the order statechart and an empty tracker.
func NewTracker() (*Tracker, error) {
	machine, err := NewOrderMachine()
	if err != nil {
		return nil, fmt.Errorf("build order machine: %w", err)
	}
	return &Tracker{
		machine:    machine,
		lifecycles: make(map[string]*Lifecycle),
	}, nil
}

// Observe records a status reported for an order, creating its lifecycle on
// first sight. The returned snapshot reflects the state after the update.
func (t *Tracker) Observe(orderID string, status imagery.Status) (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.lifecycles[orderID]
	if !ok {
		l = NewLifecycle(t.machine, orderID)
		t.lifecycles[orderID] = l
	}

	err := l.Advance(status)
	return snapshot(orderID, l), err
}

// Get returns the snapshot of a tracked order.
func (t *Tracker) Get(orderID string) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.lifecycles[orderID]
	if !ok {
		return Snapshot{}, false
	}
	return snapshot(orderID, l), true
}

// List returns snapshots of all tracked orders sorted by id.
func (t *Tracker) List() []Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Snapshot, 0, len(t.lifecycles))
	for id, l := range t.lifecycles {
		out = append(out, snapshot(id, l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}

// Len returns the number of tracked orders.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lifecycles)
}

func snapshot(orderID string, l *Lifecycle) Snapshot {
	return Snapshot{
		OrderID:  orderID,
		Status:   l.Status(),
		Terminal: l.Terminal(),
		History:  l.History(),
	}
}
