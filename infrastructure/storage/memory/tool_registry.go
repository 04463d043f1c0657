// Package memory provides in-memory storage implementations.
package memory

import (
	"fmt"
	"sync"

	"github.com/felixgeelhaar/geo-mcp/domain/tool"
)

// ToolRegistry is an in-memory implementation of tool.Registry.
// Listing follows registration order.
type ToolRegistry struct {
	tools map[string]tool.Entry
	order []string
	mu    sync.RWMutex
}

// NewToolRegistry creates a new in-memory tool registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]tool.Entry),
	}
}

// Register adds a tool to the registry.
func (r *ToolRegistry) Register(entry tool.Entry) error {
	name := entry.Name()
	if name == "" {
		return tool.ErrEmptyName
	}
	if entry.Handler() == nil {
		return fmt.Errorf("%w: %s", tool.ErrNoHandler, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", tool.ErrToolExists, name)
	}

	r.tools[name] = entry
	r.order = append(r.order, name)
	return nil
}

// RegisterAll registers entries in order, stopping at the first failure.
func (r *ToolRegistry) RegisterAll(entries ...tool.Entry) error {
	for _, e := range entries {
		if err := r.Register(e); err != nil {
			return err
		}
	}
	return nil
}

// Get retrieves a tool by name.
func (r *ToolRegistry) Get(name string) (tool.Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tools[name]
	return e, ok
}

// Has checks if a tool is registered.
func (r *ToolRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.tools[name]
	return ok
}

// ListTools returns all registered definitions in registration order.
func (r *ToolRegistry) ListTools() []tool.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]tool.Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Names returns all registered tool names in registration order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Size returns the number of registered tools.
func (r *ToolRegistry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Clear removes all tools from the registry.
func (r *ToolRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools = make(map[string]tool.Entry)
	r.order = nil
}

var _ tool.Registry = (*ToolRegistry)(nil)
