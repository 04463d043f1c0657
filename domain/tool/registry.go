package tool

// Registry manages tool registration and lookup.
type Registry interface {
	// Register adds a tool entry. Duplicate names are rejected with
	// ErrToolExists and leave the registry unchanged.
	Register(entry Entry) error

	// Get retrieves an entry by name.
	Get(name string) (Entry, bool)

	// Has checks if a tool is registered.
	Has(name string) bool

	// ListTools returns the definitions in registration order.
	ListTools() []Definition

	// Names returns the tool names in registration order.
	Names() []string

	// Size returns the number of registered tools.
	Size() int

	// Clear removes all tools.
	Clear()
}
