// Package pack provides named bundles of tool entries.
package pack

import (
	"fmt"

	"github.com/felixgeelhaar/geo-mcp/domain/tool"
)

// Pack is a collection of related tools registered together at startup.
type Pack struct {
	// Name is the unique identifier for the pack.
	Name string

	// Description explains what the pack provides.
	Description string

	// Version is the semantic version of the pack.
	Version string

	// Entries are the tools in registration order.
	Entries []tool.Entry
}

// ToolNames returns the names of all tools in the pack.
func (p *Pack) ToolNames() []string {
	names := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		names[i] = e.Name()
	}
	return names
}

// Install registers every entry. The first failure aborts installation and
// is returned wrapped with the pack name.
func (p *Pack) Install(reg tool.Registry) error {
	for _, e := range p.Entries {
		if err := reg.Register(e); err != nil {
			return fmt.Errorf("%w: pack %s: %w", ErrInstallFailed, p.Name, err)
		}
	}
	return nil
}

// Builder provides a fluent API for constructing packs.
type Builder struct {
	pack *Pack
}

// NewBuilder creates a new pack builder.
func NewBuilder(name string) *Builder {
	return &Builder{pack: &Pack{Name: name}}
}

// WithDescription sets the pack description.
func (b *Builder) WithDescription(desc string) *Builder {
	b.pack.Description = desc
	return b
}

// WithVersion sets the pack version.
func (b *Builder) WithVersion(version string) *Builder {
	b.pack.Version = version
	return b
}

// AddTools adds entries to the pack.
func (b *Builder) AddTools(entries ...tool.Entry) *Builder {
	b.pack.Entries = append(b.pack.Entries, entries...)
	return b
}

// Build returns the constructed pack.
func (b *Builder) Build() *Pack {
	return b.pack
}

// InstallAll installs packs in order.
func InstallAll(reg tool.Registry, packs ...*Pack) error {
	for _, p := range packs {
		if err := p.Install(reg); err != nil {
			return err
		}
	}
	return nil
}
