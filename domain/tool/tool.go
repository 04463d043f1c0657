package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

// Handler executes a tool call. The input has already passed schema validation.
type Handler func(ctx context.Context, input json.RawMessage) (Response, error)

// Definition is the client-visible description of a tool.
// It is immutable once built.
type Definition struct {
	name        string
	description string
	inputSchema Schema
	annotations Annotations
}

// Name returns the tool name.
func (d Definition) Name() string {
	return d.name
}

// Description returns the tool description.
func (d Definition) Description() string {
	return d.description
}

// InputSchema returns the input schema.
func (d Definition) InputSchema() Schema {
	return d.inputSchema
}

// Annotations returns the tool annotations.
func (d Definition) Annotations() Annotations {
	return d.annotations
}

// MarshalJSON renders the definition the way tools/list reports it.
func (d Definition) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name        string      `json:"name"`
		Description string      `json:"description"`
		InputSchema Schema      `json:"inputSchema"`
		Annotations Annotations `json:"annotations"`
	}{d.name, d.description, d.inputSchema, d.annotations})
}

// Entry pairs a definition with the handler that serves it.
type Entry struct {
	def     Definition
	handler Handler
}

// Definition returns the entry's tool definition.
func (e Entry) Definition() Definition {
	return e.def
}

// Name returns the tool name.
func (e Entry) Name() string {
	return e.def.name
}

// Handler returns the entry's handler.
func (e Entry) Handler() Handler {
	return e.handler
}

// Invoke runs the handler.
func (e Entry) Invoke(ctx context.Context, input json.RawMessage) (Response, error) {
	if e.handler == nil {
		return Response{}, ErrNoHandler
	}
	return e.handler(ctx, input)
}

// Typed adapts a function taking a decoded input struct into a Handler.
// The function reports domain outcomes; decoding failures surface as
// ErrInvalidInput.
func Typed[In any](fn func(ctx context.Context, in In) Outcome) Handler {
	return func(ctx context.Context, input json.RawMessage) (Response, error) {
		var in In
		if len(input) > 0 {
			if err := decodeInput(input, &in); err != nil {
				return Response{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
			}
		}
		return fn(ctx, in).Response()
	}
}

// Builder provides a fluent API for constructing tool entries.
type Builder struct {
	entry Entry
}

// NewBuilder creates a new tool builder with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{
		entry: Entry{
			def: Definition{
				name:        name,
				inputSchema: EmptySchema(),
			},
		},
	}
}

// WithDescription sets the tool description.
func (b *Builder) WithDescription(desc string) *Builder {
	b.entry.def.description = desc
	return b
}

// WithInputSchema sets the input schema.
func (b *Builder) WithInputSchema(schema Schema) *Builder {
	b.entry.def.inputSchema = schema
	return b
}

// WithAnnotations sets the tool annotations.
func (b *Builder) WithAnnotations(annotations Annotations) *Builder {
	b.entry.def.annotations = annotations
	return b
}

// ReadOnly marks the tool as read-only.
func (b *Builder) ReadOnly() *Builder {
	b.entry.def.annotations.ReadOnly = true
	return b
}

// Idempotent marks the tool as idempotent.
func (b *Builder) Idempotent() *Builder {
	b.entry.def.annotations.Idempotent = true
	return b
}

// Cacheable marks the tool as cacheable.
func (b *Builder) Cacheable() *Builder {
	b.entry.def.annotations.Cacheable = true
	return b
}

// RequiresCredentials marks the tool as needing a configured API key.
func (b *Builder) RequiresCredentials() *Builder {
	b.entry.def.annotations.RequiresCredentials = true
	b.entry.def.annotations.OpenWorld = true
	return b
}

// WithTags adds tags to the tool.
func (b *Builder) WithTags(tags ...string) *Builder {
	b.entry.def.annotations.Tags = append(b.entry.def.annotations.Tags, tags...)
	return b
}

// WithHandler sets the tool handler function.
func (b *Builder) WithHandler(handler Handler) *Builder {
	b.entry.handler = handler
	return b
}

// Build constructs the tool entry.
func (b *Builder) Build() (Entry, error) {
	if b.entry.def.name == "" {
		return Entry{}, ErrEmptyName
	}
	if b.entry.handler == nil {
		return Entry{}, fmt.Errorf("%w: %s", ErrNoHandler, b.entry.def.name)
	}
	return b.entry, nil
}

// MustBuild constructs the tool entry or panics on error.
func (b *Builder) MustBuild() Entry {
	entry, err := b.Build()
	if err != nil {
		panic(err)
	}
	return entry
}
