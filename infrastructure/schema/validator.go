// Package schema validates tool input against JSON Schema using gojsonschema.
package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/felixgeelhaar/geo-mcp/domain/tool"
)

// Validator implements tool.Validator. Compiled schemas are cached by their
// raw text, so each tool's schema is compiled once.
type Validator struct {
	mu       sync.RWMutex
	compiled map[string]*gojsonschema.Schema
}

// NewValidator creates a validator with an empty schema cache.
func NewValidator() *Validator {
	return &Validator{compiled: make(map[string]*gojsonschema.Schema)}
}

// Validate checks input against s. Empty input is validated as {}.
func (v *Validator) Validate(s tool.Schema, input json.RawMessage) ([]tool.Violation, error) {
	if s.IsEmpty() {
		return nil, nil
	}

	compiled, err := v.compile(s)
	if err != nil {
		return nil, err
	}

	if len(input) == 0 || string(input) == "null" {
		input = json.RawMessage(`{}`)
	}

	result, err := compiled.Validate(gojsonschema.NewBytesLoader(input))
	if err != nil {
		// Loader failures mean the document itself is not JSON.
		return []tool.Violation{{Field: "(root)", Description: err.Error()}}, nil
	}
	if result.Valid() {
		return nil, nil
	}

	violations := make([]tool.Violation, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		violations = append(violations, tool.Violation{
			Field:       fieldOf(re),
			Description: re.Description(),
		})
	}
	return violations, nil
}

// Precompile compiles every schema up front so broken schemas fail at startup.
func (v *Validator) Precompile(defs ...tool.Definition) error {
	for _, def := range defs {
		if def.InputSchema().IsEmpty() {
			continue
		}
		if _, err := v.compile(def.InputSchema()); err != nil {
			return fmt.Errorf("tool %s: %w", def.Name(), err)
		}
	}
	return nil
}

func (v *Validator) compile(s tool.Schema) (*gojsonschema.Schema, error) {
	key := string(s.Raw())

	v.mu.RLock()
	compiled, ok := v.compiled[key]
	v.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(s.Raw()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tool.ErrInvalidSchema, err)
	}

	v.mu.Lock()
	v.compiled[key] = compiled
	v.mu.Unlock()
	return compiled, nil
}

// fieldOf reports the offending property. Root-level "required" and
// "additional property" errors name the property in their details.
func fieldOf(re gojsonschema.ResultError) string {
	if re.Field() != "(root)" {
		return re.Field()
	}
	if p, ok := re.Details()["property"].(string); ok && p != "" {
		return p
	}
	return re.Field()
}

var _ tool.Validator = (*Validator)(nil)
