package tool

import (
	"encoding/json"
	"strings"
)

// Violation describes one schema constraint the input failed.
type Violation struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

// Validator checks raw tool input against a tool's input schema.
// A nil violation slice means the input is acceptable.
type Validator interface {
	Validate(schema Schema, input json.RawMessage) ([]Violation, error)
}

// ValidationError carries the violations of a rejected input.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Description)
	}
	return "invalid tool input: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrInvalidInput) hold for validation errors.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}
