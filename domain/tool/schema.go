package tool

import (
	"encoding/json"
	"fmt"
)

// Schema wraps a JSON Schema document for tool input.
type Schema struct {
	raw json.RawMessage
}

// NewSchema creates a schema from raw JSON.
func NewSchema(raw json.RawMessage) Schema {
	return Schema{raw: raw}
}

// EmptySchema returns a schema accepting any object.
func EmptySchema() Schema {
	return Schema{raw: json.RawMessage(`{"type":"object"}`)}
}

// ObjectSchema returns a closed object schema with the given properties.
func ObjectSchema(properties map[string]json.RawMessage, required ...string) Schema {
	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	raw, _ := json.Marshal(schema)
	return Schema{raw: raw}
}

// Raw returns the underlying JSON schema.
func (s Schema) Raw() json.RawMessage {
	return s.raw
}

// IsEmpty returns true if the schema is empty or nil.
func (s Schema) IsEmpty() bool {
	return len(s.raw) == 0 || string(s.raw) == "{}" || string(s.raw) == "null"
}

// MarshalJSON implements json.Marshaler.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s.raw == nil {
		return []byte("{}"), nil
	}
	return s.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Schema) UnmarshalJSON(data []byte) error {
	s.raw = append(json.RawMessage(nil), data...)
	return nil
}

// StringProp describes a string property.
func StringProp(description string, extra ...string) json.RawMessage {
	return prop("string", description, extra)
}

// IntegerProp describes an integer property bounded by min and max.
func IntegerProp(description string, minimum, maximum int, extra ...string) json.RawMessage {
	return prop("integer", description, append([]string{
		fmt.Sprintf(`"minimum":%d`, minimum),
		fmt.Sprintf(`"maximum":%d`, maximum),
	}, extra...))
}

// NumberProp describes a number property bounded by min and max.
func NumberProp(description string, minimum, maximum float64) json.RawMessage {
	return prop("number", description, []string{
		fmt.Sprintf(`"minimum":%g`, minimum),
		fmt.Sprintf(`"maximum":%g`, maximum),
	})
}

// prop assembles a property schema; extra holds pre-encoded "key":value pairs.
func prop(typ, description string, extra []string) json.RawMessage {
	desc, _ := json.Marshal(description)
	out := fmt.Sprintf(`{"type":%q,"description":%s`, typ, desc)
	for _, e := range extra {
		out += "," + e
	}
	return json.RawMessage(out + "}")
}
