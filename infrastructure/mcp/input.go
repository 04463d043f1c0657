package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/felixgeelhaar/geo-mcp/domain/tool"
)

// schemaDoc is the part of a JSON Schema that mcp-go can express through
// struct tags: types, properties, required names and descriptions.
type schemaDoc struct {
	Type        string               `json:"type"`
	Description string               `json:"description"`
	Properties  map[string]schemaDoc `json:"properties"`
	Required    []string             `json:"required"`
	Items       *schemaDoc           `json:"items"`
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	stringType  = reflect.TypeOf("")
	anyType     = reflect.TypeOf((*any)(nil)).Elem()
	objectType  = reflect.TypeOf(map[string]any{})
)

// tagEscaper keeps descriptions inside the comma separated jsonschema tag.
var tagEscaper = strings.NewReplacer(",", ";", `"`, "'", "`", "'")

// inputType builds a struct type whose mcp-go generated schema mirrors the
// declared object properties. Scalar and nested object fields are pointers
// tagged omitempty, so a decoded value encodes back to the sent arguments.
func inputType(s tool.Schema) reflect.Type {
	var doc schemaDoc
	if s.IsEmpty() || json.Unmarshal(s.Raw(), &doc) != nil {
		return objectType
	}
	if doc.Type != "object" || len(doc.Properties) == 0 {
		return objectType
	}
	return structOf(doc)
}

func structOf(doc schemaDoc) reflect.Type {
	names := make([]string, 0, len(doc.Properties))
	for name := range doc.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	required := make(map[string]bool, len(doc.Required))
	for _, name := range doc.Required {
		required[name] = true
	}

	fields := make([]reflect.StructField, 0, len(names))
	for i, name := range names {
		prop := doc.Properties[name]
		tag := fmt.Sprintf(`json:"%s,omitempty"`, name)
		if hints := schemaHints(prop.Description, required[name]); hints != "" {
			tag += fmt.Sprintf(` jsonschema:"%s"`, hints)
		}
		fields = append(fields, reflect.StructField{
			Name: fmt.Sprintf("Field%d", i),
			Type: fieldType(prop),
			Tag:  reflect.StructTag(tag),
		})
	}
	return reflect.StructOf(fields)
}

func schemaHints(description string, required bool) string {
	var hints []string
	if required {
		hints = append(hints, "required")
	}
	if description != "" {
		hints = append(hints, "description="+tagEscaper.Replace(description))
	}
	return strings.Join(hints, ",")
}

// fieldType is valueType behind a pointer for scalars and nested objects.
func fieldType(doc schemaDoc) reflect.Type {
	t := valueType(doc)
	switch t.Kind() {
	case reflect.Slice, reflect.Map, reflect.Interface:
		return t
	default:
		return reflect.PointerTo(t)
	}
}

func valueType(doc schemaDoc) reflect.Type {
	switch doc.Type {
	case "string":
		return stringType
	case "integer":
		return reflect.TypeOf(int64(0))
	case "number":
		return reflect.TypeOf(float64(0))
	case "boolean":
		return reflect.TypeOf(false)
	case "array":
		if doc.Items == nil {
			return reflect.SliceOf(anyType)
		}
		return reflect.SliceOf(valueType(*doc.Items))
	case "object":
		if len(doc.Properties) == 0 {
			return objectType
		}
		return structOf(doc)
	default:
		return anyType
	}
}

// handlerFor returns a func(context.Context, T) (string, error) for the
// generated input type T. The decoded input is encoded again and passed
// to call as raw arguments.
func handlerFor(in reflect.Type, call func(context.Context, json.RawMessage) (string, error)) any {
	fnType := reflect.FuncOf(
		[]reflect.Type{contextType, in},
		[]reflect.Type{stringType, errorType},
		false,
	)
	fn := reflect.MakeFunc(fnType, func(args []reflect.Value) []reflect.Value {
		ctx, ok := args[0].Interface().(context.Context)
		if !ok {
			ctx = context.Background()
		}

		var (
			text string
			err  error
		)
		raw, encErr := json.Marshal(args[1].Interface())
		if encErr != nil {
			err = fmt.Errorf("encode tool input: %w", encErr)
		} else {
			text, err = call(ctx, raw)
		}

		errVal := reflect.Zero(errorType)
		if err != nil {
			errVal = reflect.ValueOf(&err).Elem()
		}
		return []reflect.Value{reflect.ValueOf(text), errVal}
	})
	return fn.Interface()
}
