package schema_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/felixgeelhaar/geo-mcp/domain/tool"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/schema"
)

var reverseSchema = tool.ObjectSchema(map[string]json.RawMessage{
	"latitude":  tool.NumberProp("Latitude", -90, 90),
	"longitude": tool.NumberProp("Longitude", -180, 180),
	"zoom":      tool.IntegerProp("Zoom", 3, 18),
}, "latitude", "longitude")

func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		wantField string
	}{
		{name: "valid", input: `{"latitude":52.5,"longitude":13.4}`},
		{name: "valid with zoom", input: `{"latitude":-90,"longitude":180,"zoom":3}`},
		{name: "latitude out of range", input: `{"latitude":91,"longitude":0}`, wantField: "latitude"},
		{name: "longitude out of range", input: `{"latitude":0,"longitude":-181}`, wantField: "longitude"},
		{name: "zoom too low", input: `{"latitude":0,"longitude":0,"zoom":2}`, wantField: "zoom"},
		{name: "zoom not integer", input: `{"latitude":0,"longitude":0,"zoom":3.5}`, wantField: "zoom"},
		{name: "missing latitude", input: `{"longitude":0}`, wantField: "latitude"},
		{name: "empty input checks required", input: ``, wantField: "latitude"},
		{name: "wrong type", input: `{"latitude":"north","longitude":0}`, wantField: "latitude"},
		{name: "unknown property", input: `{"latitude":0,"longitude":0,"altitude":3}`, wantField: "altitude"},
	}

	v := schema.NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			violations, err := v.Validate(reverseSchema, json.RawMessage(tt.input))
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if tt.wantField == "" {
				if len(violations) != 0 {
					t.Errorf("Validate() violations = %+v, want none", violations)
				}
				return
			}
			found := false
			for _, vi := range violations {
				if vi.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() violations = %+v, want one on %s", violations, tt.wantField)
			}
		})
	}
}

func TestValidator_EmptySchemaAcceptsAnything(t *testing.T) {
	t.Parallel()

	violations, err := schema.NewValidator().Validate(tool.NewSchema(nil), json.RawMessage(`[1,2]`))
	if err != nil || violations != nil {
		t.Errorf("Validate() = %v, %v", violations, err)
	}
}

func TestValidator_InvalidSchema(t *testing.T) {
	t.Parallel()

	broken := tool.NewSchema(json.RawMessage(`{"type":"object","properties":{"a":{"type":"nonsense"}}}`))
	_, err := schema.NewValidator().Validate(broken, json.RawMessage(`{}`))
	if !errors.Is(err, tool.ErrInvalidSchema) {
		t.Errorf("Validate() error = %v, want ErrInvalidSchema", err)
	}
}

func TestValidator_Precompile(t *testing.T) {
	t.Parallel()

	good := tool.NewBuilder("good").
		WithInputSchema(reverseSchema).
		WithHandler(func(_ context.Context, _ json.RawMessage) (tool.Response, error) { return tool.Response{}, nil }).
		MustBuild()

	if err := schema.NewValidator().Precompile(good.Definition()); err != nil {
		t.Errorf("Precompile() error = %v", err)
	}
}
