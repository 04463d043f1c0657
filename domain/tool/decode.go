package tool

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/spf13/cast"
)

// decodeInput unmarshals validated input into v. JSON Schema counts 2.0 as
// an integer while encoding/json refuses it for int fields, so integral
// numbers are rewritten without a fraction first.
func decodeInput(input json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	normalized, err := json.Marshal(integralNumbers(doc))
	if err != nil {
		return err
	}
	return json.Unmarshal(normalized, v)
}

func integralNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = integralNumbers(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = integralNumbers(item)
		}
		return t
	case json.Number:
		if _, err := t.Int64(); err == nil {
			return t
		}
		f, err := cast.ToFloat64E(t)
		if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return t
		}
		return json.Number(strconv.FormatInt(cast.ToInt64(f), 10))
	default:
		return v
	}
}
