package tool

import (
	"encoding/json"
	"maps"
	"strings"
)

// ContentBlock is a single piece of tool output.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Response is the payload returned to the client for a tool call.
type Response struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// TextResponse wraps text in a single content block.
func TextResponse(text string) Response {
	return Response{Content: []ContentBlock{{Type: "text", Text: text}}}
}

// Text joins the text content blocks.
func (r Response) Text() string {
	parts := make([]string, 0, len(r.Content))
	for _, c := range r.Content {
		if c.Type == "text" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Outcome is the domain result of a tool: either a success carrying fields or
// a failure carrying a message. Outcomes are values, never errors.
type Outcome struct {
	ok      bool
	fields  map[string]any
	message string
}

// Success creates a successful outcome. The "success" key is reserved.
func Success(fields map[string]any) Outcome {
	return Outcome{ok: true, fields: fields}
}

// Failure creates a failed outcome with a human-readable message.
func Failure(message string) Outcome {
	return Outcome{message: message}
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.ok
}

// Message returns the failure message, empty on success.
func (o Outcome) Message() string {
	return o.message
}

// Field returns a success field.
func (o Outcome) Field(key string) (any, bool) {
	v, ok := o.fields[key]
	return v, ok
}

// MarshalJSON renders {"success":true,...} or {"success":false,"error":...}.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}{false, o.message})
	}
	out := make(map[string]any, len(o.fields)+1)
	maps.Copy(out, o.fields)
	out["success"] = true
	return json.Marshal(out)
}

// Response renders the outcome as an indented JSON text block.
func (o Outcome) Response() (Response, error) {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return Response{}, err
	}
	return TextResponse(string(data)), nil
}

// Succeeded reports whether the response carries a successful outcome.
// Responses that are not outcome JSON count as successful unless IsError is set.
func (r Response) Succeeded() bool {
	if r.IsError {
		return false
	}
	var outcome struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal([]byte(r.Text()), &outcome); err != nil || outcome.Success == nil {
		return true
	}
	return *outcome.Success
}
