// Package mcperror defines the protocol-level error model and the
// normalization of arbitrary failures into a response envelope.
package mcperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of protocol failure.
type Code string

// Protocol error codes.
const (
	CodeInvalidRequest Code = "INVALID_REQUEST"
	CodeToolNotFound   Code = "TOOL_NOT_FOUND"
	CodeInvalidParams  Code = "INVALID_PARAMS"
	CodeInternalError  Code = "INTERNAL_ERROR"
	CodeAuthInvalid    Code = "AUTH_INVALID"
	CodeRateLimited    Code = "RATE_LIMITED"
)

// Error is a typed protocol failure carrying an HTTP-like status.
// Values are not modified after construction.
type Error struct {
	Code       Code
	Message    string
	StatusCode int
	Data       map[string]any
}

// New creates a protocol error. A nil data map is omitted from JSON.
func New(code Code, message string, statusCode int, data map[string]any) *Error {
	return &Error{Code: code, Message: message, StatusCode: statusCode, Data: data}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Body is the serialized form {code, message, data?}.
type Body struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// ToJSON returns the serialized body.
func (e *Error) ToJSON() Body {
	return Body{Code: e.Code, Message: e.Message, Data: e.Data}
}

// MarshalJSON implements json.Marshaler.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToJSON())
}

// InvalidRequest reports a malformed call.
func InvalidRequest(message string) *Error {
	return New(CodeInvalidRequest, message, http.StatusBadRequest, nil)
}

// ToolNotFound reports an unknown tool name.
func ToolNotFound(name string) *Error {
	return New(CodeToolNotFound, fmt.Sprintf("Tool not found: %s", name), http.StatusNotFound,
		map[string]any{"toolName": name})
}

// InvalidParams reports arguments that failed validation.
func InvalidParams(message string) *Error {
	return New(CodeInvalidParams, message, http.StatusBadRequest, nil)
}

// InternalError reports an unexpected server-side failure.
func InternalError(message string) *Error {
	return New(CodeInternalError, message, http.StatusInternalServerError, nil)
}

// AuthInvalid reports missing or rejected credentials.
func AuthInvalid() *Error {
	return New(CodeAuthInvalid, "Invalid or missing API credentials", http.StatusUnauthorized, nil)
}

// RateLimited reports an exhausted rate budget.
func RateLimited(retryAfterSeconds int) *Error {
	return New(CodeRateLimited, "Rate limit exceeded", http.StatusTooManyRequests,
		map[string]any{"retryAfter": retryAfterSeconds})
}

// WithData returns a copy of e carrying data.
func (e *Error) WithData(data map[string]any) *Error {
	return New(e.Code, e.Message, e.StatusCode, data)
}

const unexpectedMessage = "An unexpected error occurred"

// ErrorResponse is the envelope handed to the transport.
type ErrorResponse struct {
	Error      Body `json:"error"`
	StatusCode int  `json:"statusCode"`
}

// FormatErrorResponse normalizes any failure value into an ErrorResponse.
// It never panics. Protocol errors pass through unchanged, other errors
// become INTERNAL_ERROR with their message, and any other value becomes
// INTERNAL_ERROR with a generic message.
func FormatErrorResponse(v any) ErrorResponse {
	err, ok := v.(error)
	if !ok || isNilError(err) {
		return internal(unexpectedMessage)
	}

	var mcpErr *Error
	if errors.As(err, &mcpErr) && mcpErr != nil {
		return ErrorResponse{Error: mcpErr.ToJSON(), StatusCode: mcpErr.StatusCode}
	}

	msg := safeMessage(err)
	if msg == "" {
		msg = unexpectedMessage
	}
	return internal(msg)
}

func internal(message string) ErrorResponse {
	return ErrorResponse{
		Error:      Body{Code: CodeInternalError, Message: message},
		StatusCode: http.StatusInternalServerError,
	}
}

func isNilError(err error) bool {
	if err == nil {
		return true
	}
	e, ok := err.(*Error)
	return ok && e == nil
}

// safeMessage calls err.Error(), treating a panicking implementation as
// message-less.
func safeMessage(err error) (msg string) {
	defer func() {
		if recover() != nil {
			msg = ""
		}
	}()
	return err.Error()
}
