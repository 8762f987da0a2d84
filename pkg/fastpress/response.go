// Package fastpress is a controller based routing layer over echo, gin or fiber.
//
// Controllers are declared explicitly with NewController and bound to a host
// server with Bind. Every route runs the same pipeline: guards, parameter
// resolution, before hooks, the handler, after hooks and finally response
// serialization.
package fastpress

import (
	"errors"
	"fmt"
	"net/http"
)

// StandardResponse is the uniform response envelope.
//
// It implements error: returning one from a pipe, guard, hook, middleware or
// handler sends it with its own status code instead of treating it as a failure.
//
//	return nil, fastpress.NotFound("Item not found")
type StandardResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message,omitempty"`
	Data       any    `json:"data,omitempty"`
}

// NewResponse creates a StandardResponse. At most one data value is used.
func NewResponse(statusCode int, message string, data ...any) *StandardResponse {
	r := &StandardResponse{StatusCode: statusCode, Message: message}
	if len(data) > 0 {
		r.Data = data[0]
	}
	return r
}

func (r *StandardResponse) Error() string {
	if r.Message == "" {
		return fmt.Sprintf("%d %s", r.StatusCode, http.StatusText(r.StatusCode))
	}
	return fmt.Sprintf("%d %s", r.StatusCode, r.Message)
}

func OK(message string, data ...any) *StandardResponse {
	return NewResponse(http.StatusOK, message, data...)
}

func Created(message string, data ...any) *StandardResponse {
	return NewResponse(http.StatusCreated, message, data...)
}

func BadRequest(message string, data ...any) *StandardResponse {
	return NewResponse(http.StatusBadRequest, message, data...)
}

func Unauthorized(message string) *StandardResponse {
	return NewResponse(http.StatusUnauthorized, message)
}

func Forbidden(message string) *StandardResponse {
	return NewResponse(http.StatusForbidden, message)
}

func NotFound(message string) *StandardResponse {
	return NewResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *StandardResponse {
	return NewResponse(http.StatusInternalServerError, message)
}

// FieldError is one failed field of a validated payload.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationErrors is the data payload of a failed validation.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// ValidationFailed builds the 400 response returned by validating pipes.
func ValidationFailed(errs []FieldError) *StandardResponse {
	return BadRequest("Validation failed", ValidationErrors{Errors: errs})
}

// AsResponse reports whether err is, or wraps, a StandardResponse.
func AsResponse(err error) (*StandardResponse, bool) {
	var resp *StandardResponse
	if errors.As(err, &resp) && resp != nil {
		return resp, true
	}
	return nil, false
}
