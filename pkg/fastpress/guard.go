package fastpress

import "net/http"

// GuardResult is the outcome of a guard. A zero StatusCode or empty Message
// on a denial falls back to 403 "Forbidden".
type GuardResult struct {
	Allowed    bool
	Message    string
	StatusCode int
}

func Allow() GuardResult {
	return GuardResult{Allowed: true}
}

func Deny(statusCode int, message string) GuardResult {
	return GuardResult{StatusCode: statusCode, Message: message}
}

// Guard decides whether a request may reach its handler. Guards run in
// declaration order before parameters are resolved.
type Guard interface {
	CanActivate(ctx *Context) (GuardResult, error)
}

// GuardFunc adapts a function to Guard.
type GuardFunc func(ctx *Context) (GuardResult, error)

func (f GuardFunc) CanActivate(ctx *Context) (GuardResult, error) {
	return f(ctx)
}

// BoolGuard adapts a plain predicate; false denies with 403 "Forbidden".
type BoolGuard func(ctx *Context) bool

func (f BoolGuard) CanActivate(ctx *Context) (GuardResult, error) {
	return GuardResult{Allowed: f(ctx)}, nil
}

func (r GuardResult) denial() *StandardResponse {
	status := r.StatusCode
	if status == 0 {
		status = http.StatusForbidden
	}
	message := r.Message
	if message == "" {
		message = "Forbidden"
	}
	return NewResponse(status, message)
}
