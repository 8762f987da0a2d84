package fastpress

import (
	"context"
	"time"
)

// WebServerInterface is the contract every host framework adapter implements.
type WebServerInterface interface {
	// Route registration
	RegisterRoute(method string, path Path, handler HandlerFunc, middlewares ...MiddlewareFunc)
	RegisterGroup(prefix string) RouteGroup

	// Global middleware
	Use(middleware MiddlewareFunc)

	// Server lifecycle
	Start(addr string) error
	Stop(ctx context.Context) error

	Name() string
}

// RouteGroup is a set of routes sharing a path prefix and middleware.
type RouteGroup interface {
	RegisterRoute(method string, path Path, handler HandlerFunc, middlewares ...MiddlewareFunc)
	Use(middleware MiddlewareFunc)
	Group(prefix string) RouteGroup
}

// RequestContext is the framework-agnostic view of one request.
type RequestContext interface {
	Method() string
	Path() string
	RealIP() string

	Param(key string) string
	ParamNames() []string
	ParamValues() []string

	QueryParam(key string) string
	QueryParams() map[string][]string
	QueryString() string

	Request() RequestInterface
	Response() ResponseInterface

	// Context returns the request scoped context.Context.
	Context() context.Context

	// Per request storage shared by middleware and handlers.
	Get(key string) any
	Set(key string, val any)
}

// RequestInterface exposes the inbound request.
type RequestInterface interface {
	Header(key string) string
	SetHeader(key, value string)
	// Body returns the raw request body. It can be called more than once.
	Body() ([]byte, error)
	ContentLength() int64
	ContentType() string
	Cookies() []Cookie
	Cookie(name string) (Cookie, error)
	// Raw returns the framework request value (*http.Request or *fiber.Ctx).
	Raw() any
}

// ResponseInterface writes the outbound response.
type ResponseInterface interface {
	Status() int
	SetStatus(code int)

	Header(key string) string
	SetHeader(key, value string)

	JSON(code int, i any) error
	String(code int, s string) error
	Blob(code int, contentType string, b []byte) error
	NoContent(code int) error

	SetCookie(cookie Cookie)

	// Written reports whether headers were already sent.
	Written() bool
	// Raw returns the framework response value.
	Raw() any
}

// HandlerFunc is the signature adapters call for every matched route.
type HandlerFunc func(RequestContext) error

// MiddlewareFunc wraps a HandlerFunc.
type MiddlewareFunc func(HandlerFunc) HandlerFunc

// Cookie is an HTTP cookie independent of the host framework.
type Cookie struct {
	Name     string
	Value    string
	Path     string
	Domain   string
	Expires  time.Time
	MaxAge   int
	Secure   bool
	HttpOnly bool
	SameSite SameSiteMode
}

// SameSiteMode mirrors net/http.SameSite so adapters can convert directly.
type SameSiteMode int

const (
	SameSiteDefaultMode SameSiteMode = iota + 1
	SameSiteLaxMode
	SameSiteStrictMode
	SameSiteNoneMode
)

// String returns the attribute value as written in a Set-Cookie header.
func (m SameSiteMode) String() string {
	switch m {
	case SameSiteLaxMode:
		return "Lax"
	case SameSiteStrictMode:
		return "Strict"
	case SameSiteNoneMode:
		return "None"
	default:
		return ""
	}
}
