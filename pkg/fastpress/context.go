package fastpress

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/toyz/fastpress/pkg/fastpress/logging"
)

// Keys used on the host framework's per request storage. Middleware and route
// handlers get separate Context values, so shared state lives there.
const (
	userKey  = "fastpress.user"
	bodyKey  = "fastpress.body"
	queryKey = "fastpress.query"
	pathKey  = "fastpress.path"
)

// Principal is the authenticated user exposed to handlers.
type Principal struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type decodedBody struct {
	value any
	err   error
}

// Context wraps one request for guards, pipes, hooks, middleware and handlers.
type Context struct {
	raw  RequestContext
	app  *AppContext
	next func() error
}

// NewContext wraps raw. next is the continuation used by middleware and may be nil.
func NewContext(raw RequestContext, app *AppContext, next func() error) *Context {
	if app == nil {
		app = &AppContext{}
	}
	return &Context{raw: raw, app: app, next: next}
}

func (c *Context) Raw() RequestContext { return c.raw }

func (c *Context) App() *AppContext { return c.app }

func (c *Context) Logger() logging.Logger { return c.app.Log() }

// Context returns the request context.Context for downstream calls.
func (c *Context) Context() context.Context {
	if ctx := c.raw.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func (c *Context) Method() string { return c.raw.Method() }

// Path returns the request path, sanitized when a sanitizer ran.
func (c *Context) Path() string {
	if p, ok := c.raw.Get(pathKey).(string); ok {
		return p
	}
	return c.raw.Path()
}

// SetPath replaces the path seen by the rest of the request. Routing has
// already happened and is not affected.
func (c *Context) SetPath(p string) {
	c.raw.Set(pathKey, p)
}

// Params returns the matched route parameters.
func (c *Context) Params() map[string]string {
	names := c.raw.ParamNames()
	params := make(map[string]string, len(names))
	for _, name := range names {
		params[name] = c.raw.Param(name)
	}
	return params
}

// Param returns one route parameter and whether the route declares it.
func (c *Context) Param(key string) (string, bool) {
	v, ok := c.Params()[key]
	return v, ok
}

// Query returns the query string values, sanitized when a sanitizer ran.
func (c *Context) Query() url.Values {
	if q, ok := c.raw.Get(queryKey).(url.Values); ok {
		return q
	}
	return url.Values(c.raw.QueryParams())
}

// SetQuery replaces the query values seen by the rest of the request.
func (c *Context) SetQuery(q url.Values) {
	c.raw.Set(queryKey, q)
}

// Body decodes the JSON request body once per request. An empty body is nil.
func (c *Context) Body() (any, error) {
	if cached, ok := c.raw.Get(bodyKey).(*decodedBody); ok {
		return cached.value, cached.err
	}

	decoded := &decodedBody{}
	raw, err := c.raw.Request().Body()
	switch {
	case err != nil:
		decoded.err = err
	case len(raw) > 0:
		if err := json.Unmarshal(raw, &decoded.value); err != nil {
			decoded.err = BadRequest("Invalid JSON body")
		}
	}
	c.raw.Set(bodyKey, decoded)
	return decoded.value, decoded.err
}

// User returns the authenticated principal or nil.
func (c *Context) User() *Principal {
	p, _ := c.raw.Get(userKey).(*Principal)
	return p
}

func (c *Context) SetUser(p *Principal) {
	c.raw.Set(userKey, p)
}

func (c *Context) Request() RequestInterface { return c.raw.Request() }

func (c *Context) Response() ResponseInterface { return c.raw.Response() }

// Cookie returns the value of the named request cookie.
func (c *Context) Cookie(name string) (string, bool) {
	ck, err := c.raw.Request().Cookie(name)
	if err != nil || ck.Value == "" {
		return "", false
	}
	return ck.Value, true
}

func (c *Context) SetCookie(ck Cookie) {
	c.raw.Response().SetCookie(ck)
}

// Next hands control to the next middleware or the route. It is a no-op
// outside middleware.
func (c *Context) Next() error {
	if c.next == nil {
		return nil
	}
	return c.next()
}

// Send writes r with its own status code.
func (c *Context) Send(r *StandardResponse) error {
	return c.raw.Response().JSON(r.StatusCode, r)
}

func (c *Context) JSON(code int, v any) error {
	return c.raw.Response().JSON(code, v)
}
