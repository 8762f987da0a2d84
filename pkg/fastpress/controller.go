package fastpress

import (
	"net/http"
	"strings"
)

// Handler is a route handler. args holds the resolved parameters by position,
// or only ctx when the route declares no parameters.
type Handler func(ctx *Context, args Args) (any, error)

// Route is one registered endpoint of a controller.
type Route struct {
	Method      string
	Path        string
	HandlerName string
	Handler     Handler
	Params      []ParamDescriptor
	Guards      []*Ref[Guard]
	Hooks       []*Ref[Hook]
}

type routeKey struct {
	path   string
	method string
}

func (r *Route) key() routeKey {
	return routeKey{path: JoinPath("", r.Path), method: r.Method}
}

// Controller groups routes under one path prefix. Definitions are built at
// startup and are read only once the controller is bound.
type Controller struct {
	prefix     string
	name       string
	routes     []*Route
	middleware []*Ref[Middleware]
	parent     *Controller
}

// NewController creates a controller mounted at prefix. name identifies it in
// logs and in the route registry.
func NewController(prefix, name string) *Controller {
	return &Controller{prefix: prefix, name: name}
}

func (c *Controller) Prefix() string { return c.prefix }

func (c *Controller) Name() string { return c.name }

func (c *Controller) Parent() *Controller { return c.parent }

// Use appends controller level middleware.
func (c *Controller) Use(middleware ...Middleware) *Controller {
	return c.UseRef(instances(middleware)...)
}

func (c *Controller) UseRef(refs ...*Ref[Middleware]) *Controller {
	c.middleware = append(c.middleware, refs...)
	return c
}

// Extend inherits the routes of parent. A route declared here with the same
// path and method replaces the inherited one.
func (c *Controller) Extend(parent *Controller) *Controller {
	for p := parent; p != nil; p = p.parent {
		if p == c {
			panic("fastpress: controller " + c.name + " cannot extend itself")
		}
	}
	c.parent = parent
	return c
}

// Handle registers a route. Registering the same path, method and handler
// name twice keeps the first registration.
func (c *Controller) Handle(method, path, handlerName string, h Handler, opts ...RouteOption) *Controller {
	route := &Route{
		Method:      strings.ToUpper(method),
		Path:        path,
		HandlerName: handlerName,
		Handler:     h,
	}
	for _, existing := range c.routes {
		if existing.key() == route.key() && existing.HandlerName == handlerName {
			return c
		}
	}
	for _, opt := range opts {
		opt.applyRoute(route)
	}
	c.routes = append(c.routes, route)
	return c
}

func (c *Controller) Get(path, handlerName string, h Handler, opts ...RouteOption) *Controller {
	return c.Handle(http.MethodGet, path, handlerName, h, opts...)
}

func (c *Controller) Post(path, handlerName string, h Handler, opts ...RouteOption) *Controller {
	return c.Handle(http.MethodPost, path, handlerName, h, opts...)
}

func (c *Controller) Put(path, handlerName string, h Handler, opts ...RouteOption) *Controller {
	return c.Handle(http.MethodPut, path, handlerName, h, opts...)
}

func (c *Controller) Delete(path, handlerName string, h Handler, opts ...RouteOption) *Controller {
	return c.Handle(http.MethodDelete, path, handlerName, h, opts...)
}

func (c *Controller) Patch(path, handlerName string, h Handler, opts ...RouteOption) *Controller {
	return c.Handle(http.MethodPatch, path, handlerName, h, opts...)
}

// OwnRoutes returns the routes declared directly on c.
func (c *Controller) OwnRoutes() []*Route {
	return append([]*Route(nil), c.routes...)
}

// Routes returns the inherited routes merged with c's own. Inherited routes keep
// their position unless c overrides them; c's remaining routes follow.
func (c *Controller) Routes() []*Route {
	if c.parent == nil {
		return c.OwnRoutes()
	}

	overrides := make(map[routeKey]*Route, len(c.routes))
	for _, r := range c.routes {
		if _, ok := overrides[r.key()]; !ok {
			overrides[r.key()] = r
		}
	}

	merged := make([]*Route, 0, len(c.routes))
	used := make(map[*Route]bool, len(c.routes))
	for _, base := range c.parent.Routes() {
		override, ok := overrides[base.key()]
		if !ok {
			merged = append(merged, base)
			continue
		}
		if !used[override] {
			merged = append(merged, override)
			used[override] = true
		}
	}
	for _, r := range c.routes {
		if !used[r] {
			merged = append(merged, r)
		}
	}
	return merged
}

// Middleware returns c's middleware, or the nearest ancestor's when c declares none.
func (c *Controller) Middleware() []*Ref[Middleware] {
	if len(c.middleware) == 0 && c.parent != nil {
		return c.parent.Middleware()
	}
	return append([]*Ref[Middleware](nil), c.middleware...)
}
