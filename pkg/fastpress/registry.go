package fastpress

import (
	"strings"
	"sync"
)

// RouteInfo describes a bound route.
type RouteInfo struct {
	// Method is the HTTP method (GET, POST, PUT, DELETE, PATCH)
	Method string

	// Path is the route path as declared on the controller (e.g. "/:id")
	Path string

	// FullPath is the controller prefix joined with Path (e.g. "/items/:id")
	FullPath string

	HandlerName    string
	ControllerName string

	// Counts of the pipeline stages attached to the route
	Middlewares int
	Guards      int
	Hooks       int

	Params []ParamDescriptor
}

// RouteRegistry records every route bound by Bind. It is safe for concurrent use.
type RouteRegistry struct {
	mu     sync.RWMutex
	routes []RouteInfo
}

func NewRouteRegistry() *RouteRegistry {
	return &RouteRegistry{}
}

// Register adds a route to the registry.
func (r *RouteRegistry) Register(route RouteInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

// GetAllRoutes returns a copy of every registered route.
func (r *RouteRegistry) GetAllRoutes() []RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]RouteInfo(nil), r.routes...)
}

// GetRoutesByController returns routes filtered by controller name
func (r *RouteRegistry) GetRoutesByController(controllerName string) []RouteInfo {
	return r.filter(func(route RouteInfo) bool {
		return route.ControllerName == controllerName
	})
}

// GetRoutesByMethod returns routes filtered by HTTP method
func (r *RouteRegistry) GetRoutesByMethod(method string) []RouteInfo {
	method = strings.ToUpper(method)
	return r.filter(func(route RouteInfo) bool {
		return route.Method == method
	})
}

// Find returns the route bound for method and full path.
func (r *RouteRegistry) Find(method, fullPath string) (RouteInfo, bool) {
	matches := r.filter(func(route RouteInfo) bool {
		return route.Method == strings.ToUpper(method) && route.FullPath == fullPath
	})
	if len(matches) == 0 {
		return RouteInfo{}, false
	}
	return matches[0], true
}

func (r *RouteRegistry) filter(keep func(RouteInfo) bool) []RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var filtered []RouteInfo
	for _, route := range r.routes {
		if keep(route) {
			filtered = append(filtered, route)
		}
	}
	return filtered
}
