package fastpress

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

var supportedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
	http.MethodPatch:  true,
}

// Bind mounts c on server under its prefix: one route group carrying the
// controller middleware, and one handling closure per route.
func Bind(server WebServerInterface, app *AppContext, c *Controller) error {
	if app == nil {
		app = &AppContext{}
	}
	log := app.Log()
	registry := app.Registry()

	routes, shadowed := firstPerKey(c.Routes())
	for _, r := range shadowed {
		log.Warn("Skipping shadowed route", "controller", c.Name(), "method", r.Method, "path", JoinPath(c.Prefix(), r.Path), "handler", r.HandlerName)
	}
	for _, r := range routes {
		if !supportedMethods[r.Method] {
			return fmt.Errorf("fastpress: %s.%s: unsupported method %q", c.Name(), r.HandlerName, r.Method)
		}
		if r.Handler == nil {
			return fmt.Errorf("fastpress: %s.%s: nil handler", c.Name(), r.HandlerName)
		}
	}

	prefix := JoinPath(c.Prefix(), "")
	if prefix == "/" {
		prefix = ""
	}
	group := server.RegisterGroup(prefix)

	middleware := c.Middleware()
	for _, m := range middleware {
		group.Use(bindMiddleware(app, c, m))
	}

	for _, r := range routes {
		path := routePath(prefix, r.Path)
		group.RegisterRoute(r.Method, Path(path), bindRoute(app, c, r))
		registry.Register(RouteInfo{
			Method:         r.Method,
			Path:           r.Path,
			FullPath:       JoinPath(prefix, r.Path),
			HandlerName:    r.HandlerName,
			ControllerName: c.Name(),
			Middlewares:    len(middleware),
			Guards:         len(r.Guards),
			Hooks:          len(r.Hooks),
			Params:         r.Params,
		})
		log.Debug("Mapped route", "controller", c.Name(), "method", r.Method, "path", JoinPath(prefix, r.Path), "handler", r.HandlerName)
	}
	return nil
}

// firstPerKey keeps the first route of each (path, method); the host routers
// either panic on or silently replace a second registration.
func firstPerKey(routes []*Route) (kept, shadowed []*Route) {
	seen := make(map[routeKey]bool, len(routes))
	for _, r := range routes {
		k := r.key()
		if seen[k] {
			shadowed = append(shadowed, r)
			continue
		}
		seen[k] = true
		kept = append(kept, r)
	}
	return kept, shadowed
}

// routePath is the path registered on the group, relative to prefix. The
// controller root is registered without a trailing slash.
func routePath(prefix, path string) string {
	p := strings.Trim(path, "/")
	if p == "" {
		if prefix == "" {
			return "/"
		}
		return ""
	}
	return "/" + p
}

func bindMiddleware(app *AppContext, c *Controller, ref *Ref[Middleware]) MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(raw RequestContext) error {
			ctx := NewContext(raw, app, func() error { return next(raw) })
			err := ref.Get().Handle(ctx)
			if resp, ok := AsResponse(err); ok {
				app.Log().Warn(fmt.Sprintf("%s middleware rejected %s %s: %s", c.Name(), raw.Method(), raw.Path(), resp.Message))
				return ctx.Send(resp)
			}
			return err
		}
	}
}

func bindRoute(app *AppContext, c *Controller, r *Route) HandlerFunc {
	return func(raw RequestContext) error {
		ctx := NewContext(raw, app, nil)
		log := app.Log()
		method := strings.ToUpper(raw.Method())
		url := raw.Path()
		if qs := raw.QueryString(); qs != "" {
			url += "?" + qs
		}

		start := time.Now()
		log.Info(fmt.Sprintf("%s %s", method, url))
		defer func() {
			log.Info(fmt.Sprintf("%s %s %d - %dms", method, url, raw.Response().Status(), time.Since(start).Milliseconds()))
		}()

		err := run(ctx, r)
		if resp, ok := AsResponse(err); ok {
			log.Error(fmt.Sprintf("Error in %s.%s: %s", c.Name(), r.HandlerName, resp.Message))
			return ctx.Send(resp)
		}
		return err
	}
}

// run executes the route pipeline: guards, parameters, before hooks, handler,
// after hooks and serialization.
func run(ctx *Context, r *Route) error {
	for _, g := range r.Guards {
		result, err := g.Get().CanActivate(ctx)
		if err != nil {
			return err
		}
		if !result.Allowed {
			return ctx.Send(result.denial())
		}
	}

	args, err := Resolve(ctx, r.Params)
	if err != nil {
		return err
	}

	for _, h := range r.Hooks {
		early, err := h.Get().Before(ctx)
		if err != nil {
			return err
		}
		if early != nil {
			return ctx.Send(early)
		}
	}

	result, err := r.Handler(ctx, args)
	if err != nil {
		return err
	}

	for _, h := range r.Hooks {
		replacement, err := h.Get().After(ctx, result)
		if err != nil {
			return err
		}
		if replacement != nil {
			result = replacement
		}
	}

	return render(ctx, result)
}

// render sends result. Nothing is sent when the handler returned nil or has
// already written the response itself.
func render(ctx *Context, result any) error {
	if result == nil || ctx.Response().Written() {
		return nil
	}
	switch v := result.(type) {
	case *StandardResponse:
		if v == nil {
			return nil
		}
		return ctx.Send(v)
	case StandardResponse:
		return ctx.Send(&v)
	default:
		return ctx.JSON(http.StatusOK, v)
	}
}
