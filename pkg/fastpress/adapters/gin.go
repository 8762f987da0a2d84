package adapters

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/toyz/fastpress/pkg/fastpress"
)

// GinAdapter implements fastpress.WebServerInterface for the Gin framework
type GinAdapter struct {
	engine *gin.Engine

	mu     sync.Mutex
	server *http.Server
}

// NewGinAdapter wraps an existing Gin engine.
func NewGinAdapter(g *gin.Engine) *GinAdapter {
	return &GinAdapter{engine: g}
}

// NewDefaultGinAdapter creates an adapter around gin.New() with panic recovery.
func NewDefaultGinAdapter() *GinAdapter {
	g := gin.New()
	g.Use(gin.Recovery())
	return &GinAdapter{engine: g}
}

func (ga *GinAdapter) RegisterRoute(method string, path fastpress.Path, handler fastpress.HandlerFunc, middlewares ...fastpress.MiddlewareFunc) {
	ga.engine.Handle(method, path.Render("*path"), ginChain(handler, middlewares)...)
}

func (ga *GinAdapter) RegisterGroup(prefix string) fastpress.RouteGroup {
	return &GinRouteGroup{group: ga.engine.Group(prefix)}
}

func (ga *GinAdapter) Use(middleware fastpress.MiddlewareFunc) {
	ga.engine.Use(convertGinMiddleware(middleware))
}

// Start serves the engine through an http.Server so Stop can shut it down
// gracefully. It returns nil after Stop.
func (ga *GinAdapter) Start(addr string) error {
	ga.mu.Lock()
	ga.server = &http.Server{Addr: addr, Handler: ga}
	srv := ga.server
	ga.mu.Unlock()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (ga *GinAdapter) Stop(ctx context.Context) error {
	ga.mu.Lock()
	srv := ga.server
	ga.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (ga *GinAdapter) Name() string {
	return "Gin"
}

// Engine returns the underlying Gin engine
func (ga *GinAdapter) Engine() *gin.Engine {
	return ga.engine
}

// ServeHTTP routes non-strictly: a trailing slash is dropped before gin sees
// the path, so "/items/" is served by "/items" instead of redirected.
func (ga *GinAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if p := r.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") {
		r.URL.Path = strings.TrimRight(p, "/")
		if r.URL.Path == "" {
			r.URL.Path = "/"
		}
		r.URL.RawPath = ""
	}
	ga.engine.ServeHTTP(w, r)
}

// GinRouteGroup implements fastpress.RouteGroup for Gin
type GinRouteGroup struct {
	group *gin.RouterGroup
}

func (grg *GinRouteGroup) RegisterRoute(method string, path fastpress.Path, handler fastpress.HandlerFunc, middlewares ...fastpress.MiddlewareFunc) {
	grg.group.Handle(method, path.Render("*path"), ginChain(handler, middlewares)...)
}

func (grg *GinRouteGroup) Use(middleware fastpress.MiddlewareFunc) {
	grg.group.Use(convertGinMiddleware(middleware))
}

func (grg *GinRouteGroup) Group(prefix string) fastpress.RouteGroup {
	return &GinRouteGroup{group: grg.group.Group(prefix)}
}

func ginChain(handler fastpress.HandlerFunc, middlewares []fastpress.MiddlewareFunc) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, len(middlewares)+1)
	for _, mw := range middlewares {
		chain = append(chain, convertGinMiddleware(mw))
	}
	return append(chain, convertGinHandler(handler))
}

// Gin handlers return nothing, so errors are recorded on the context with
// c.Error and answered with a 500 unless a response was already written.
func convertGinHandler(handler fastpress.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := handler(&GinRequestContext{ctx: c}); err != nil {
			abortGin(c, err)
		}
	}
}

// A middleware that never calls next aborts the rest of the chain.
func convertGinMiddleware(middleware fastpress.MiddlewareFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		called := false
		next := func(fastpress.RequestContext) error {
			called = true
			c.Next()
			return nil
		}
		if err := middleware(next)(&GinRequestContext{ctx: c}); err != nil {
			abortGin(c, err)
			return
		}
		if !called {
			c.Abort()
		}
	}
}

func abortGin(c *gin.Context, err error) {
	_ = c.Error(err)
	if c.Writer.Written() {
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, fastpress.InternalServerError(http.StatusText(http.StatusInternalServerError)))
}

// GinRequestContext implements fastpress.RequestContext for Gin
type GinRequestContext struct {
	ctx *gin.Context
}

func (grc *GinRequestContext) Method() string { return grc.ctx.Request.Method }

func (grc *GinRequestContext) Path() string { return grc.ctx.Request.URL.Path }

func (grc *GinRequestContext) RealIP() string { return grc.ctx.ClientIP() }

// Param returns a path parameter. "*" reads the catch-all segment.
func (grc *GinRequestContext) Param(name string) string {
	if name == "*" {
		return grc.ctx.Param("path")
	}
	return grc.ctx.Param(name)
}

func (grc *GinRequestContext) ParamNames() []string {
	names := make([]string, 0, len(grc.ctx.Params))
	for _, param := range grc.ctx.Params {
		names = append(names, param.Key)
	}
	return names
}

func (grc *GinRequestContext) ParamValues() []string {
	values := make([]string, 0, len(grc.ctx.Params))
	for _, param := range grc.ctx.Params {
		values = append(values, param.Value)
	}
	return values
}

func (grc *GinRequestContext) QueryParam(name string) string { return grc.ctx.Query(name) }

func (grc *GinRequestContext) QueryParams() map[string][]string { return grc.ctx.Request.URL.Query() }

func (grc *GinRequestContext) QueryString() string { return grc.ctx.Request.URL.RawQuery }

func (grc *GinRequestContext) Request() fastpress.RequestInterface {
	return &httpRequest{request: grc.ctx.Request}
}

func (grc *GinRequestContext) Response() fastpress.ResponseInterface {
	return &GinResponseInterface{ctx: grc.ctx}
}

func (grc *GinRequestContext) Context() context.Context { return grc.ctx.Request.Context() }

func (grc *GinRequestContext) Get(key string) any {
	value, _ := grc.ctx.Get(key)
	return value
}

func (grc *GinRequestContext) Set(key string, val any) { grc.ctx.Set(key, val) }

// GinResponseInterface implements fastpress.ResponseInterface for Gin
type GinResponseInterface struct {
	ctx *gin.Context
}

func (gri *GinResponseInterface) Status() int { return gri.ctx.Writer.Status() }

func (gri *GinResponseInterface) SetStatus(code int) { gri.ctx.Status(code) }

func (gri *GinResponseInterface) Header(key string) string { return gri.ctx.Writer.Header().Get(key) }

func (gri *GinResponseInterface) SetHeader(key, value string) { gri.ctx.Header(key, value) }

func (gri *GinResponseInterface) JSON(code int, i any) error {
	gri.ctx.JSON(code, i)
	return nil
}

func (gri *GinResponseInterface) String(code int, s string) error {
	gri.ctx.String(code, "%s", s)
	return nil
}

func (gri *GinResponseInterface) Blob(code int, contentType string, b []byte) error {
	gri.ctx.Data(code, contentType, b)
	return nil
}

func (gri *GinResponseInterface) NoContent(code int) error {
	gri.ctx.Status(code)
	gri.ctx.Writer.WriteHeaderNow()
	return nil
}

func (gri *GinResponseInterface) SetCookie(cookie fastpress.Cookie) {
	http.SetCookie(gri.ctx.Writer, toHTTPCookie(cookie))
}

func (gri *GinResponseInterface) Written() bool { return gri.ctx.Writer.Written() }

func (gri *GinResponseInterface) Raw() any { return gri.ctx.Writer }
