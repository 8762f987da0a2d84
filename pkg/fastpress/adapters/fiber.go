package adapters

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/toyz/fastpress/pkg/fastpress"
)

// FiberAdapter wraps a Fiber app to implement fastpress.WebServerInterface
type FiberAdapter struct {
	app *fiber.App
}

// NewFiberAdapter creates a Fiber app whose error handler answers with a
// StandardResponse body.
func NewFiberAdapter() *FiberAdapter {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          fiberErrorHandler,
	})
	return &FiberAdapter{app: app}
}

// NewDefaultFiberAdapter adds panic recovery to NewFiberAdapter.
func NewDefaultFiberAdapter() *FiberAdapter {
	adapter := NewFiberAdapter()
	adapter.app.Use(recover.New())
	return adapter
}

func fiberErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := http.StatusText(code)
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	return c.Status(code).JSON(fastpress.NewResponse(code, message))
}

func (fa *FiberAdapter) RegisterRoute(method string, path fastpress.Path, handler fastpress.HandlerFunc, middlewares ...fastpress.MiddlewareFunc) {
	fa.app.Add(strings.ToUpper(method), path.Render("*"), fiberChain(handler, middlewares)...)
}

func (fa *FiberAdapter) RegisterGroup(prefix string) fastpress.RouteGroup {
	return &FiberRouteGroup{group: fa.app.Group(prefix)}
}

func (fa *FiberAdapter) Use(middleware fastpress.MiddlewareFunc) {
	fa.app.Use(convertFiberMiddleware(middleware))
}

func (fa *FiberAdapter) Start(addr string) error {
	return fa.app.Listen(addr)
}

func (fa *FiberAdapter) Stop(ctx context.Context) error {
	return fa.app.ShutdownWithContext(ctx)
}

func (fa *FiberAdapter) Name() string {
	return "Fiber"
}

// App returns the underlying Fiber app
func (fa *FiberAdapter) App() *fiber.App {
	return fa.app
}

// Test runs req through the app without a listener.
func (fa *FiberAdapter) Test(req *http.Request, timeout ...time.Duration) (*http.Response, error) {
	msTimeout := -1
	if len(timeout) > 0 {
		msTimeout = int(timeout[0].Milliseconds())
	}
	return fa.app.Test(req, msTimeout)
}

// FiberRouteGroup wraps a Fiber router to implement fastpress.RouteGroup
type FiberRouteGroup struct {
	group fiber.Router
}

func (frg *FiberRouteGroup) RegisterRoute(method string, path fastpress.Path, handler fastpress.HandlerFunc, middlewares ...fastpress.MiddlewareFunc) {
	frg.group.Add(strings.ToUpper(method), path.Render("*"), fiberChain(handler, middlewares)...)
}

func (frg *FiberRouteGroup) Use(middleware fastpress.MiddlewareFunc) {
	frg.group.Use(convertFiberMiddleware(middleware))
}

func (frg *FiberRouteGroup) Group(prefix string) fastpress.RouteGroup {
	return &FiberRouteGroup{group: frg.group.Group(prefix)}
}

func fiberChain(handler fastpress.HandlerFunc, middlewares []fastpress.MiddlewareFunc) []fiber.Handler {
	chain := make([]fiber.Handler, 0, len(middlewares)+1)
	for _, mw := range middlewares {
		chain = append(chain, convertFiberMiddleware(mw))
	}
	return append(chain, convertFiberHandler(handler))
}

// Errors are returned to Fiber, which routes them to the app ErrorHandler.
func convertFiberHandler(handler fastpress.HandlerFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return handler(&FiberRequestContext{ctx: c})
	}
}

func convertFiberMiddleware(middleware fastpress.MiddlewareFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		next := func(fastpress.RequestContext) error {
			return c.Next()
		}
		return middleware(next)(&FiberRequestContext{ctx: c})
	}
}

// FiberRequestContext wraps fiber.Ctx to implement fastpress.RequestContext
type FiberRequestContext struct {
	ctx *fiber.Ctx
}

func (frc *FiberRequestContext) Method() string { return frc.ctx.Method() }

func (frc *FiberRequestContext) Path() string { return frc.ctx.Path() }

func (frc *FiberRequestContext) RealIP() string { return frc.ctx.IP() }

func (frc *FiberRequestContext) Param(name string) string { return frc.ctx.Params(name) }

// ParamNames returns the parameter names of the matched route.
func (frc *FiberRequestContext) ParamNames() []string {
	route := frc.ctx.Route()
	if route == nil {
		return nil
	}
	return append([]string(nil), route.Params...)
}

func (frc *FiberRequestContext) ParamValues() []string {
	names := frc.ParamNames()
	values := make([]string, len(names))
	for i, name := range names {
		values[i] = frc.ctx.Params(name)
	}
	return values
}

func (frc *FiberRequestContext) QueryParam(key string) string { return frc.ctx.Query(key) }

func (frc *FiberRequestContext) QueryParams() map[string][]string {
	result := make(map[string][]string)
	frc.ctx.Request().URI().QueryArgs().VisitAll(func(key, value []byte) {
		k := string(key)
		result[k] = append(result[k], string(value))
	})
	return result
}

func (frc *FiberRequestContext) QueryString() string {
	return string(frc.ctx.Request().URI().QueryString())
}

func (frc *FiberRequestContext) Request() fastpress.RequestInterface {
	return &FiberRequest{ctx: frc.ctx}
}

func (frc *FiberRequestContext) Response() fastpress.ResponseInterface {
	return &FiberResponse{ctx: frc.ctx}
}

func (frc *FiberRequestContext) Context() context.Context { return frc.ctx.UserContext() }

func (frc *FiberRequestContext) Get(key string) any { return frc.ctx.Locals(key) }

func (frc *FiberRequestContext) Set(key string, val any) { frc.ctx.Locals(key, val) }

// FiberRequest wraps fiber.Ctx to implement fastpress.RequestInterface
type FiberRequest struct {
	ctx *fiber.Ctx
}

func (fr *FiberRequest) Header(key string) string { return fr.ctx.Get(key) }

func (fr *FiberRequest) SetHeader(key, value string) { fr.ctx.Request().Header.Set(key, value) }

// Body returns a copy; fasthttp reuses the underlying buffer after the request.
func (fr *FiberRequest) Body() ([]byte, error) {
	return append([]byte(nil), fr.ctx.Body()...), nil
}

func (fr *FiberRequest) ContentLength() int64 { return int64(fr.ctx.Request().Header.ContentLength()) }

func (fr *FiberRequest) ContentType() string { return fr.ctx.Get(fiber.HeaderContentType) }

func (fr *FiberRequest) Cookies() []fastpress.Cookie {
	var cookies []fastpress.Cookie
	fr.ctx.Request().Header.VisitAllCookie(func(key, value []byte) {
		cookies = append(cookies, fastpress.Cookie{Name: string(key), Value: string(value)})
	})
	return cookies
}

func (fr *FiberRequest) Cookie(name string) (fastpress.Cookie, error) {
	value := fr.ctx.Cookies(name)
	if value == "" {
		return fastpress.Cookie{}, http.ErrNoCookie
	}
	return fastpress.Cookie{Name: name, Value: value}, nil
}

func (fr *FiberRequest) Raw() any { return fr.ctx }

// FiberResponse wraps fiber.Ctx to implement fastpress.ResponseInterface
type FiberResponse struct {
	ctx *fiber.Ctx
}

func (fr *FiberResponse) Status() int { return fr.ctx.Response().StatusCode() }

func (fr *FiberResponse) SetStatus(code int) { fr.ctx.Status(code) }

func (fr *FiberResponse) Header(key string) string {
	return string(fr.ctx.Response().Header.Peek(key))
}

func (fr *FiberResponse) SetHeader(name, value string) { fr.ctx.Set(name, value) }

// writtenKey marks a response sent through FiberResponse. Fiber buffers the
// response, so an empty body alone does not say whether one was sent.
const writtenKey = "fastpress.written"

func (fr *FiberResponse) markWritten() { fr.ctx.Locals(writtenKey, true) }

func (fr *FiberResponse) JSON(code int, data any) error {
	fr.markWritten()
	return fr.ctx.Status(code).JSON(data)
}

func (fr *FiberResponse) String(code int, s string) error {
	fr.markWritten()
	return fr.ctx.Status(code).SendString(s)
}

func (fr *FiberResponse) Blob(code int, contentType string, data []byte) error {
	fr.markWritten()
	fr.ctx.Set(fiber.HeaderContentType, contentType)
	return fr.ctx.Status(code).Send(data)
}

func (fr *FiberResponse) NoContent(code int) error {
	fr.markWritten()
	return fr.ctx.SendStatus(code)
}

func (fr *FiberResponse) SetCookie(cookie fastpress.Cookie) {
	fr.ctx.Cookie(&fiber.Cookie{
		Name:     cookie.Name,
		Value:    cookie.Value,
		Path:     cookie.Path,
		Domain:   cookie.Domain,
		Expires:  cookie.Expires,
		MaxAge:   cookie.MaxAge,
		Secure:   cookie.Secure,
		HTTPOnly: cookie.HttpOnly,
		SameSite: cookie.SameSite.String(),
	})
}

func (fr *FiberResponse) Written() bool {
	if sent, _ := fr.ctx.Locals(writtenKey).(bool); sent {
		return true
	}
	return len(fr.ctx.Response().Body()) > 0
}

func (fr *FiberResponse) Raw() any { return fr.ctx.Response() }
