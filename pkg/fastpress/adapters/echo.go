// Package adapters implements fastpress.WebServerInterface for echo, gin and fiber.
package adapters

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/toyz/fastpress/pkg/fastpress"
)

// EchoAdapter implements fastpress.WebServerInterface for Echo v4
type EchoAdapter struct {
	engine *echo.Echo
}

// NewEchoAdapter wraps an existing Echo instance. Routing is made non-strict:
// "/items/" is served by the "/items" route.
func NewEchoAdapter(e *echo.Echo) *EchoAdapter {
	e.Pre(echomw.RemoveTrailingSlash())
	return &EchoAdapter{engine: e}
}

// NewDefaultEchoAdapter creates an adapter around a fresh Echo instance
// with the banner hidden.
func NewDefaultEchoAdapter() *EchoAdapter {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	return NewEchoAdapter(e)
}

func (ea *EchoAdapter) RegisterRoute(method string, path fastpress.Path, handler fastpress.HandlerFunc, middlewares ...fastpress.MiddlewareFunc) {
	ea.engine.Add(method, path.Render("*"), convertEchoHandler(handler), convertEchoMiddlewares(middlewares)...)
}

func (ea *EchoAdapter) RegisterGroup(prefix string) fastpress.RouteGroup {
	return &EchoGroupAdapter{group: ea.engine.Group(prefix)}
}

func (ea *EchoAdapter) Use(middleware fastpress.MiddlewareFunc) {
	ea.engine.Use(convertEchoMiddleware(middleware))
}

// Start blocks serving on addr. It returns nil after a graceful Stop.
func (ea *EchoAdapter) Start(addr string) error {
	if err := ea.engine.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (ea *EchoAdapter) Stop(ctx context.Context) error {
	return ea.engine.Shutdown(ctx)
}

func (ea *EchoAdapter) Name() string {
	return "Echo"
}

// Engine returns the underlying Echo instance
func (ea *EchoAdapter) Engine() *echo.Echo {
	return ea.engine
}

// ServeHTTP lets the adapter be driven by net/http and httptest directly.
func (ea *EchoAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ea.engine.ServeHTTP(w, r)
}

// EchoGroupAdapter implements fastpress.RouteGroup for Echo groups
type EchoGroupAdapter struct {
	group *echo.Group
}

func (ega *EchoGroupAdapter) RegisterRoute(method string, path fastpress.Path, handler fastpress.HandlerFunc, middlewares ...fastpress.MiddlewareFunc) {
	ega.group.Add(method, path.Render("*"), convertEchoHandler(handler), convertEchoMiddlewares(middlewares)...)
}

func (ega *EchoGroupAdapter) Use(middleware fastpress.MiddlewareFunc) {
	ega.group.Use(convertEchoMiddleware(middleware))
}

func (ega *EchoGroupAdapter) Group(prefix string) fastpress.RouteGroup {
	return &EchoGroupAdapter{group: ega.group.Group(prefix)}
}

// Errors returned by handlers go back to Echo untouched so its
// HTTPErrorHandler formats them.
func convertEchoHandler(handler fastpress.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		return handler(&EchoRequestContext{context: c})
	}
}

func convertEchoMiddleware(middleware fastpress.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			forward := func(fastpress.RequestContext) error {
				return next(c)
			}
			return middleware(forward)(&EchoRequestContext{context: c})
		}
	}
}

func convertEchoMiddlewares(middlewares []fastpress.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, len(middlewares))
	for i, mw := range middlewares {
		out[i] = convertEchoMiddleware(mw)
	}
	return out
}

// EchoRequestContext implements fastpress.RequestContext for Echo
type EchoRequestContext struct {
	context echo.Context
}

func (erc *EchoRequestContext) Method() string { return erc.context.Request().Method }

func (erc *EchoRequestContext) Path() string { return erc.context.Request().URL.Path }

func (erc *EchoRequestContext) RealIP() string { return erc.context.RealIP() }

func (erc *EchoRequestContext) Param(key string) string { return erc.context.Param(key) }

func (erc *EchoRequestContext) ParamNames() []string { return erc.context.ParamNames() }

func (erc *EchoRequestContext) ParamValues() []string { return erc.context.ParamValues() }

func (erc *EchoRequestContext) QueryParam(key string) string { return erc.context.QueryParam(key) }

func (erc *EchoRequestContext) QueryParams() map[string][]string { return erc.context.QueryParams() }

func (erc *EchoRequestContext) QueryString() string { return erc.context.QueryString() }

func (erc *EchoRequestContext) Request() fastpress.RequestInterface {
	return &httpRequest{request: erc.context.Request()}
}

func (erc *EchoRequestContext) Response() fastpress.ResponseInterface {
	return &EchoResponseInterface{response: erc.context.Response(), context: erc.context}
}

func (erc *EchoRequestContext) Context() context.Context { return erc.context.Request().Context() }

func (erc *EchoRequestContext) Get(key string) any { return erc.context.Get(key) }

func (erc *EchoRequestContext) Set(key string, val any) { erc.context.Set(key, val) }

// EchoResponseInterface implements fastpress.ResponseInterface for Echo responses
type EchoResponseInterface struct {
	response *echo.Response
	context  echo.Context
}

func (eri *EchoResponseInterface) Status() int { return eri.response.Status }

func (eri *EchoResponseInterface) SetStatus(code int) { eri.response.Status = code }

func (eri *EchoResponseInterface) Header(key string) string { return eri.response.Header().Get(key) }

func (eri *EchoResponseInterface) SetHeader(key, value string) { eri.response.Header().Set(key, value) }

func (eri *EchoResponseInterface) JSON(code int, i any) error { return eri.context.JSON(code, i) }

func (eri *EchoResponseInterface) String(code int, s string) error { return eri.context.String(code, s) }

func (eri *EchoResponseInterface) Blob(code int, contentType string, b []byte) error {
	return eri.context.Blob(code, contentType, b)
}

func (eri *EchoResponseInterface) NoContent(code int) error { return eri.context.NoContent(code) }

func (eri *EchoResponseInterface) SetCookie(cookie fastpress.Cookie) {
	eri.context.SetCookie(toHTTPCookie(cookie))
}

func (eri *EchoResponseInterface) Written() bool { return eri.response.Committed }

func (eri *EchoResponseInterface) Raw() any { return eri.response }

// httpRequest implements fastpress.RequestInterface over *http.Request. Echo
// and gin share it.
type httpRequest struct {
	request *http.Request
}

func (r *httpRequest) Header(key string) string { return r.request.Header.Get(key) }

func (r *httpRequest) SetHeader(key, value string) { r.request.Header.Set(key, value) }

// Body reads the body and puts it back so later readers see it too.
func (r *httpRequest) Body() ([]byte, error) {
	if r.request.Body == nil || r.request.Body == http.NoBody {
		return nil, nil
	}
	b, err := io.ReadAll(r.request.Body)
	_ = r.request.Body.Close()
	r.request.Body = io.NopCloser(bytes.NewReader(b))
	return b, err
}

func (r *httpRequest) ContentLength() int64 { return r.request.ContentLength }

func (r *httpRequest) ContentType() string { return r.request.Header.Get("Content-Type") }

func (r *httpRequest) Cookies() []fastpress.Cookie {
	cookies := r.request.Cookies()
	out := make([]fastpress.Cookie, len(cookies))
	for i, c := range cookies {
		out[i] = fromHTTPCookie(c)
	}
	return out
}

func (r *httpRequest) Cookie(name string) (fastpress.Cookie, error) {
	c, err := r.request.Cookie(name)
	if err != nil {
		return fastpress.Cookie{}, err
	}
	return fromHTTPCookie(c), nil
}

func (r *httpRequest) Raw() any { return r.request }

func fromHTTPCookie(c *http.Cookie) fastpress.Cookie {
	return fastpress.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.Expires,
		MaxAge:   c.MaxAge,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
		SameSite: fastpress.SameSiteMode(c.SameSite),
	}
}

func toHTTPCookie(c fastpress.Cookie) *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.Expires,
		MaxAge:   c.MaxAge,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
		SameSite: http.SameSite(c.SameSite),
	}
}
