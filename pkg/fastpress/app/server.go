package app

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/toyz/fastpress/pkg/fastpress"
	"github.com/toyz/fastpress/pkg/fastpress/adapters"
	"github.com/toyz/fastpress/pkg/fastpress/config"
	"github.com/toyz/fastpress/pkg/fastpress/logging"
)

const requestIDHeader = "X-Request-Id"

var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodOptions}
	corsHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
)

// newServer builds the adapter named by server.adapter with CORS, request
// ids and panic recovery installed.
func newServer(cfg *config.Config, log logging.Logger) (fastpress.WebServerInterface, error) {
	origins := cfg.Server.AllowedOrigins

	switch strings.ToLower(cfg.Server.Adapter) {
	case "", "echo":
		e := echo.New()
		e.HideBanner = true
		e.HidePort = true
		e.HTTPErrorHandler = echoErrorHandler(log)
		e.Use(echomw.RequestID())
		e.Use(echomw.Recover())
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     origins,
			AllowMethods:     corsMethods,
			AllowHeaders:     corsHeaders,
			AllowCredentials: !slices.Contains(origins, "*"),
		}))
		return adapters.NewEchoAdapter(e), nil

	case "gin":
		if cfg.IsProduction() {
			gin.SetMode(gin.ReleaseMode)
		}
		a := adapters.NewDefaultGinAdapter()
		a.Use(requestID())
		a.Use(allowOrigins(origins))
		return a, nil

	case "fiber":
		a := adapters.NewDefaultFiberAdapter()
		a.App().Use(requestid.New())
		a.App().Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(origins, ","),
			AllowMethods:     strings.Join(corsMethods, ","),
			AllowHeaders:     strings.Join(corsHeaders, ","),
			AllowCredentials: !slices.Contains(origins, "*"),
		}))
		return a, nil
	}
	return nil, fmt.Errorf("app: unknown adapter %q", cfg.Server.Adapter)
}

// echoErrorHandler answers every unhandled error with a StandardResponse
// body. Server errors are logged.
func echoErrorHandler(log logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		res := errorResponse(err)
		if res.StatusCode >= http.StatusInternalServerError {
			log.Error("Unhandled error",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"error", err,
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(res.StatusCode)
		} else {
			err = c.JSON(res.StatusCode, res)
		}
		if err != nil {
			log.Error("Failed to write error response", "error", err)
		}
	}
}

func errorResponse(err error) *fastpress.StandardResponse {
	if res, ok := fastpress.AsResponse(err); ok {
		return res
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		return fastpress.NewResponse(he.Code, msg)
	}
	return fastpress.InternalServerError(http.StatusText(http.StatusInternalServerError))
}

// requestID propagates an inbound X-Request-Id or assigns a new one.
func requestID() fastpress.MiddlewareFunc {
	return func(next fastpress.HandlerFunc) fastpress.HandlerFunc {
		return func(c fastpress.RequestContext) error {
			id := c.Request().Header(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().SetHeader(requestIDHeader, id)
			return next(c)
		}
	}
}

// allowOrigins is the CORS policy for adapters without one of their own.
// Requests without an Origin header pass through untouched, preflights from
// allowed origins are answered directly.
func allowOrigins(origins []string) fastpress.MiddlewareFunc {
	wildcard := slices.Contains(origins, "*")
	methods := strings.Join(corsMethods, ",")
	headers := strings.Join(corsHeaders, ",")

	return func(next fastpress.HandlerFunc) fastpress.HandlerFunc {
		return func(c fastpress.RequestContext) error {
			origin := c.Request().Header("Origin")
			if origin == "" {
				return next(c)
			}
			allowed := wildcard || slices.Contains(origins, origin)
			res := c.Response()
			res.SetHeader("Vary", "Origin")
			if allowed {
				res.SetHeader("Access-Control-Allow-Origin", origin)
				if !wildcard {
					res.SetHeader("Access-Control-Allow-Credentials", "true")
				}
			}

			if c.Method() != http.MethodOptions {
				return next(c)
			}
			if !allowed {
				return res.NoContent(http.StatusNoContent)
			}
			res.SetHeader("Access-Control-Allow-Methods", methods)
			res.SetHeader("Access-Control-Allow-Headers", headers)
			return res.NoContent(http.StatusNoContent)
		}
	}
}
