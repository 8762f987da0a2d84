// Package guards holds reusable route guards.
package guards

import (
	"net/http"

	"github.com/toyz/fastpress/pkg/fastpress"
)

// Authenticated allows requests that carry a principal, set by the auth
// middleware. Others get 401 "Unauthorized".
func Authenticated() fastpress.Guard {
	return fastpress.GuardFunc(func(ctx *fastpress.Context) (fastpress.GuardResult, error) {
		if ctx.User() == nil {
			return fastpress.Deny(http.StatusUnauthorized, "Unauthorized"), nil
		}
		return fastpress.Allow(), nil
	})
}

// Owner allows a request when the principal's id equals the named route
// parameter, e.g. /users/:id for the user's own record.
func Owner(param string) fastpress.Guard {
	return fastpress.GuardFunc(func(ctx *fastpress.Context) (fastpress.GuardResult, error) {
		user := ctx.User()
		if user == nil {
			return fastpress.Deny(http.StatusUnauthorized, "Unauthorized"), nil
		}
		if id, ok := ctx.Param(param); !ok || id != user.ID {
			return fastpress.Deny(http.StatusForbidden, "Forbidden"), nil
		}
		return fastpress.Allow(), nil
	})
}

// Header allows requests whose header equals value. A missing or different
// header is a 403.
func Header(name, value string) fastpress.Guard {
	return fastpress.BoolGuard(func(ctx *fastpress.Context) bool {
		return ctx.Request().Header(name) == value
	})
}
