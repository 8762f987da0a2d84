package fastpress

import (
	"github.com/jmoiron/sqlx"

	"github.com/toyz/fastpress/pkg/fastpress/cache"
	"github.com/toyz/fastpress/pkg/fastpress/config"
	"github.com/toyz/fastpress/pkg/fastpress/logging"
	"github.com/toyz/fastpress/pkg/fastpress/security"
)

// AppContext carries the process wide collaborators. It is built once at
// startup and passed explicitly to controllers, middleware and services.
type AppContext struct {
	Config *config.Config
	Logger logging.Logger
	DB     *sqlx.DB
	// Cache is nil when no cache is available.
	Cache  cache.Cache
	Tokens *security.Tokens
	Routes *RouteRegistry
}

// Log returns the configured logger, or the default one.
func (a *AppContext) Log() logging.Logger {
	if a == nil {
		return logging.Resolve(nil)
	}
	if a.Logger == nil {
		a.Logger = logging.Resolve(nil)
	}
	return a.Logger
}

// Registry returns the route registry, creating it on first use.
func (a *AppContext) Registry() *RouteRegistry {
	if a.Routes == nil {
		a.Routes = NewRouteRegistry()
	}
	return a.Routes
}
