// Package middleware holds the built-in controller middleware.
package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/toyz/fastpress/pkg/fastpress"
	"github.com/toyz/fastpress/pkg/fastpress/cache"
	"github.com/toyz/fastpress/pkg/fastpress/logging"
	"github.com/toyz/fastpress/pkg/fastpress/security"
)

// AccessCookie is the cookie holding the access token.
const AccessCookie = "jwt"

// DefaultUserTTL is how long a loaded user stays cached.
const DefaultUserTTL = time.Hour

// UserLoader loads the principal for a verified token.
type UserLoader interface {
	FindUserByID(ctx context.Context, id string) (*fastpress.Principal, error)
}

// Auth authenticates requests from the access token cookie and exposes the
// user through ctx.User.
type Auth struct {
	tokens *security.Tokens
	users  UserLoader
	cache  cache.Cache
	ttl    time.Duration
	log    logging.Logger
}

// NewAuth builds the middleware from the application context. The cache is
// optional; without one every request loads the user.
func NewAuth(app *fastpress.AppContext, users UserLoader) *Auth {
	ttl := DefaultUserTTL
	if app.Config != nil && app.Config.Redis.UserTTL > 0 {
		ttl = app.Config.Redis.UserTTL
	}
	return &Auth{
		tokens: app.Tokens,
		users:  users,
		cache:  app.Cache,
		ttl:    ttl,
		log:    app.Log(),
	}
}

func (a *Auth) Handle(ctx *fastpress.Context) error {
	token, ok := ctx.Cookie(AccessCookie)
	if !ok {
		return fastpress.Unauthorized("No token provided")
	}

	claims, err := a.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return fastpress.Unauthorized("Token Expired")
		}
		return fastpress.Unauthorized("Unauthorized")
	}

	user, err := a.loadUser(ctx.Context(), claims.UserID)
	if err != nil || user == nil {
		a.log.Debug("Rejected token for unknown user", "user_id", claims.UserID, "error", err)
		return fastpress.Unauthorized("Unauthorized")
	}

	ctx.SetUser(user)
	return ctx.Next()
}

// loadUser reads the user from the cache, falling back to the loader and
// filling the cache on a miss. Cache failures count as misses.
func (a *Auth) loadUser(ctx context.Context, id string) (*fastpress.Principal, error) {
	key := cache.UserKey(id)
	if a.cache != nil {
		cached, hit, err := cache.GetJSON[fastpress.Principal](ctx, a.cache, key)
		if err != nil {
			a.log.Warn("User cache read failed", "key", key, "error", err)
		}
		if hit {
			return &cached, nil
		}
	}

	user, err := a.users.FindUserByID(ctx, id)
	if err != nil || user == nil {
		return nil, err
	}

	if a.cache != nil {
		if err := cache.SetJSON(ctx, a.cache, key, user, a.ttl); err != nil {
			a.log.Warn("User cache write failed", "key", key, "error", err)
		}
	}
	return user, nil
}
