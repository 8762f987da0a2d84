package auth

import (
	"errors"
	"time"

	"github.com/toyz/fastpress/pkg/fastpress"
	"github.com/toyz/fastpress/pkg/fastpress/cache"
	"github.com/toyz/fastpress/pkg/fastpress/guards"
	"github.com/toyz/fastpress/pkg/fastpress/middleware"
	"github.com/toyz/fastpress/pkg/fastpress/pipes"
)

// Cookie names.
const (
	AccessCookie  = middleware.AccessCookie
	RefreshCookie = "rjwt"
	SessionCookie = "session"
)

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type SignupInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required,min=2"`
}

type userPayload struct {
	User *fastpress.Principal `json:"user"`
}

// Module wires the auth service to its controllers.
type Module struct {
	app     *fastpress.AppContext
	service *Service
	auth    *middleware.Auth
}

// New builds the module over store using the application's token issuer.
func New(app *fastpress.AppContext, store Store) *Module {
	svc := NewService(store, app.Tokens)
	return &Module{
		app:     app,
		service: svc,
		auth:    middleware.NewAuth(app, svc),
	}
}

func (m *Module) Service() *Service { return m.service }

// Middleware returns the auth middleware backed by this module's users, for
// protecting other controllers.
func (m *Module) Middleware() *middleware.Auth { return m.auth }

// Controllers returns /auth and the authenticated /auth/me controller.
func (m *Module) Controllers() []*fastpress.Controller {
	return []*fastpress.Controller{m.authController(), m.meController()}
}

func (m *Module) authController() *fastpress.Controller {
	return fastpress.NewController("/auth", "AuthController").
		Post("/login", "login", m.login, fastpress.Body("", pipes.Validate[LoginInput]())).
		Post("/signup", "signup", m.signup, fastpress.Body("", pipes.Validate[SignupInput]())).
		Get("/refresh", "refresh", m.refresh).
		Post("/logout", "logout", m.logout)
}

func (m *Module) meController() *fastpress.Controller {
	return fastpress.NewController("/auth/me", "MeController").
		Use(m.auth).
		Get("/", "me", func(ctx *fastpress.Context, args fastpress.Args) (any, error) {
			return fastpress.OK("Authenticated", userPayload{User: ctx.User()}), nil
		}, fastpress.WithGuards(guards.Authenticated()))
}

func (m *Module) login(ctx *fastpress.Context, args fastpress.Args) (any, error) {
	in := fastpress.Arg[LoginInput](args, 0)
	sessionID, hasSession := ctx.Cookie(SessionCookie)

	user, err := m.service.Login(ctx.Context(), in.Email, in.Password)
	if err != nil {
		ctx.Logger().Error("Login failed", "email", in.Email, "error", err)
		return fastpress.Unauthorized("Invalid email or password"), nil
	}
	sess, err := m.issue(ctx, user.ID, sessionID)
	if err != nil {
		ctx.Logger().Error("Login failed", "email", in.Email, "error", err)
		return fastpress.Unauthorized("Invalid email or password"), nil
	}
	if !hasSession || sess.ID != sessionID {
		ctx.SetCookie(m.cookie(SessionCookie, sess.ID, m.service.tokens.RefreshTTL()))
	}
	return fastpress.OK("Login successful", userPayload{User: user.Principal()}), nil
}

func (m *Module) signup(ctx *fastpress.Context, args fastpress.Args) (any, error) {
	in := fastpress.Arg[SignupInput](args, 0)

	user, err := m.service.Signup(ctx.Context(), in.Email, in.Password, in.Name)
	if err != nil {
		ctx.Logger().Error("Signup failed", "email", in.Email, "error", err)
		if errors.Is(err, ErrEmailInUse) {
			return fastpress.BadRequest("Email already in use"), nil
		}
		return fastpress.BadRequest("Signup failed"), nil
	}
	sess, err := m.issue(ctx, user.ID, "")
	if err != nil {
		return nil, err
	}
	ctx.SetCookie(m.cookie(SessionCookie, sess.ID, m.service.tokens.RefreshTTL()))
	return fastpress.Created("Signup successful", userPayload{User: user.Principal()}), nil
}

func (m *Module) refresh(ctx *fastpress.Context, _ fastpress.Args) (any, error) {
	token, ok := ctx.Cookie(RefreshCookie)
	if !ok {
		return fastpress.Unauthorized("No refresh token provided"), nil
	}
	user, err := m.service.ValidateRefreshToken(ctx.Context(), token)
	if err != nil {
		ctx.Logger().Error("Refresh failed", "error", err)
		return fastpress.Unauthorized("Invalid refresh token"), nil
	}
	access, err := m.service.GenerateAccessToken(ctx.Context(), user.ID)
	if err != nil {
		ctx.Logger().Error("Refresh failed", "error", err)
		return fastpress.Unauthorized("Invalid refresh token"), nil
	}
	ctx.SetCookie(m.cookie(AccessCookie, access.Value, access.TTL))
	return fastpress.OK("Token refreshed", userPayload{User: user.Principal()}), nil
}

func (m *Module) logout(ctx *fastpress.Context, _ fastpress.Args) (any, error) {
	if token, ok := ctx.Cookie(RefreshCookie); ok {
		if err := m.service.Logout(ctx.Context(), token); err != nil {
			return nil, err
		}
		if claims, err := m.service.tokens.Verify(token); err == nil && m.app.Cache != nil {
			if err := m.app.Cache.Delete(ctx.Context(), cache.UserKey(claims.UserID)); err != nil {
				ctx.Logger().Warn("User cache delete failed", "error", err)
			}
		}
	}
	for _, name := range []string{AccessCookie, RefreshCookie, SessionCookie} {
		c := m.cookie(name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		ctx.SetCookie(c)
	}
	return fastpress.OK("Logout successful"), nil
}

// issue sets the access and refresh cookies and returns the refresh session.
func (m *Module) issue(ctx *fastpress.Context, userID, sessionID string) (*Session, error) {
	access, err := m.service.GenerateAccessToken(ctx.Context(), userID)
	if err != nil {
		return nil, err
	}
	refresh, sess, err := m.service.GenerateRefreshToken(ctx.Context(), userID, sessionID)
	if err != nil {
		return nil, err
	}
	ctx.SetCookie(m.cookie(AccessCookie, access.Value, access.TTL))
	ctx.SetCookie(m.cookie(RefreshCookie, refresh.Value, refresh.TTL))
	return sess, nil
}

func (m *Module) cookie(name, value string, ttl time.Duration) fastpress.Cookie {
	return fastpress.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.app.Config != nil && m.app.Config.IsProduction(),
		SameSite: fastpress.SameSiteStrictMode,
	}
}
