// Package app assembles a runnable FastPress server: configuration, logger,
// database, cache, the host adapter and every controller.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/toyz/fastpress/pkg/fastpress"
	"github.com/toyz/fastpress/pkg/fastpress/cache"
	"github.com/toyz/fastpress/pkg/fastpress/config"
	"github.com/toyz/fastpress/pkg/fastpress/logging"
	"github.com/toyz/fastpress/pkg/fastpress/modules/auth"
	"github.com/toyz/fastpress/pkg/fastpress/security"
)

const connectTimeout = 10 * time.Second

// ControllerFactory builds a controller once the AppContext exists. The
// discovery generator emits a list of these.
type ControllerFactory func(*fastpress.AppContext) *fastpress.Controller

type options struct {
	logger      logging.Logger
	server      fastpress.WebServerInterface
	db          *sqlx.DB
	cache       cache.Cache
	authStore   auth.Store
	withoutAuth bool
	controllers []ControllerFactory
	banner      io.Writer
}

// Option customizes New.
type Option func(*options)

// WithLogger replaces the default zerolog logger.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithServer injects the host adapter instead of building the configured one.
func WithServer(s fastpress.WebServerInterface) Option {
	return func(o *options) { o.server = s }
}

// WithDB uses an already opened database instead of database.dsn.
func WithDB(db *sqlx.DB) Option {
	return func(o *options) { o.db = db }
}

// WithCache uses c instead of connecting to Redis.
func WithCache(c cache.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithAuthStore backs the auth module with s instead of the SQL store.
func WithAuthStore(s auth.Store) Option {
	return func(o *options) { o.authStore = s }
}

// WithoutAuth skips mounting the built-in /auth controllers.
func WithoutAuth() Option {
	return func(o *options) { o.withoutAuth = true }
}

// WithControllers appends controllers, mounted in the order given.
func WithControllers(factories ...ControllerFactory) Option {
	return func(o *options) { o.controllers = append(o.controllers, factories...) }
}

// WithBannerOutput redirects the configuration banner. A nil writer disables it.
func WithBannerOutput(w io.Writer) Option {
	return func(o *options) { o.banner = w }
}

// App is a configured server ready to Start.
type App struct {
	cfg    *config.Config
	ctx    *fastpress.AppContext
	server fastpress.WebServerInterface
	auth   *auth.Module

	closeOnce sync.Once
	closeErr  error
}

// New wires the application described by cfg.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	o := &options{banner: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	log := o.logger
	if log == nil {
		log = logging.New(cfg.Server.Env, cfg.Log.Level)
	}
	if cfg.GeneratedSecret {
		log.Warn("No JWT secret configured, using a random secret for this process")
	}

	tokens, err := security.NewTokens(cfg.JWT.Secret, cfg.JWT.Algorithm, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	db := o.db
	if db == nil && cfg.Database.DSN != "" {
		if db, err = openDB(cfg.Database); err != nil {
			return nil, err
		}
		log.Info("Connected to database", "driver", cfg.Database.Driver)
	}

	c := o.cache
	if c == nil {
		c = cache.Connect(context.Background(), cfg.Redis, log)
	}

	a := &App{
		cfg: cfg,
		ctx: &fastpress.AppContext{
			Config: cfg,
			Logger: log,
			DB:     db,
			Cache:  c,
			Tokens: tokens,
			Routes: fastpress.NewRouteRegistry(),
		},
	}

	a.server = o.server
	if a.server == nil {
		if a.server, err = newServer(cfg, log); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	if err := a.mount(o); err != nil {
		_ = a.Close()
		return nil, err
	}

	if o.banner != nil {
		printBanner(o.banner, cfg, a.server.Name())
	}
	return a, nil
}

func openDB(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("app: connecting to database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

func (a *App) mount(o *options) error {
	var controllers []*fastpress.Controller

	if !o.withoutAuth {
		store := o.authStore
		if store == nil && a.ctx.DB != nil {
			store = auth.NewSQLStore(a.ctx.DB)
		}
		if store != nil {
			a.auth = auth.New(a.ctx, store)
			controllers = append(controllers, a.auth.Controllers()...)
		} else {
			a.ctx.Log().Warn("No database configured, auth module disabled")
		}
	}

	for _, factory := range o.controllers {
		controllers = append(controllers, factory(a.ctx))
	}

	for _, c := range controllers {
		if c == nil {
			continue
		}
		if err := fastpress.Bind(a.server, a.ctx, c); err != nil {
			return fmt.Errorf("app: %w", err)
		}
		a.ctx.Log().Debug("Controller mounted", "controller", c.Name(), "prefix", c.Prefix())
	}
	return nil
}

func printBanner(w io.Writer, cfg *config.Config, adapter string) {
	title := color.New(color.FgCyan, color.Bold)
	line := "============================================================"
	_, _ = title.Fprintln(w, "\n================== FastPress Configuration =================")
	_, _ = fmt.Fprintf(w, "PORT: %d\n", cfg.Server.Port)
	_, _ = fmt.Fprintf(w, "ENV: %s\n", cfg.Server.Env)
	_, _ = fmt.Fprintf(w, "ADAPTER: %s\n", adapter)
	_, _ = title.Fprintln(w, line)
}

// Context returns the application context shared by every controller.
func (a *App) Context() *fastpress.AppContext { return a.ctx }

// Server returns the host adapter.
func (a *App) Server() fastpress.WebServerInterface { return a.server }

// Auth returns the mounted auth module, or nil when it is disabled.
func (a *App) Auth() *auth.Module { return a.auth }

// Start serves on the configured port until ctx is done or the process gets
// SIGINT or SIGTERM, then shuts down gracefully and releases the database and
// cache.
func (a *App) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := a.ctx.Log()
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start(a.cfg.Addr())
	}()
	log.Info("Server is running", "port", a.cfg.Server.Port, "adapter", a.server.Name())

	select {
	case err := <-errCh:
		closeErr := a.Close()
		if err != nil {
			return errors.Join(fmt.Errorf("app: server stopped: %w", err), closeErr)
		}
		return closeErr
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	stopErr := a.server.Stop(shutdownCtx)
	select {
	case err := <-errCh:
		stopErr = errors.Join(stopErr, err)
	case <-shutdownCtx.Done():
		stopErr = errors.Join(stopErr, shutdownCtx.Err())
	}
	if stopErr != nil {
		stopErr = fmt.Errorf("app: shutdown: %w", stopErr)
	}

	err := errors.Join(stopErr, a.Close())
	if err == nil {
		log.Info("Server shutdown complete")
	}
	return err
}

// Close releases the database and cache. It is safe to call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		var errs []error
		if a.ctx.DB != nil {
			errs = append(errs, a.ctx.DB.Close())
		}
		if a.ctx.Cache != nil {
			errs = append(errs, a.ctx.Cache.Close())
		}
		a.closeErr = errors.Join(errs...)
	})
	return a.closeErr
}
