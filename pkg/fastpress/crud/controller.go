package crud

import (
	"errors"
	"fmt"

	"github.com/toyz/fastpress/pkg/fastpress"
	"github.com/toyz/fastpress/pkg/fastpress/pipes"
)

type controllerConfig struct {
	middleware []fastpress.Middleware
	idPipes    []fastpress.Pipe
}

type ControllerOption func(*controllerConfig)

// WithMiddleware protects every endpoint with the given middleware, usually
// the auth middleware.
func WithMiddleware(mw ...fastpress.Middleware) ControllerOption {
	return func(c *controllerConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

// WithIDPipes replaces the transforms applied to the :id parameter. The
// default parses it as an integer.
func WithIDPipes(p ...fastpress.Pipe) ControllerOption {
	return func(c *controllerConfig) {
		c.idPipes = p
	}
}

// NewController exposes svc as list, get, create, update and delete routes
// under prefix. Other controllers can Extend it and override single routes.
func NewController[T any](prefix, name string, svc *Service[T], opts ...ControllerOption) *fastpress.Controller {
	cfg := controllerConfig{idPipes: []fastpress.Pipe{pipes.ParseInt()}}
	for _, opt := range opts {
		opt(&cfg)
	}
	h := &handlers[T]{svc: svc}
	id := func() *fastpress.ParamDescriptor { return fastpress.Param("id", cfg.idPipes...) }

	return fastpress.NewController(prefix, name).
		Use(cfg.middleware...).
		Get("/", "get", h.list, fastpress.Query("skip", pipes.ParseInt()), fastpress.Query("take", pipes.ParseInt())).
		Get("/:id", "getById", h.get, id()).
		Post("/", "create", h.create, fastpress.Body("").Optional()).
		Put("/:id", "update", h.update, id(), fastpress.Body("").Optional()).
		Delete("/:id", "delete", h.remove, id())
}

type handlers[T any] struct {
	svc *Service[T]
}

func (h *handlers[T]) list(ctx *fastpress.Context, args fastpress.Args) (any, error) {
	skip, take := args.Int(0), args.Int(1)
	if skip < 0 || take < 0 {
		return fastpress.BadRequest("Validation failed: skip and take must not be negative"), nil
	}
	items, err := h.svc.FindAll(ctx.Context(), Options{Skip: skip, Take: Limit(take)})
	if err != nil {
		return nil, err
	}
	return fastpress.OK(fmt.Sprintf("Found %d items in %s table", len(items), h.svc.Table()), items), nil
}

func (h *handlers[T]) get(ctx *fastpress.Context, args fastpress.Args) (any, error) {
	item, err := h.svc.FindByID(ctx.Context(), args.Get(0))
	if errors.Is(err, ErrNotFound) {
		return fastpress.NotFound("Item not found"), nil
	}
	if err != nil {
		return nil, err
	}
	return fastpress.OK(fmt.Sprintf("Item retrieved successfully from %s table", h.svc.Table()), item), nil
}

func (h *handlers[T]) create(ctx *fastpress.Context, args fastpress.Args) (any, error) {
	data := args.Map(0)
	if len(data) == 0 {
		return fastpress.BadRequest("Item data is required to create a new " + h.svc.Table()), nil
	}
	item, err := h.svc.Create(ctx.Context(), data)
	if err != nil {
		return nil, writeError(err)
	}
	return fastpress.Created(fmt.Sprintf("Item created successfully in %s table", h.svc.Table()), item), nil
}

func (h *handlers[T]) update(ctx *fastpress.Context, args fastpress.Args) (any, error) {
	data := args.Map(1)
	if len(data) == 0 {
		return fastpress.BadRequest("Item data is required to update a " + h.svc.Table()), nil
	}
	item, err := h.svc.Update(ctx.Context(), args.Get(0), data)
	if errors.Is(err, ErrNotFound) {
		return fastpress.NotFound("Item not found"), nil
	}
	if err != nil {
		return nil, writeError(err)
	}
	return fastpress.OK(fmt.Sprintf("Item updated successfully in %s table", h.svc.Table()), item), nil
}

func (h *handlers[T]) remove(ctx *fastpress.Context, args fastpress.Args) (any, error) {
	if _, err := h.svc.FindByID(ctx.Context(), args.Get(0)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fastpress.NotFound("Item not found"), nil
		}
		return nil, err
	}
	if err := h.svc.Delete(ctx.Context(), args.Get(0)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fastpress.NotFound("Item not found"), nil
		}
		return nil, err
	}
	return fastpress.OK(fmt.Sprintf("Item deleted successfully from %s table", h.svc.Table())), nil
}

// writeError turns client mistakes in a write into a 400.
func writeError(err error) error {
	if errors.Is(err, ErrInvalidColumn) || errors.Is(err, ErrNoData) {
		return fastpress.BadRequest(err.Error())
	}
	return err
}
