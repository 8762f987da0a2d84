package fastpress

// Middleware runs at controller level ahead of every route's guards. It must
// either call ctx.Next or write a response itself; returning a
// *StandardResponse sends it and stops the chain.
type Middleware interface {
	Handle(ctx *Context) error
}

// MiddlewareHandler adapts a function to Middleware.
type MiddlewareHandler func(ctx *Context) error

func (f MiddlewareHandler) Handle(ctx *Context) error {
	return f(ctx)
}
