package fastpress

// Pipe transforms or validates one resolved parameter. A validation failure
// is reported by returning a *StandardResponse, usually with status 400.
type Pipe interface {
	Transform(value any, ctx *Context) (any, error)
}

// PipeFunc adapts a function to Pipe.
type PipeFunc func(value any, ctx *Context) (any, error)

func (f PipeFunc) Transform(value any, ctx *Context) (any, error) {
	return f(value, ctx)
}
