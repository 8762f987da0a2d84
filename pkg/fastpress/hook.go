package fastpress

// Hook intercepts a route around its handler.
//
// Before runs after parameters are resolved; a non-nil response is sent
// immediately and the handler is skipped. After receives the current result;
// a non-nil return replaces it and is what the next hook's After receives.
type Hook interface {
	Before(ctx *Context) (*StandardResponse, error)
	After(ctx *Context, result any) (any, error)
}

// HookFuncs builds a Hook from optional functions.
type HookFuncs struct {
	BeforeFunc func(ctx *Context) (*StandardResponse, error)
	AfterFunc  func(ctx *Context, result any) (any, error)
}

func (h HookFuncs) Before(ctx *Context) (*StandardResponse, error) {
	if h.BeforeFunc == nil {
		return nil, nil
	}
	return h.BeforeFunc(ctx)
}

func (h HookFuncs) After(ctx *Context, result any) (any, error) {
	if h.AfterFunc == nil {
		return nil, nil
	}
	return h.AfterFunc(ctx, result)
}
