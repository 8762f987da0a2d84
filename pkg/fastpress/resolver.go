package fastpress

// Args are the resolved handler arguments, indexed by position.
type Args []any

// Get returns the argument at i, or nil when i is out of range.
func (a Args) Get(i int) any {
	if i < 0 || i >= len(a) {
		return nil
	}
	return a[i]
}

// Context returns the request context when it was passed as the sole argument.
func (a Args) Context() *Context {
	if len(a) == 1 {
		if ctx, ok := a[0].(*Context); ok {
			return ctx
		}
	}
	return nil
}

func (a Args) Int(i int) int { return Arg[int](a, i) }

func (a Args) String(i int) string { return Arg[string](a, i) }

// Map returns a JSON object argument, such as a whole request body.
func (a Args) Map(i int) map[string]any { return Arg[map[string]any](a, i) }

// Arg returns the argument at i as a T, or T's zero value when it is missing
// or of another type.
func Arg[T any](a Args, i int) T {
	v, _ := a.Get(i).(T)
	return v
}

// Resolve builds the handler arguments for one request. With no descriptors the
// handler receives ctx as its only argument. Absent optional values resolve to
// nil without running their pipes; pipe errors are returned unchanged.
func Resolve(ctx *Context, descriptors []ParamDescriptor) (Args, error) {
	if len(descriptors) == 0 {
		return Args{ctx}, nil
	}

	size := 0
	for _, d := range descriptors {
		if d.Index+1 > size {
			size = d.Index + 1
		}
	}

	args := make(Args, size)
	for _, d := range descriptors {
		value, present, err := extract(ctx, d)
		if err != nil {
			return nil, err
		}
		if !present && d.IsOptional {
			args[d.Index] = nil
			continue
		}
		for _, pipe := range d.Pipes {
			value, err = pipe.Get().Transform(value, ctx)
			if err != nil {
				return nil, err
			}
		}
		args[d.Index] = value
	}
	return args, nil
}

func extract(ctx *Context, d ParamDescriptor) (any, bool, error) {
	switch d.Source {
	case SourceParam:
		if d.Key == "" {
			return ctx.Params(), true, nil
		}
		v, ok := ctx.Param(d.Key)
		if !ok {
			return nil, false, nil
		}
		return v, true, nil

	case SourceQuery:
		q := ctx.Query()
		if d.Key == "" {
			return q, true, nil
		}
		values, ok := q[d.Key]
		if !ok || len(values) == 0 {
			return nil, false, nil
		}
		return values[0], true, nil

	case SourceBody:
		body, err := ctx.Body()
		if err != nil {
			return nil, false, err
		}
		if d.Key == "" {
			return body, body != nil, nil
		}
		fields, ok := body.(map[string]any)
		if !ok {
			return nil, false, nil
		}
		v, ok := fields[d.Key]
		return v, ok, nil

	case SourceUser:
		if u := ctx.User(); u != nil {
			return u, true, nil
		}
		return nil, false, nil

	case SourceRequest:
		return ctx.Request(), true, nil

	case SourceResponse:
		return ctx.Response(), true, nil
	}
	return nil, false, nil
}
