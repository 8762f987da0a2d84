package fastpress

import "sort"

// Source selects where a handler argument comes from.
type Source int

const (
	SourceParam Source = iota
	SourceQuery
	SourceBody
	SourceUser
	SourceRequest
	SourceResponse
)

func (s Source) String() string {
	switch s {
	case SourceParam:
		return "param"
	case SourceQuery:
		return "query"
	case SourceBody:
		return "body"
	case SourceUser:
		return "user"
	case SourceRequest:
		return "request"
	case SourceResponse:
		return "response"
	default:
		return "unknown"
	}
}

// ParamDescriptor describes one positional handler argument.
type ParamDescriptor struct {
	Index      int
	Source     Source
	Key        string
	IsOptional bool
	Pipes      []*Ref[Pipe]

	indexed bool
}

func newDescriptor(source Source, key string, pipes []Pipe) *ParamDescriptor {
	return &ParamDescriptor{Source: source, Key: key, Pipes: instances(pipes)}
}

// Param injects a route parameter, or all of them when key is empty.
func Param(key string, pipes ...Pipe) *ParamDescriptor {
	return newDescriptor(SourceParam, key, pipes)
}

// Query injects a query value, or all of them when key is empty.
func Query(key string, pipes ...Pipe) *ParamDescriptor {
	return newDescriptor(SourceQuery, key, pipes)
}

// Body injects a field of the decoded JSON body, or the whole body when key is empty.
func Body(key string, pipes ...Pipe) *ParamDescriptor {
	return newDescriptor(SourceBody, key, pipes)
}

// User injects the authenticated principal.
func User(pipes ...Pipe) *ParamDescriptor {
	return newDescriptor(SourceUser, "", pipes)
}

// Req injects the raw request handle.
func Req() *ParamDescriptor {
	return newDescriptor(SourceRequest, "", nil)
}

// Res injects the raw response handle.
func Res() *ParamDescriptor {
	return newDescriptor(SourceResponse, "", nil)
}

// At pins the argument position. Without it the descriptor takes the next free
// position after those already declared on the route.
func (d *ParamDescriptor) At(index int) *ParamDescriptor {
	d.Index = index
	d.indexed = true
	return d
}

// Optional makes an absent value resolve to nil without running the pipes.
func (d *ParamDescriptor) Optional() *ParamDescriptor {
	d.IsOptional = true
	return d
}

// Pipe appends transforms after those given to the constructor.
func (d *ParamDescriptor) Pipe(pipes ...Pipe) *ParamDescriptor {
	d.Pipes = append(d.Pipes, instances(pipes)...)
	return d
}

// PipeRef appends transforms given as refs, typically lazily built ones.
func (d *ParamDescriptor) PipeRef(refs ...*Ref[Pipe]) *ParamDescriptor {
	d.Pipes = append(d.Pipes, refs...)
	return d
}

func (d *ParamDescriptor) applyRoute(r *Route) {
	desc := *d
	if !desc.indexed {
		desc.Index = 0
		for _, p := range r.Params {
			if p.Index >= desc.Index {
				desc.Index = p.Index + 1
			}
		}
	}
	r.Params = append(r.Params, desc)
	sort.SliceStable(r.Params, func(i, j int) bool {
		return r.Params[i].Index < r.Params[j].Index
	})
}

// RouteOption configures a route at registration.
type RouteOption interface {
	applyRoute(r *Route)
}

type routeOptionFunc func(r *Route)

func (f routeOptionFunc) applyRoute(r *Route) { f(r) }

// WithGuards appends guards evaluated in the given order.
func WithGuards(guards ...Guard) RouteOption {
	return WithGuardRefs(instances(guards)...)
}

func WithGuardRefs(refs ...*Ref[Guard]) RouteOption {
	return routeOptionFunc(func(r *Route) {
		r.Guards = append(r.Guards, refs...)
	})
}

// WithHooks appends hooks run in the given order.
func WithHooks(hooks ...Hook) RouteOption {
	return WithHookRefs(instances(hooks)...)
}

func WithHookRefs(refs ...*Ref[Hook]) RouteOption {
	return routeOptionFunc(func(r *Route) {
		r.Hooks = append(r.Hooks, refs...)
	})
}
