package fastpress

import "sync"

type refKind int

const (
	refInstance refKind = iota
	refFactory
)

// Ref holds a pipe, guard, hook or middleware either as a ready instance or
// as a factory. A factory runs at most once, on first use, and its result is
// reused for every later request.
type Ref[T any] struct {
	kind     refKind
	instance T
	factory  func() T
	once     sync.Once
}

// Instance wraps an already constructed value.
func Instance[T any](v T) *Ref[T] {
	return &Ref[T]{kind: refInstance, instance: v}
}

// Factory defers construction until the value is first needed.
func Factory[T any](fn func() T) *Ref[T] {
	return &Ref[T]{kind: refFactory, factory: fn}
}

// Get returns the wrapped value, running the factory if needed.
func (r *Ref[T]) Get() T {
	if r.kind == refFactory {
		r.once.Do(func() {
			r.instance = r.factory()
		})
	}
	return r.instance
}

// IsFactory reports whether the value is built lazily.
func (r *Ref[T]) IsFactory() bool {
	return r.kind == refFactory
}

func instances[T any](values []T) []*Ref[T] {
	refs := make([]*Ref[T], len(values))
	for i, v := range values {
		refs[i] = Instance(v)
	}
	return refs
}
