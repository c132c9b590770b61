// Package instance manufactures fresh values of arbitrary types.
//
// A Registry resolves a Factory for a reflect.Type, memoizes it for the life of
// the process and, for types carrying the singleton marker, wraps it so that at
// most one value is ever created. Resolution order:
//
//  1. a factory registered with Register
//  2. zero-argument construction: new(T) for pointer types, the zero value otherwise
//  3. an empty make for slice and map types
//
// Types that cannot be constructed (interfaces, funcs, channels, unsafe
// pointers) fail with ErrInstantiation. Failures are memoized as well and are
// only cleared by registering an explicit factory.
package instance

import (
	"context"
	"reflect"
	"sync"
)

// Factory creates a fresh value.
type Factory func() (any, error)

// Registry resolves and caches factories per type.
// Entries are never evicted; Register replaces them.
type Registry struct {
	factories  sync.Map // reflect.Type -> *resolution
	singletons sync.Map // reflect.Type -> *cell
	marks      sync.Map // reflect.Type -> bool

	mu      sync.RWMutex
	markers []reflect.Type
}

// resolution is a compute-once memo entry.
type resolution struct {
	once     sync.Once
	factory  Factory
	err      error
	explicit bool
}

// cell holds a singleton value.
type cell struct {
	once  sync.Once
	value any
	err   error
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

var defaultRegistry = New()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// Resolve returns the factory for t.
func (r *Registry) Resolve(t reflect.Type) (Factory, error) {
	if t == nil {
		return nil, &InstantiationError{Cause: errNilType}
	}

	if v, ok := r.factories.Load(t); ok {
		res := v.(*resolution)
		res.once.Do(func() { r.compute(t, res) })
		return res.factory, res.err
	}

	v, _ := r.factories.LoadOrStore(t, &resolution{})
	res := v.(*resolution)
	res.once.Do(func() { r.compute(t, res) })
	return res.factory, res.err
}

// Create resolves the factory for t and invokes it.
func (r *Registry) Create(t reflect.Type) (any, error) {
	f, err := r.Resolve(t)
	if err != nil {
		return nil, err
	}
	v, err := f()
	if err != nil {
		return nil, &InstantiationError{Type: t, Cause: err}
	}
	return v, nil
}

// Register installs f as the factory for t, replacing any memoized resolution.
// Registered factories are used as given; they are not singleton-wrapped.
func (r *Registry) Register(t reflect.Type, f Factory) {
	if t == nil || f == nil {
		return
	}
	res := &resolution{factory: f, explicit: true}
	res.once.Do(func() {})
	r.factories.Store(t, res)
}

// Unregister removes the factory for t. The next Resolve recomputes it.
func (r *Registry) Unregister(t reflect.Type) {
	r.factories.Delete(t)
}

// Registered reports whether an explicit factory is installed for t.
func (r *Registry) Registered(t reflect.Type) bool {
	v, ok := r.factories.Load(t)
	return ok && v.(*resolution).explicit
}

// Register installs a typed factory for T.
func Register[T any](r *Registry, f func() T) {
	r.Register(reflect.TypeFor[T](), func() (any, error) {
		return f(), nil
	})
}

// compute builds the factory for t per the resolution order.
func (r *Registry) compute(t reflect.Type, res *resolution) {
	base, err := construct(t)
	if err != nil {
		res.err = &InstantiationError{Type: t, Cause: err}
		emitInstanceFailed(context.Background(), t, res.err)
		return
	}
	if r.IsSingleton(t) {
		res.factory = r.singleton(t, base)
		return
	}
	res.factory = base
}

// construct selects a construction strategy by kind.
func construct(t reflect.Type) (Factory, error) {
	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		return func() (any, error) {
			return reflect.New(elem).Interface(), nil
		}, nil
	case reflect.Slice:
		return func() (any, error) {
			return reflect.MakeSlice(t, 0, 0).Interface(), nil
		}, nil
	case reflect.Map:
		return func() (any, error) {
			return reflect.MakeMap(t).Interface(), nil
		}, nil
	case reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Invalid:
		return nil, errNoConstructor
	default:
		return func() (any, error) {
			return reflect.New(t).Elem().Interface(), nil
		}, nil
	}
}

// singleton wraps base so the value is created at most once per type.
func (r *Registry) singleton(t reflect.Type, base Factory) Factory {
	return func() (any, error) {
		v, _ := r.singletons.LoadOrStore(t, &cell{})
		c := v.(*cell)
		c.once.Do(func() {
			c.value, c.err = base()
			if c.err == nil {
				emitSingletonCreated(context.Background(), t)
			}
		})
		return c.value, c.err
	}
}
