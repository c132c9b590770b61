package morph

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"time"

	"github.com/zoobzio/morph/instance"
)

// Engine folds registered transformers over values.
// Engines are safe for concurrent use.
type Engine struct {
	registry    *Registry
	schema      *Schema
	instances   *instance.Registry
	parallelism int
	threshold   int
	maxDepth    int
	defaults    bool

	plans sync.Map // reflect.Type -> *planCell
}

// Option configures an Engine.
type Option func(*Engine)

// WithSchema sets the metadata schema. The default is DefaultSchema().
func WithSchema(s *Schema) Option {
	return func(e *Engine) {
		if s != nil {
			e.schema = s
		}
	}
}

// WithInstances sets the instance registry. The default is instance.Default().
func WithInstances(r *instance.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.instances = r
		}
	}
}

// WithParallelism bounds the goroutines used per fan-out. Values of one or
// less walk elements and fields sequentially.
func WithParallelism(n int) Option {
	return func(e *Engine) { e.parallelism = n }
}

// WithParallelThreshold sets the element count below which a fan-out runs
// sequentially.
func WithParallelThreshold(n int) Option {
	return func(e *Engine) { e.threshold = n }
}

// WithMaxDepth bounds the nesting of Transform calls.
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// WithoutDefaults starts the engine with an empty transformer registry.
func WithoutDefaults() Option {
	return func(e *Engine) { e.defaults = false }
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		parallelism: runtime.GOMAXPROCS(0),
		threshold:   64,
		maxDepth:    1024,
		defaults:    true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.schema == nil {
		e.schema = DefaultSchema()
	}
	if e.instances == nil {
		e.instances = instance.Default()
	}
	if e.defaults {
		e.registry = NewRegistry(Builtins()...)
	} else {
		e.registry = NewRegistry()
	}
	return e
}

// Transformers returns the engine's transformer registry.
func (e *Engine) Transformers() *Registry { return e.registry }

// Schema returns the engine's metadata schema.
func (e *Engine) Schema() *Schema { return e.schema }

// Instances returns the engine's instance registry.
func (e *Engine) Instances() *instance.Registry { return e.instances }

// Transform rewrites value at position t by folding, in ascending priority
// order, every registered transformer that supports it. Support is decided
// once, before the fold begins.
func (e *Engine) Transform(ctx context.Context, value any, t *Type) (any, error) {
	if t == nil {
		return nil, ErrNilType
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parent := frameOf(ctx)
	depth := 1
	if parent != nil {
		depth = parent.depth + 1
	}
	if depth > e.maxDepth {
		return nil, fmt.Errorf("%w: %d at %s", ErrDepthExceeded, e.maxDepth, t)
	}
	ctx = context.WithValue(ctx, frameKey{}, &frame{parent: parent, depth: depth})

	if parent != nil {
		out, _, err := e.fold(ctx, value, t)
		return out, err
	}

	start := time.Now()
	emitTransformStart(ctx, t)
	out, applied, err := e.fold(ctx, value, t)
	emitTransformComplete(ctx, t, applied, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// fold applies the supporting transformers left to right.
func (e *Engine) fold(ctx context.Context, value any, t *Type) (any, int, error) {
	entries := e.registry.snapshot()
	selected := make([]Transformer, 0, len(entries))
	for _, en := range entries {
		if en.transformer.Supports(value, t) {
			selected = append(selected, en.transformer)
		}
	}

	for _, tr := range selected {
		out, err := tr.Transform(ctx, e, value, t)
		if err != nil {
			return nil, 0, err
		}
		value = out
	}
	return value, len(selected), nil
}

// TransformWith is Engine.Transform for a statically typed value.
// A nil result yields the zero value of T.
func TransformWith[T any](ctx context.Context, e *Engine, value T, t *Type) (T, error) {
	var zero T
	out, err := e.Transform(ctx, value, t)
	if err != nil {
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	v, ok := out.(T)
	if !ok {
		return zero, mismatch(reflect.TypeFor[T]().String(), out)
	}
	return v, nil
}

// frame is one level of the current transform path.
type frame struct {
	parent *frame
	depth  int
	ptr    uintptr
	typ    reflect.Type
}

type frameKey struct{}

func frameOf(ctx context.Context) *frame {
	f, _ := ctx.Value(frameKey{}).(*frame)
	return f
}

// enter records that the pointer p is being descended into, failing when it
// is already on the current path.
func enter(ctx context.Context, p reflect.Value) (context.Context, error) {
	ptr, typ := p.Pointer(), p.Type()
	parent := frameOf(ctx)
	for f := parent; f != nil; f = f.parent {
		if f.ptr == ptr && f.typ == typ {
			return nil, fmt.Errorf("%w: %s", ErrCycle, typ)
		}
	}
	depth := 0
	if parent != nil {
		depth = parent.depth
	}
	return context.WithValue(ctx, frameKey{}, &frame{parent: parent, depth: depth, ptr: ptr, typ: typ}), nil
}

// isNull reports whether v is nil or a nil reference.
func isNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}

// assignable converts a transform result into a value of type t.
func assignable(v any, t reflect.Type, owner reflect.Type, member string) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, newReflectionError(owner, member, "assign", mismatch(t.String(), v))
	}
	return rv, nil
}
