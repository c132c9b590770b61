// Package morph rewrites values according to rules attached to positions in a
// description of their type.
//
// A Type describes one occurrence of a type: its Go type, the annotations
// declared at that position and, for collections, maps, arrays, type variables
// and wildcards, the positions nested inside it. The Engine walks a value
// alongside its Type and folds every applicable Transformer over it in
// ascending priority order.
//
// # Transformers
//
// The default registry holds, in order:
//
//   - type variable expansion (First)
//   - wildcard expansion
//   - collections ([]T with one element position)
//   - maps (map[K]V with key and value positions)
//   - arrays ([N]T or []T under an ArrayOf position)
//   - metadata dispatch (Last - 1)
//   - cascade (Last)
//
// Two transformers never share a priority: registering a second one at a taken
// priority is silently ignored.
//
// # Metadata
//
// Annotations are ordinary Go values. A Schema declares which Handler
// processes each annotation type and which instances it receives:
//
//	type Erase struct{}
//
//	type eraseHandler struct{ instance.Singleton }
//
//	func (eraseHandler) Handle(_ context.Context, v any, _ any) (any, error) {
//	    return strings.Repeat("*", len(v.(string))), nil
//	}
//
//	morph.DeclareTag[Erase, eraseHandler](schema)
//	out, _ := engine.Transform(ctx, "123456", morph.TypeOf[string](Erase{}))
//
// # Tag Syntax
//
// Struct fields are annotated through tags resolved by names registered on the
// schema:
//
//	type User struct {
//	    Name     string            `morph:"redact"`
//	    Email    string            `morph:"mask(email)"`
//	    Password string            `morph:"hash(argon2)"`
//	    Aliases  []string          `morph.elem:"redact(?)"`
//	    Labels   map[string]string `morph.key:"mask(name)" morph.elem:"redact"`
//	    Manager  *User             `morph:"cascade"`
//	}
//
//	out, err := morph.TransformAs(ctx, user, morph.TypeOf[User](morph.Cascade{}))
//
// Fields are only descended into under a Cascade annotation.
package morph

import (
	"context"
	"reflect"
	"sync"

	"github.com/zoobzio/morph/instance"
)

// Handler processes one annotation instance against a value.
// Implementations are created through the instance registry: embed
// instance.Singleton to share one instance for the life of the process.
type Handler interface {
	Handle(ctx context.Context, value any, annotation any) (any, error)
}

// HandlerFunc adapts a typed function into a Handler. A value or annotation of
// another type fails with ErrTypeMismatch.
type HandlerFunc[V any, A any] func(ctx context.Context, value V, annotation A) (V, error)

// Handle implements Handler.
func (f HandlerFunc[V, A]) Handle(ctx context.Context, value any, annotation any) (any, error) {
	v, ok := value.(V)
	if !ok {
		return nil, mismatch(reflect.TypeFor[V]().String(), value)
	}
	a, ok := annotation.(A)
	if !ok {
		return nil, mismatch(reflect.TypeFor[A]().String(), annotation)
	}
	return f(ctx, v, a)
}

// Repeated is a container of repeatable annotations. Its contents are
// indirectly present wherever the container is declared.
type Repeated interface {
	Repeated() []any
}

// Annotated is implemented by types that carry annotations of their own.
// Embedding an Annotated type inherits them through method promotion.
type Annotated interface {
	Annotations() []any
}

// Enumerated marks a fixed-identity type. Cascading rewrites such values in
// place instead of manufacturing a fresh instance.
type Enumerated interface {
	Enumerated()
}

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
)

// Default returns the process-wide engine backing the package-level functions.
func Default() *Engine {
	defaultOnce.Do(func() {
		defaultEngine = New(WithSchema(DefaultSchema()), WithInstances(instance.Default()))
	})
	return defaultEngine
}

// Transform rewrites value at position t with the default engine.
func Transform(ctx context.Context, value any, t *Type) (any, error) {
	return Default().Transform(ctx, value, t)
}

// TransformAs is Transform for a statically typed value.
func TransformAs[T any](ctx context.Context, value T, t *Type) (T, error) {
	return TransformWith[T](ctx, Default(), value, t)
}

// RegisterTransformer adds t to the default engine.
// It reports false when the priority is already taken.
func RegisterTransformer(t Transformer) bool {
	return Default().Transformers().Add(t)
}

// UnregisterTransformer removes t from the default engine.
func UnregisterTransformer(t Transformer) bool {
	return Default().Transformers().Remove(t)
}

// Transformers lists the default engine's transformers in priority order.
func Transformers() []Transformer {
	return Default().Transformers().All()
}

// ReserveUnusedPriority returns a priority unused in the default engine.
func ReserveUnusedPriority() int {
	return Default().Transformers().ReserveUnusedPriority()
}

// RegisterInstanceFactory installs a factory for t in the process-wide
// instance registry, overriding any computed resolution.
func RegisterInstanceFactory(t reflect.Type, f instance.Factory) {
	Default().Instances().Register(t, f)
}

// UnregisterInstanceFactory removes the factory for t.
func UnregisterInstanceFactory(t reflect.Type) {
	Default().Instances().Unregister(t)
}

// Declare registers a declaration on the default schema.
func Declare(on reflect.Type, d Declaration) error {
	return Default().Schema().Declare(on, d)
}

// RegisterTagName registers a struct tag name on the default schema.
func RegisterTagName(name string, parse TagParser) error {
	return Default().Schema().Name(name, parse)
}

// Annotate attaches annotations to a Go type on the default schema.
func Annotate(t reflect.Type, annotations ...any) {
	Default().Schema().Annotate(t, annotations...)
}
