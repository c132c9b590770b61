package morph

import (
	"context"
	"fmt"
	"reflect"
)

// Dispatcher runs metadata handlers. For every annotation declared at the
// position whose type carries a Declaration, it obtains the handler and folds
// it over the value once per collected annotation instance.
type Dispatcher struct{}

// Priority runs metadata handlers after the structural transformers.
func (Dispatcher) Priority() int { return PriorityMetadata }

// Supports reports whether value is non-null.
func (Dispatcher) Supports(value any, _ *Type) bool {
	return !isNull(value)
}

// Transform folds every declared handler over value and returns the result.
func (Dispatcher) Transform(ctx context.Context, e *Engine, value any, t *Type) (any, error) {
	if len(t.tags) == 0 {
		return value, nil
	}

	seen := make(map[reflect.Type]bool, len(t.tags))
	for _, tag := range t.tags {
		on := reflect.TypeOf(tag)
		if seen[on] {
			continue
		}
		seen[on] = true

		d, ok := e.schema.Lookup(on)
		if !ok {
			continue
		}
		h, err := e.handler(ctx, d)
		if err != nil {
			return nil, err
		}
		for _, a := range e.collect(value, t, d) {
			out, err := h.Handle(ctx, value, a)
			if err != nil {
				return nil, &HandlerError{Annotation: a, Handler: d.Handler, Cause: err}
			}
			value = out
		}
	}
	return value, nil
}

// handler obtains a handler instance through the instance registry.
// Singleton handler types yield the same instance every time.
func (e *Engine) handler(ctx context.Context, d Declaration) (Handler, error) {
	v, err := e.instances.Create(d.Handler)
	if err != nil {
		return nil, err
	}
	h, ok := v.(Handler)
	if !ok {
		return nil, fmt.Errorf("%w: %s produced %T", ErrInvalidDeclaration, d.Handler, v)
	}
	emitHandlerResolved(ctx, d.Handler, d.Annotation)
	return h, nil
}

// collect gathers annotation instances of d.Annotation in location order,
// position before the value's type within each location, without duplicates.
func (e *Engine) collect(value any, t *Type, d Declaration) []any {
	var (
		out     []any
		class   []any
		classOK bool
	)
	typeAnnotations := func() []any {
		if !classOK {
			class, classOK = e.schema.TypeAnnotations(value), true
		}
		return class
	}

	for _, loc := range d.Locations {
		switch loc {
		case DirectlyPresent:
			if a, ok := t.Tag(d.Annotation); ok {
				out = append(out, a)
			}
		case IndirectlyPresent:
			out = append(out, t.TagsByType(d.Annotation)...)
		case Present:
			if a, ok := t.Tag(d.Annotation); ok {
				out = append(out, a)
			}
			for _, a := range typeAnnotations() {
				if reflect.TypeOf(a) == d.Annotation {
					out = append(out, a)
					break
				}
			}
		case Associated:
			out = append(out, t.TagsByType(d.Annotation)...)
			out = append(out, byType(typeAnnotations(), d.Annotation)...)
		}
	}
	return distinct(out)
}

// distinct removes later duplicates, keeping encounter order.
func distinct(in []any) []any {
	out := in[:0:0]
outer:
	for _, a := range in {
		for _, b := range out {
			if reflect.DeepEqual(a, b) {
				continue outer
			}
		}
		out = append(out, a)
	}
	return out
}
