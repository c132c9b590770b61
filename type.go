package morph

import (
	"fmt"
	"reflect"
	"strings"
)

// Shape discriminates the structural variants of a type position.
type Shape uint8

const (
	// ShapePlain is a concrete type with no structure of interest.
	ShapePlain Shape = iota
	// ShapeParameterized is a container with declared type arguments
	// (one for collections, two for maps).
	ShapeParameterized
	// ShapeArray is an array-like type with a declared component type.
	ShapeArray
	// ShapeVariable is a type variable with declared bounds.
	ShapeVariable
	// ShapeWildcard is a wildcard with upper and lower bounds.
	ShapeWildcard
)

func (s Shape) String() string {
	switch s {
	case ShapePlain:
		return "plain"
	case ShapeParameterized:
		return "parameterized"
	case ShapeArray:
		return "array"
	case ShapeVariable:
		return "variable"
	case ShapeWildcard:
		return "wildcard"
	default:
		return fmt.Sprintf("shape(%d)", s)
	}
}

// Type describes one occurrence of a type: its raw Go type, the annotations
// attached at that position and, depending on its Shape, the positions nested
// inside it. A Type is immutable once built.
type Type struct {
	shape  Shape
	raw    reflect.Type
	name   string
	tags   []any
	args   []*Type
	elem   *Type
	bounds []*Type
	lower  []*Type
}

// TypeOf describes T, annotated with tags at the outermost position.
// Slices, maps and arrays are described structurally with unannotated
// element positions; use ListOf, MapOf or ArrayOf to annotate those.
// Byte slices are described as plain values.
func TypeOf[T any](tags ...any) *Type {
	return Describe(reflect.TypeFor[T](), tags...)
}

// Describe derives a description from a reflect.Type.
func Describe(t reflect.Type, tags ...any) *Type {
	if t == nil {
		return Plain(nil, tags...)
	}
	switch t.Kind() {
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			// byte strings are scalars
			return Plain(t, tags...)
		}
		return listOf(t, Describe(t.Elem()), tags)
	case reflect.Map:
		return mapOf(t, Describe(t.Key()), Describe(t.Elem()), tags)
	case reflect.Array:
		return arrayOf(t, Describe(t.Elem()), tags)
	default:
		return Plain(t, tags...)
	}
}

// Plain describes t with no nested positions.
func Plain(t reflect.Type, tags ...any) *Type {
	return &Type{shape: ShapePlain, raw: t, tags: clone(tags)}
}

// ListOf describes a collection ([]E) whose element position is elem.
func ListOf(elem *Type, tags ...any) *Type {
	return listOf(reflect.SliceOf(rawOrAny(elem)), elem, tags)
}

// SliceOf describes a collection of the named slice type t.
func SliceOf(t reflect.Type, elem *Type, tags ...any) *Type {
	return listOf(t, elem, tags)
}

func listOf(t reflect.Type, elem *Type, tags []any) *Type {
	return &Type{shape: ShapeParameterized, raw: t, tags: clone(tags), args: []*Type{orAny(elem)}}
}

// MapOf describes a map whose key and value positions are key and value.
func MapOf(key, value *Type, tags ...any) *Type {
	k := rawOrAny(key)
	if !k.Comparable() {
		k = anyType
	}
	return mapOf(reflect.MapOf(k, rawOrAny(value)), key, value, tags)
}

func mapOf(t reflect.Type, key, value *Type, tags []any) *Type {
	return &Type{shape: ShapeParameterized, raw: t, tags: clone(tags), args: []*Type{orAny(key), orAny(value)}}
}

// ArrayOf describes an array-like type whose component position is elem.
// Both Go arrays and slices are accepted as values for an array position.
func ArrayOf(elem *Type, tags ...any) *Type {
	return arrayOf(reflect.SliceOf(rawOrAny(elem)), elem, tags)
}

func arrayOf(t reflect.Type, elem *Type, tags []any) *Type {
	return &Type{shape: ShapeArray, raw: t, tags: clone(tags), elem: orAny(elem)}
}

// Var describes a type variable named name with the given bounds.
func Var(name string, bounds ...*Type) *Type {
	return &Type{shape: ShapeVariable, raw: anyType, name: name, bounds: compact(bounds)}
}

// AnnotatedVar is Var with annotations at the variable position itself.
func AnnotatedVar(name string, tags []any, bounds ...*Type) *Type {
	v := Var(name, bounds...)
	v.tags = clone(tags)
	return v
}

// Wildcard describes a wildcard with upper and lower bounds.
func Wildcard(upper, lower []*Type, tags ...any) *Type {
	return &Type{shape: ShapeWildcard, raw: anyType, tags: clone(tags), bounds: compact(upper), lower: compact(lower)}
}

// Shape returns the structural variant.
func (t *Type) Shape() Shape { return t.shape }

// Raw returns the erased Go type, or nil when unknown.
func (t *Type) Raw() reflect.Type { return t.raw }

// Name returns the type variable name.
func (t *Type) Name() string { return t.name }

// Tags returns the annotations declared directly at this position.
func (t *Type) Tags() []any { return clone(t.tags) }

// Args returns the type arguments of a parameterized position.
func (t *Type) Args() []*Type { return clone(t.args) }

// Elem returns the component position of an array.
func (t *Type) Elem() *Type { return t.elem }

// Bounds returns the bounds of a type variable or the upper bounds of a wildcard.
func (t *Type) Bounds() []*Type { return clone(t.bounds) }

// Upper returns the upper bounds of a wildcard.
func (t *Type) Upper() []*Type { return clone(t.bounds) }

// Lower returns the lower bounds of a wildcard.
func (t *Type) Lower() []*Type { return clone(t.lower) }

// Tag returns the first annotation of type at declared directly at this position.
func (t *Type) Tag(at reflect.Type) (any, bool) {
	for _, tag := range t.tags {
		if reflect.TypeOf(tag) == at {
			return tag, true
		}
	}
	return nil, false
}

// TagsByType returns the annotations of type at that are directly present at
// this position, followed by those unwrapped from Repeated containers.
func (t *Type) TagsByType(at reflect.Type) []any {
	return byType(t.tags, at)
}

// HasTag reports whether an annotation of type at is declared directly here.
func (t *Type) HasTag(at reflect.Type) bool {
	_, ok := t.Tag(at)
	return ok
}

func (t *Type) String() string {
	var b strings.Builder
	for _, tag := range t.tags {
		fmt.Fprintf(&b, "@%T ", tag)
	}
	switch t.shape {
	case ShapeVariable:
		b.WriteString(t.name)
		writeBounds(&b, " extends ", t.bounds)
	case ShapeWildcard:
		b.WriteString("?")
		writeBounds(&b, " extends ", t.bounds)
		writeBounds(&b, " super ", t.lower)
	case ShapeParameterized:
		b.WriteString(rawName(t.raw))
		b.WriteString("[")
		for i, a := range t.args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(a.String())
		}
		b.WriteString("]")
	case ShapeArray:
		b.WriteString("[](")
		b.WriteString(t.elem.String())
		b.WriteString(")")
	default:
		b.WriteString(rawName(t.raw))
	}
	return b.String()
}

func writeBounds(b *strings.Builder, prefix string, bounds []*Type) {
	for i, bt := range bounds {
		if i == 0 {
			b.WriteString(prefix)
		} else {
			b.WriteString(" & ")
		}
		b.WriteString(bt.String())
	}
}

func rawName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

var anyType = reflect.TypeFor[any]()

func rawOrAny(t *Type) reflect.Type {
	if t == nil || t.raw == nil {
		return anyType
	}
	return t.raw
}

func orAny(t *Type) *Type {
	if t == nil {
		return Plain(anyType)
	}
	return t
}

// compact drops nil positions.
func compact(ts []*Type) []*Type {
	var out []*Type
	for _, t := range ts {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// byType collects annotations of type at, first directly present, then
// unwrapped from Repeated containers.
func byType(tags []any, at reflect.Type) []any {
	var direct, indirect []any
	for _, tag := range tags {
		if reflect.TypeOf(tag) == at {
			direct = append(direct, tag)
			continue
		}
		if r, ok := tag.(Repeated); ok {
			for _, inner := range r.Repeated() {
				if reflect.TypeOf(inner) == at {
					indirect = append(indirect, inner)
				}
			}
		}
	}
	return append(direct, indirect...)
}

func clone[S ~[]E, E any](s S) S {
	if len(s) == 0 {
		return nil
	}
	out := make(S, len(s))
	copy(out, s)
	return out
}
