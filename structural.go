package morph

import (
	"cmp"
	"context"
	"fmt"
	"reflect"
	"slices"
)

// Priorities of the built-in transformers.
const (
	PriorityTypeVariable = First
	PriorityWildcard     = First + 1
	PriorityCollection   = 0
	PriorityMap          = 1
	PriorityArray        = 2
	PriorityMetadata     = Last - 1
	PriorityCascade      = Last
)

// Builtins returns fresh instances of the built-in transformers in priority order.
func Builtins() []Transformer {
	return []Transformer{
		TypeVariable{},
		WildcardBounds{},
		Collection{},
		Map{},
		Array{},
		Dispatcher{},
		Cascader{},
	}
}

// TypeVariable threads a value through each bound of a type variable.
type TypeVariable struct{}

// Priority runs type variables before every other transformer.
func (TypeVariable) Priority() int { return PriorityTypeVariable }

// Supports reports whether t is a type variable and value is non-null.
func (TypeVariable) Supports(value any, t *Type) bool {
	return t.Shape() == ShapeVariable && !isNull(value)
}

// Transform threads value through the variable's bounds in declaration order.
func (TypeVariable) Transform(ctx context.Context, e *Engine, value any, t *Type) (any, error) {
	return through(ctx, e, value, t.bounds)
}

// WildcardBounds threads a value through the upper then the lower bounds of a wildcard.
type WildcardBounds struct{}

// Priority runs wildcards right after type variables.
func (WildcardBounds) Priority() int { return PriorityWildcard }

// Supports reports whether t is a wildcard and value is non-null.
func (WildcardBounds) Supports(value any, t *Type) bool {
	return t.Shape() == ShapeWildcard && !isNull(value)
}

// Transform threads value through the upper bounds, then the lower bounds.
func (WildcardBounds) Transform(ctx context.Context, e *Engine, value any, t *Type) (any, error) {
	value, err := through(ctx, e, value, t.bounds)
	if err != nil {
		return nil, err
	}
	return through(ctx, e, value, t.lower)
}

func through(ctx context.Context, e *Engine, value any, bounds []*Type) (any, error) {
	for _, b := range bounds {
		out, err := e.Transform(ctx, value, b)
		if err != nil {
			return nil, err
		}
		value = out
	}
	return value, nil
}

// Collection rebuilds a slice with every element transformed through the
// element position. The result has the input's slice type and order.
type Collection struct{}

// Priority implements Transformer.
func (Collection) Priority() int { return PriorityCollection }

// Supports reports whether t has one type argument and value is a slice.
func (Collection) Supports(value any, t *Type) bool {
	if t.Shape() != ShapeParameterized || len(t.args) != 1 || isNull(value) {
		return false
	}
	return reflect.TypeOf(value).Kind() == reflect.Slice
}

// Transform rebuilds the slice through a registered or fresh instance of its type.
func (Collection) Transform(ctx context.Context, e *Engine, value any, t *Type) (any, error) {
	src := reflect.ValueOf(value)
	st := src.Type()

	out, err := e.elements(ctx, src, t.args[0])
	if err != nil {
		return nil, err
	}

	created, err := e.instances.Create(st)
	if err != nil {
		return nil, err
	}
	dst := reflect.ValueOf(created)
	if !dst.IsValid() || dst.Type() != st {
		return nil, newReflectionError(st, "", "create", mismatch(st.String(), created))
	}

	for i, v := range out {
		ev, err := assignable(v, st.Elem(), st, fmt.Sprintf("[%d]", i))
		if err != nil {
			return nil, err
		}
		dst = reflect.Append(dst, ev)
	}
	return dst.Interface(), nil
}

// Map rebuilds a map with every key and value transformed through the key and
// value positions. Entries are visited in key order when keys are ordered and
// inserted sequentially, so when two keys collide after transformation the
// entry visited last wins.
type Map struct{}

// Priority implements Transformer.
func (Map) Priority() int { return PriorityMap }

// Supports reports whether t has two type arguments and value is a map.
func (Map) Supports(value any, t *Type) bool {
	if t.Shape() != ShapeParameterized || len(t.args) != 2 || isNull(value) {
		return false
	}
	return reflect.TypeOf(value).Kind() == reflect.Map
}

// Transform rebuilds the map from a snapshot of its entries.
func (Map) Transform(ctx context.Context, e *Engine, value any, t *Type) (any, error) {
	src := reflect.ValueOf(value)
	mt := src.Type()
	keyT, valT := t.args[0], t.args[1]

	entries := orderedEntries(src)
	keysOut := make([]any, len(entries))
	valsOut := make([]any, len(entries))
	err := e.each(ctx, len(entries), func(ctx context.Context, i int) error {
		k, err := e.Transform(ctx, entries[i].key.Interface(), keyT)
		if err != nil {
			return err
		}
		v, err := e.Transform(ctx, entries[i].val.Interface(), valT)
		if err != nil {
			return err
		}
		keysOut[i], valsOut[i] = k, v
		return nil
	})
	if err != nil {
		return nil, err
	}

	created, err := e.instances.Create(mt)
	if err != nil {
		return nil, err
	}
	dst := reflect.ValueOf(created)
	if !dst.IsValid() || dst.Type() != mt || dst.IsNil() {
		return nil, newReflectionError(mt, "", "create", mismatch(mt.String(), created))
	}

	for i := range entries {
		member := fmt.Sprintf("[%v]", entries[i].key)
		kv, err := assignable(keysOut[i], mt.Key(), mt, member)
		if err != nil {
			return nil, err
		}
		if !kv.Comparable() {
			return nil, newReflectionError(mt, member, "assign", fmt.Errorf("%w: key %T is not comparable", ErrTypeMismatch, keysOut[i]))
		}
		vv, err := assignable(valsOut[i], mt.Elem(), mt, member)
		if err != nil {
			return nil, err
		}
		dst.SetMapIndex(kv, vv)
	}
	return dst.Interface(), nil
}

type mapEntry struct {
	key, val reflect.Value
}

// orderedEntries returns the map's entries read in one pass, sorted by key
// when the key kind has a natural order and in iteration order otherwise.
// Keys that never compare equal, such as NaN, keep their values.
func orderedEntries(m reflect.Value) []mapEntry {
	entries := make([]mapEntry, 0, m.Len())
	for it := m.MapRange(); it.Next(); {
		entries = append(entries, mapEntry{key: it.Key(), val: it.Value()})
	}
	var order func(a, b mapEntry) int
	switch m.Type().Key().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		order = func(a, b mapEntry) int { return cmp.Compare(a.key.Int(), b.key.Int()) }
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		order = func(a, b mapEntry) int { return cmp.Compare(a.key.Uint(), b.key.Uint()) }
	case reflect.Float32, reflect.Float64:
		order = func(a, b mapEntry) int { return cmp.Compare(a.key.Float(), b.key.Float()) }
	case reflect.String:
		order = func(a, b mapEntry) int { return cmp.Compare(a.key.String(), b.key.String()) }
	}
	if order != nil {
		slices.SortStableFunc(entries, order)
	}
	return entries
}

// Array rebuilds an array, or a slice under an array position, with every
// component transformed. The result is freshly allocated with the same type
// and length.
type Array struct{}

// Priority implements Transformer.
func (Array) Priority() int { return PriorityArray }

// Supports reports whether t is an array position and value is an array or slice.
func (Array) Supports(value any, t *Type) bool {
	if t.Shape() != ShapeArray || isNull(value) {
		return false
	}
	k := reflect.TypeOf(value).Kind()
	return k == reflect.Array || k == reflect.Slice
}

// Transform rebuilds the array, or slice, component by component.
func (Array) Transform(ctx context.Context, e *Engine, value any, t *Type) (any, error) {
	src := reflect.ValueOf(value)
	at := src.Type()

	out, err := e.elements(ctx, src, t.elem)
	if err != nil {
		return nil, err
	}

	var dst reflect.Value
	if at.Kind() == reflect.Array {
		dst = reflect.New(at).Elem()
	} else {
		dst = reflect.MakeSlice(at, len(out), len(out))
	}
	for i, v := range out {
		ev, err := assignable(v, at.Elem(), at, fmt.Sprintf("[%d]", i))
		if err != nil {
			return nil, err
		}
		dst.Index(i).Set(ev)
	}
	return dst.Interface(), nil
}

// elements transforms every element of an indexable value into an
// index-addressed slot.
func (e *Engine) elements(ctx context.Context, src reflect.Value, pos *Type) ([]any, error) {
	out := make([]any, src.Len())
	err := e.each(ctx, len(out), func(ctx context.Context, i int) error {
		v, err := e.Transform(ctx, src.Index(i).Interface(), pos)
		if err != nil {
			return err
		}
		out[i] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
