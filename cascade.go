package morph

import (
	"context"
	"reflect"
)

// Cascade marks a position whose value is rewritten field by field.
// Inherited descends into untagged embedded structs as well.
type Cascade struct {
	Inherited bool
}

var cascadeType = reflect.TypeFor[Cascade]()

// variant is the shape of a value being cascaded into.
type variant uint8

const (
	variantOpaque     variant = iota
	variantRecord             // struct value, rebuilt as a new value
	variantObject             // pointer to struct, copied into a fresh instance
	variantEnumerated         // pointer to an Enumerated struct, rewritten in place
)

var enumeratedType = reflect.TypeFor[Enumerated]()

func variantOf(rv reflect.Value) variant {
	switch rv.Kind() {
	case reflect.Struct:
		return variantRecord
	case reflect.Pointer:
		if rv.IsNil() || rv.Type().Elem().Kind() != reflect.Struct {
			return variantOpaque
		}
		if rv.Type().Implements(enumeratedType) {
			return variantEnumerated
		}
		return variantObject
	default:
		return variantOpaque
	}
}

// Cascader transforms every field of a value marked with Cascade through the
// field's own position.
type Cascader struct{}

// Priority runs cascades last.
func (Cascader) Priority() int { return PriorityCascade }

// Supports reports whether the position carries a Cascade annotation and value is non-null.
func (Cascader) Supports(value any, t *Type) bool {
	return !isNull(value) && t.HasTag(cascadeType)
}

// Transform rebuilds value by its cascade variant with every field transformed.
func (Cascader) Transform(ctx context.Context, e *Engine, value any, t *Type) (any, error) {
	tag, _ := t.Tag(cascadeType)
	return e.cascade(ctx, reflect.ValueOf(value), tag.(Cascade))
}

func (e *Engine) cascade(ctx context.Context, rv reflect.Value, c Cascade) (any, error) {
	switch variantOf(rv) {
	case variantRecord:
		dst := reflect.New(rv.Type()).Elem()
		dst.Set(rv)
		if err := e.populate(ctx, dst, c); err != nil {
			return nil, err
		}
		return dst.Interface(), nil

	case variantObject:
		ctx, err := enter(ctx, rv)
		if err != nil {
			return nil, err
		}
		created, err := e.instances.Create(rv.Type())
		if err != nil {
			return nil, err
		}
		fresh := reflect.ValueOf(created)
		if !fresh.IsValid() || fresh.Type() != rv.Type() || fresh.IsNil() {
			return nil, newReflectionError(rv.Type(), "", "create", mismatch(rv.Type().String(), created))
		}
		fresh.Elem().Set(rv.Elem())
		if err := e.populate(ctx, fresh.Elem(), c); err != nil {
			return nil, err
		}
		return fresh.Interface(), nil

	case variantEnumerated:
		ctx, err := enter(ctx, rv)
		if err != nil {
			return nil, err
		}
		if err := e.populate(ctx, rv.Elem(), c); err != nil {
			return nil, err
		}
		return rv.Interface(), nil

	default:
		return rv.Interface(), nil
	}
}

// job is one field transform: read from dst, transformed, written back to dst.
type job struct {
	dst     reflect.Value
	owner   reflect.Type
	field   fieldPlan
	descend bool // embedded pointer walked with the same Cascade
}

// populate rewrites the fields of the addressable struct dst, which already
// holds a copy of the source. Results are gathered first and written back
// sequentially.
func (e *Engine) populate(ctx context.Context, dst reflect.Value, c Cascade) error {
	jobs, err := e.jobs(ctx, dst, c, nil)
	if err != nil {
		return err
	}

	out := make([]any, len(jobs))
	err = e.each(ctx, len(jobs), func(ctx context.Context, i int) error {
		j := jobs[i]
		src := j.dst.Interface()
		var (
			v   any
			err error
		)
		if j.descend {
			v, err = e.cascade(ctx, j.dst, c)
		} else {
			v, err = e.Transform(ctx, src, j.field.pos)
		}
		if err != nil {
			return err
		}
		out[i] = v
		return nil
	})
	if err != nil {
		return err
	}

	for i, j := range jobs {
		v, err := assignable(out[i], j.dst.Type(), j.owner, j.field.name)
		if err != nil {
			return err
		}
		j.dst.Set(v)
	}
	return nil
}

// jobs lists the fields of dst to transform. Untagged exported embedded
// structs are flattened into their own fields when c.Inherited is set and
// carried over otherwise.
func (e *Engine) jobs(ctx context.Context, dst reflect.Value, c Cascade, acc []job) ([]job, error) {
	rt := dst.Type()
	plan, err := e.plan(ctx, rt)
	if err != nil {
		return nil, err
	}

	for _, f := range plan.fields {
		fv := dst.Field(f.index)
		if f.embedded {
			if !c.Inherited {
				continue
			}
			switch {
			case !f.settable:
			case fv.Kind() == reflect.Struct:
				acc, err = e.jobs(ctx, fv, c, acc)
				if err != nil {
					return nil, err
				}
			case fv.Kind() == reflect.Pointer && !fv.IsNil() && fv.Type().Elem().Kind() == reflect.Struct:
				acc = append(acc, job{dst: fv, owner: rt, field: f, descend: true})
			}
			continue
		}
		if !f.settable {
			continue
		}
		acc = append(acc, job{dst: fv, owner: rt, field: f})
	}
	return acc, nil
}
