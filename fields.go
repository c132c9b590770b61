package morph

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/zoobzio/sentinel"
)

// Struct tag keys.
const (
	TagKey     = "morph"      // the field position
	TagElemKey = "morph.elem" // the element or map value position
	TagMapKey  = "morph.key"  // the map key position
)

func init() {
	sentinel.Tag(TagKey)
	sentinel.Tag(TagElemKey)
	sentinel.Tag(TagMapKey)
}

// structPlan lists the fields of a struct type and their positions.
type structPlan struct {
	fields []fieldPlan
}

// fieldPlan describes one field.
type fieldPlan struct {
	index    int
	name     string
	pos      *Type
	embedded bool // anonymous and untagged
	settable bool // exported and not blank
}

type planCell struct {
	once sync.Once
	plan *structPlan
	err  error
}

// Prepare scans T ahead of first use, caching its sentinel metadata and the
// default engine's field plan, and reports invalid tags. A failed plan is not
// cached, so a type may be prepared again once its tag names are registered.
func Prepare[T any]() error {
	rt := reflect.TypeFor[T]()
	if rt.Kind() == reflect.Struct {
		sentinel.Scan[T]()
	}
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return nil
	}
	_, err := Default().plan(context.Background(), rt)
	return err
}

// plan returns the cached field plan for struct type rt. Failures are
// returned to every caller waiting on the same build and then evicted.
func (e *Engine) plan(ctx context.Context, rt reflect.Type) (*structPlan, error) {
	v, _ := e.plans.LoadOrStore(rt, &planCell{})
	c := v.(*planCell)
	c.once.Do(func() {
		c.plan, c.err = e.buildPlan(rt)
		if c.err != nil {
			e.plans.CompareAndDelete(rt, c)
			return
		}
		emitFieldPlanCached(ctx, rt, len(c.plan.fields))
	})
	return c.plan, c.err
}

func (e *Engine) buildPlan(rt reflect.Type) (*structPlan, error) {
	known := taggedFields(rt)
	plan := &structPlan{fields: make([]fieldPlan, 0, rt.NumField())}

	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)

		var tags map[string]string
		if f, ok := known[sf.Name]; ok && f.ReflectType == sf.Type {
			tags = f.Tags
		} else {
			tags = structTags(sf.Tag)
		}

		top, err := e.parseTag(rt, sf, TagKey, tags)
		if err != nil {
			return nil, err
		}
		elem, err := e.parseTag(rt, sf, TagElemKey, tags)
		if err != nil {
			return nil, err
		}
		key, err := e.parseTag(rt, sf, TagMapKey, tags)
		if err != nil {
			return nil, err
		}

		pos, err := position(sf.Type, top, elem, key)
		if err != nil {
			return nil, &TagError{Type: rt, Field: sf.Name, Tag: string(sf.Tag), Cause: err}
		}

		plan.fields = append(plan.fields, fieldPlan{
			index:    i,
			name:     sf.Name,
			pos:      pos,
			embedded: sf.Anonymous && len(top) == 0,
			settable: sf.IsExported() && sf.Name != "_",
		})
	}
	return plan, nil
}

// taggedFields returns sentinel's field metadata for rt keyed by field name.
// Sentinel indexes types by bare name, so metadata from another package is
// ignored. Types sentinel has not scanned yield nil.
func taggedFields(rt reflect.Type) map[string]sentinel.FieldMetadata {
	meta, ok := sentinel.Lookup(rt.Name())
	if !ok || meta.PackageName != rt.PkgPath() {
		return nil
	}
	out := make(map[string]sentinel.FieldMetadata, len(meta.Fields))
	for _, f := range meta.Fields {
		out[f.Name] = f
	}
	return out
}

// structTags extracts the morph tags directly from a struct tag.
func structTags(tag reflect.StructTag) map[string]string {
	out := make(map[string]string, 3)
	for _, k := range []string{TagKey, TagElemKey, TagMapKey} {
		if v, ok := tag.Lookup(k); ok {
			out[k] = v
		}
	}
	return out
}

func (e *Engine) parseTag(rt reflect.Type, sf reflect.StructField, key string, tags map[string]string) ([]any, error) {
	text, ok := tags[key]
	if !ok {
		return nil, nil
	}
	anns, err := e.schema.Parse(text)
	if err != nil {
		return nil, &TagError{Type: rt, Field: sf.Name, Tag: key + ":" + text, Cause: err}
	}
	return anns, nil
}

// position describes a field of type ft carrying top, elem and key tags.
func position(ft reflect.Type, top, elem, key []any) (*Type, error) {
	switch ft.Kind() {
	case reflect.Slice:
		if len(key) > 0 {
			return nil, fmt.Errorf("%w: %s on %s", ErrInvalidTag, TagMapKey, ft)
		}
		if ft.Elem().Kind() == reflect.Uint8 && len(elem) == 0 {
			return Plain(ft, top...), nil
		}
		return listOf(ft, Describe(ft.Elem(), elem...), top), nil
	case reflect.Array:
		if len(key) > 0 {
			return nil, fmt.Errorf("%w: %s on %s", ErrInvalidTag, TagMapKey, ft)
		}
		return arrayOf(ft, Describe(ft.Elem(), elem...), top), nil
	case reflect.Map:
		return mapOf(ft, Describe(ft.Key(), key...), Describe(ft.Elem(), elem...), top), nil
	default:
		if len(elem) > 0 || len(key) > 0 {
			return nil, fmt.Errorf("%w: element tags on %s", ErrInvalidTag, ft)
		}
		return Describe(ft, top...), nil
	}
}
