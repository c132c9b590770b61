package morph

import (
	"context"
	"reflect"

	"github.com/zoobzio/morph/instance"
)

// DefaultRedaction replaces redacted values when the tag names no replacement.
const DefaultRedaction = "***"

// Redact replaces a string or byte slice with a fixed text.
type Redact struct {
	With string
}

type redactHandler struct {
	instance.Singleton
}

func (*redactHandler) Handle(_ context.Context, value any, annotation any) (any, error) {
	a, ok := annotation.(Redact)
	if !ok {
		return nil, mismatch("morph.Redact", annotation)
	}
	with := a.With
	if with == "" {
		with = DefaultRedaction
	}
	if r, ok := value.(Redactable); ok {
		return r.RedactWith(with)
	}
	return mapText(value, func([]byte) ([]byte, error) {
		return []byte(with), nil
	})
}

// mapText applies fn to the bytes of a string-kinded or byte-slice value and
// returns a value of the same type.
func mapText(value any, fn func([]byte) ([]byte, error)) (any, error) {
	switch v := value.(type) {
	case string:
		out, err := fn([]byte(v))
		if err != nil {
			return nil, err
		}
		return string(out), nil
	case []byte:
		return fn(v)
	}

	rv := reflect.ValueOf(value)
	switch {
	case rv.Kind() == reflect.String:
		out, err := fn([]byte(rv.String()))
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(string(out)).Convert(rv.Type()).Interface(), nil
	case rv.Kind() == reflect.Slice && rv.Type().Elem() == byteType:
		out, err := fn(rv.Bytes())
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(out).Convert(rv.Type()).Interface(), nil
	default:
		return nil, mismatch("string or []byte", value)
	}
}

var byteType = reflect.TypeFor[byte]()

func isStringKind(value any) bool {
	return value != nil && reflect.TypeOf(value).Kind() == reflect.String
}
