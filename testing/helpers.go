// Package testing provides fixtures for exercising morph engines.
package testing

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/zoobzio/morph"
	"github.com/zoobzio/morph/instance"
)

// Tag names registered by NewSchema.
const (
	TagErase      = "erase"
	TagAccumulate = "accumulate"
)

// TestKey returns a valid 32-byte AES key for testing.
func TestKey() []byte {
	return []byte("32-byte-key-for-aes-256-encrypt!")
}

// TestEncryptor returns an AES encryptor configured for testing.
func TestEncryptor() morph.Encryptor {
	enc, err := morph.AES(TestKey())
	if err != nil {
		panic(err)
	}
	return enc
}

// Erased is the replacement written by EraseHandler.
const Erased = "******"

// Erase replaces any string with Erased.
type Erase struct{}

// EraseHandler processes Erase. It is a singleton and counts its calls.
type EraseHandler struct {
	instance.Singleton
	Calls atomic.Int64
}

// Handle implements morph.Handler.
func (h *EraseHandler) Handle(_ context.Context, value any, _ any) (any, error) {
	if _, ok := value.(string); !ok {
		return nil, fmt.Errorf("erase: want string, got %T", value)
	}
	h.Calls.Add(1)
	return Erased, nil
}

// Accumulate adds N to the value.
type Accumulate struct {
	N int
}

// Accumulates is a Repeated container of Accumulate.
type Accumulates []Accumulate

// Repeated implements morph.Repeated.
func (a Accumulates) Repeated() []any {
	out := make([]any, len(a))
	for i, v := range a {
		out[i] = v
	}
	return out
}

// Adder is implemented by values AccumulateHandler can add to besides int.
type Adder interface {
	Add(n int) any
}

// AccumulateHandler processes Accumulate. Instances are transient.
type AccumulateHandler struct {
	seen int
}

// Handle implements morph.Handler.
func (h *AccumulateHandler) Handle(_ context.Context, value any, annotation any) (any, error) {
	a, ok := annotation.(Accumulate)
	if !ok {
		return nil, fmt.Errorf("accumulate: unexpected annotation %T", annotation)
	}
	h.seen++
	switch v := value.(type) {
	case int:
		return v + a.N, nil
	case Adder:
		return v.Add(a.N), nil
	default:
		return nil, fmt.Errorf("accumulate: want int, got %T", value)
	}
}

// NewSchema returns a schema holding the built-in tags plus erase and
// accumulate. Accumulate annotations, bare or in an Accumulates container,
// are collected from locations.
func NewSchema(locations ...morph.Location) (*morph.Schema, error) {
	s := morph.NewSchema()
	if err := morph.RegisterBuiltins(s); err != nil {
		return nil, err
	}
	if err := s.Name(TagErase, func(string) (any, error) { return Erase{}, nil }); err != nil {
		return nil, err
	}
	if err := s.Name(TagAccumulate, parseAccumulate); err != nil {
		return nil, err
	}
	for _, err := range []error{
		morph.DeclareTag[Erase, *EraseHandler](s),
		morph.DeclareTag[Accumulate, *AccumulateHandler](s, locations...),
		morph.DeclareContainer[Accumulates, Accumulate, *AccumulateHandler](s, locations...),
	} {
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func parseAccumulate(arg string) (any, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return nil, err
	}
	return Accumulate{N: n}, nil
}

// NewEngine returns an engine over NewSchema(locations...) with a private
// instance registry. It panics when the schema cannot be built.
func NewEngine(locations []morph.Location, opts ...morph.Option) *morph.Engine {
	s, err := NewSchema(locations...)
	if err != nil {
		panic(err)
	}
	base := []morph.Option{morph.WithSchema(s), morph.WithInstances(instance.New())}
	return morph.New(append(base, opts...)...)
}

// Person is a cascading fixture with erased names.
type Person struct {
	Name   string  `morph:"erase"`
	Nested *Person `morph:"cascade"`
}

// SanitizedUser exercises the built-in tags.
type SanitizedUser struct {
	ID       string
	Email    string `morph:"mask(email)"`
	Password string `morph:"hash(sha256)"`
	SSN      string `morph:"mask(ssn)"`
	Note     string `morph:"redact([REDACTED])"`
	Secret   []byte `morph:"encrypt(aes)"`
}
