package morph

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Location selects which annotation instances a handler receives.
type Location uint8

const (
	// DirectlyPresent is the single annotation literally declared at the position.
	DirectlyPresent Location = iota
	// IndirectlyPresent is every annotation declared at the position,
	// including those wrapped in a Repeated container.
	IndirectlyPresent
	// Present is the annotation at the position plus the one visible on the
	// value's dynamic type, inherited through embedding.
	Present
	// Associated is IndirectlyPresent applied to both the position and the
	// value's dynamic type.
	Associated
)

func (l Location) String() string {
	switch l {
	case DirectlyPresent:
		return "directly_present"
	case IndirectlyPresent:
		return "indirectly_present"
	case Present:
		return "present"
	case Associated:
		return "associated"
	default:
		return fmt.Sprintf("location(%d)", l)
	}
}

// Declaration binds an annotation type to the handler that processes it.
// It is registered on a governing annotation type: usually the annotation
// itself, or a Repeated container of it.
type Declaration struct {
	// Annotation is the annotation type handed to the handler.
	Annotation reflect.Type
	// Handler is the handler type; instances come from the instance registry.
	Handler reflect.Type
	// Locations are evaluated in order. Empty means DirectlyPresent.
	Locations []Location
}

// TagParser builds an annotation from the argument of a struct tag entry.
// For `morph:"mask(email)"` the parser registered as "mask" receives "email".
type TagParser func(arg string) (any, error)

// Schema is the metadata-tag lookup: declarations keyed by governing
// annotation type, struct tag names, and annotations attached to Go types.
// A Schema is safe for concurrent use.
type Schema struct {
	mu      sync.RWMutex
	decls   map[reflect.Type]Declaration
	names   map[string]TagParser
	classes map[reflect.Type][]any
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{
		decls:   make(map[reflect.Type]Declaration),
		names:   make(map[string]TagParser),
		classes: make(map[reflect.Type][]any),
	}
}

var handlerType = reflect.TypeFor[Handler]()

// Declare registers d as the declaration carried by annotation type on.
// Re-declaring an identical declaration is a no-op.
func (s *Schema) Declare(on reflect.Type, d Declaration) error {
	if on == nil {
		return fmt.Errorf("%w: nil governing type", ErrInvalidDeclaration)
	}
	if d.Annotation == nil {
		d.Annotation = on
	}
	if d.Handler == nil {
		return fmt.Errorf("%w: %s has no handler", ErrInvalidDeclaration, on)
	}
	if !d.Handler.Implements(handlerType) {
		return fmt.Errorf("%w: %s does not implement morph.Handler", ErrInvalidDeclaration, d.Handler)
	}
	if len(d.Locations) == 0 {
		d.Locations = []Location{DirectlyPresent}
	}
	for _, l := range d.Locations {
		if l > Associated {
			return fmt.Errorf("%w: unknown location %d on %s", ErrInvalidDeclaration, l, on)
		}
	}
	d.Locations = clone(d.Locations)

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.decls[on]; ok {
		if reflect.DeepEqual(old, d) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrConflictingDeclaration, on)
	}
	s.decls[on] = d
	return nil
}

// Lookup returns the declaration carried by an annotation type.
func (s *Schema) Lookup(on reflect.Type) (Declaration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.decls[on]
	return d, ok
}

// DeclareTag declares that annotation type A is processed by handler type H.
func DeclareTag[A any, H Handler](s *Schema, locations ...Location) error {
	a := reflect.TypeFor[A]()
	return s.Declare(a, Declaration{
		Annotation: a,
		Handler:    reflect.TypeFor[H](),
		Locations:  locations,
	})
}

// DeclareContainer declares that the Repeated container C governs annotations
// of type A, processed by handler type H.
func DeclareContainer[C Repeated, A any, H Handler](s *Schema, locations ...Location) error {
	return s.Declare(reflect.TypeFor[C](), Declaration{
		Annotation: reflect.TypeFor[A](),
		Handler:    reflect.TypeFor[H](),
		Locations:  locations,
	})
}

// Name registers a struct tag name.
func (s *Schema) Name(name string, parse TagParser) error {
	name = strings.TrimSpace(name)
	if name == "" || parse == nil || strings.ContainsAny(name, "(),") {
		return fmt.Errorf("%w: %q", ErrInvalidTag, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.names[name]; dup {
		return fmt.Errorf("%w: %q already registered", ErrInvalidTag, name)
	}
	s.names[name] = parse
	return nil
}

// Parse turns struct tag text such as "redact(***),cascade" into annotations.
func (s *Schema) Parse(text string) ([]any, error) {
	entries, err := splitTag(text)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]any, 0, len(entries))
	for _, e := range entries {
		parse, ok := s.names[e.name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTag, e.name)
		}
		a, err := parse(e.arg)
		if err != nil {
			return nil, fmt.Errorf("%w: %s(%s): %w", ErrInvalidTag, e.name, e.arg, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// Annotate attaches annotations to a Go type. They are visible on values of
// that type and, unless shadowed by an annotation of the same type, on types
// embedding it.
func (s *Schema) Annotate(t reflect.Type, annotations ...any) {
	if t == nil || len(annotations) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classes[t] = append(s.classes[t], annotations...)
}

// TypeAnnotations returns the annotations visible on the dynamic type of v:
// its own (registered, or reported by Annotated) followed by inherited ones.
func (s *Schema) TypeAnnotations(v any) []any {
	if v == nil {
		return nil
	}
	own := []any{}
	if a, ok := v.(Annotated); ok {
		own = append(own, a.Annotations()...)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inherit(reflect.TypeOf(v), own, map[reflect.Type]bool{})
}

// inherit appends registered annotations of t, then those of embedded types
// whose annotation type is not already present.
func (s *Schema) inherit(t reflect.Type, acc []any, seen map[reflect.Type]bool) []any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if seen[t] {
		return acc
	}
	seen[t] = true

	acc = appendAbsent(acc, s.classes[t])
	if t.Kind() != reflect.Struct {
		return acc
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		acc = appendAbsent(acc, s.inherit(f.Type, nil, seen))
	}
	return acc
}

// appendAbsent appends annotations whose type is not yet in acc.
func appendAbsent(acc, more []any) []any {
	present := make(map[reflect.Type]bool, len(acc))
	for _, a := range acc {
		present[reflect.TypeOf(a)] = true
	}
	for _, a := range more {
		if !present[reflect.TypeOf(a)] {
			acc = append(acc, a)
		}
	}
	return acc
}

type tagEntry struct {
	name string
	arg  string
}

// splitTag splits on top-level commas; arguments may contain commas.
func splitTag(text string) ([]tagEntry, error) {
	var (
		out   []tagEntry
		depth int
		start int
	)
	flush := func(end int) error {
		raw := strings.TrimSpace(text[start:end])
		start = end + 1
		if raw == "" {
			return nil
		}
		e, err := parseEntry(raw)
		if err != nil {
			return err
		}
		out = append(out, e)
		return nil
	}
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("%w: unbalanced ')' in %q", ErrInvalidTag, text)
			}
		case ',':
			if depth == 0 {
				if err := flush(i); err != nil {
					return nil, err
				}
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("%w: unbalanced '(' in %q", ErrInvalidTag, text)
	}
	if err := flush(len(text)); err != nil {
		return nil, err
	}
	return out, nil
}

func parseEntry(raw string) (tagEntry, error) {
	open := strings.IndexByte(raw, '(')
	if open < 0 {
		return tagEntry{name: raw}, nil
	}
	if !strings.HasSuffix(raw, ")") || open == 0 {
		return tagEntry{}, fmt.Errorf("%w: %q", ErrInvalidTag, raw)
	}
	return tagEntry{
		name: strings.TrimSpace(raw[:open]),
		arg:  strings.TrimSpace(raw[open+1 : len(raw)-1]),
	}, nil
}
