package morph

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/zoobzio/morph/instance"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrNilType indicates a transform was requested without a type description.
	ErrNilType = errors.New("nil type description")

	// ErrInvalidTag indicates a struct tag has an invalid format or value.
	ErrInvalidTag = errors.New("invalid tag")

	// ErrUnknownTag indicates a struct tag names no registered annotation.
	ErrUnknownTag = errors.New("unknown tag")

	// ErrInvalidDeclaration indicates a malformed handler declaration.
	ErrInvalidDeclaration = errors.New("invalid declaration")

	// ErrConflictingDeclaration indicates an annotation type already carries a different declaration.
	ErrConflictingDeclaration = errors.New("conflicting declaration")

	// ErrHandler indicates a metadata handler failed.
	ErrHandler = errors.New("handler failed")

	// ErrTypeMismatch indicates a value or annotation of an unexpected type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrReflection indicates a reflective read or write of a member failed.
	ErrReflection = errors.New("reflection failed")

	// ErrCycle indicates a value graph references itself along the current path.
	ErrCycle = errors.New("reference cycle")

	// ErrDepthExceeded indicates nesting beyond the engine's maximum depth.
	ErrDepthExceeded = errors.New("maximum depth exceeded")

	// ErrInstantiation indicates no instance of a required type could be created.
	ErrInstantiation = instance.ErrInstantiation

	// ErrMissingEncryptor indicates a required encryptor was not registered.
	ErrMissingEncryptor = errors.New("missing encryptor")

	// ErrMissingHasher indicates a required hasher was not registered.
	ErrMissingHasher = errors.New("missing hasher")

	// ErrMissingMasker indicates a required masker was not registered.
	ErrMissingMasker = errors.New("missing masker")

	// ErrUnknownCodec indicates an encode tag names no registered codec.
	ErrUnknownCodec = errors.New("unknown codec")

	// ErrInvalidKey indicates an encryption key has invalid size or format.
	ErrInvalidKey = errors.New("invalid key")
)

// ReflectionError reports a failed reflective access to a member of a type.
type ReflectionError struct {
	Type   reflect.Type // Type owning the member
	Member string       // Field name or position
	Op     string       // read, write, convert
	Cause  error
}

func (e *ReflectionError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Op, e.Type)
	if e.Member != "" {
		msg += "." + e.Member
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", ErrReflection, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", ErrReflection, msg)
}

func (e *ReflectionError) Unwrap() []error {
	return []error{ErrReflection, e.Cause}
}

// HandlerError reports a metadata handler failure.
type HandlerError struct {
	Annotation any          // Annotation being handled
	Handler    reflect.Type // Handler type
	Cause      error        // Error returned by the handler
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s: %s for %T: %v", ErrHandler, e.Handler, e.Annotation, e.Cause)
}

func (e *HandlerError) Unwrap() []error {
	return []error{ErrHandler, e.Cause}
}

// TagError reports a struct tag that could not be interpreted.
type TagError struct {
	Type  reflect.Type // Struct type
	Field string       // Field name
	Tag   string       // Raw tag text
	Cause error
}

func (e *TagError) Error() string {
	return fmt.Sprintf("field %s.%s tag %q: %v", e.Type, e.Field, e.Tag, e.Cause)
}

func (e *TagError) Unwrap() error {
	return e.Cause
}

// ConfigError represents a missing capability required by a built-in tag.
type ConfigError struct {
	Err       error  // Underlying sentinel error (ErrMissingEncryptor, etc.)
	Algorithm string // Algorithm or kind that was missing
}

func (e *ConfigError) Error() string {
	if e.Algorithm != "" {
		return fmt.Sprintf("%s for algorithm %q", e.Err.Error(), e.Algorithm)
	}
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func newConfigError(sentinel error, algorithm string) error {
	return &ConfigError{Err: sentinel, Algorithm: algorithm}
}

func newReflectionError(t reflect.Type, member, op string, cause error) error {
	return &ReflectionError{Type: t, Member: member, Op: op, Cause: cause}
}

func mismatch(want string, got any) error {
	return fmt.Errorf("%w: want %s, got %T", ErrTypeMismatch, want, got)
}
