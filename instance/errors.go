package instance

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrInstantiation indicates no construction strategy exists for a type.
// Register a Factory for the type to recover.
var ErrInstantiation = errors.New("unable to create instance")

var (
	errNilType       = errors.New("nil type")
	errNoConstructor = errors.New("no applicable constructor")
)

// InstantiationError carries the type that could not be constructed.
type InstantiationError struct {
	Type  reflect.Type
	Cause error
}

func (e *InstantiationError) Error() string {
	if e.Type == nil {
		return fmt.Sprintf("%s: %v", ErrInstantiation.Error(), e.Cause)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s of %s: %v; register a factory for this type", ErrInstantiation.Error(), e.Type, e.Cause)
	}
	return fmt.Sprintf("%s of %s", ErrInstantiation.Error(), e.Type)
}

// Unwrap exposes both ErrInstantiation and the underlying cause.
func (e *InstantiationError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrInstantiation}
	}
	return []error{ErrInstantiation, e.Cause}
}
