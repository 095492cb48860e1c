package metadata

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrNoConstructor is returned for types that cannot be constructed
	// without arguments, which component copies require.
	ErrNoConstructor = errors.New("no zero-argument constructor")
	// ErrInvalidURI is returned for component URIs not of the "module:name" form.
	ErrInvalidURI = errors.New("invalid component uri")
	// ErrAlreadyRegistered is returned when a type or URI is already bound differently.
	ErrAlreadyRegistered = errors.New("component already registered")
)

// ConstructionError is returned when metadata for a type cannot be built.
type ConstructionError struct {
	typ    reflect.Type
	parent error
}

func errConstruction(typ reflect.Type, parent error) error {
	if parent == nil {
		return nil
	}

	return ConstructionError{typ: typ, parent: parent}
}

// Type returns the type whose metadata failed to build.
func (e ConstructionError) Type() reflect.Type {
	return e.typ
}

// Unwrap returns the underlying error.
func (e ConstructionError) Unwrap() error {
	return e.parent
}

// Error returns a string representation of the construction error.
func (e ConstructionError) Error() string {
	return fmt.Sprintf("Failed to build metadata for %v: %s", e.typ, e.parent)
}
