// Package typeinfo provides type descriptors used to dispatch type handlers.
package typeinfo

import (
	"reflect"
)

// Descriptor identifies a (possibly composite) type.
//
// Descriptors are comparable and can be used as map keys: two descriptors are
// equal when they describe the same type, including element and key types.
type Descriptor struct {
	typ reflect.Type
}

// Of returns the descriptor of T. For interface types the interface itself is
// described, not the dynamic type of a value.
func Of[T any]() Descriptor {
	return Descriptor{typ: reflect.TypeFor[T]()}
}

// FromType wraps a reflect.Type.
func FromType(t reflect.Type) Descriptor {
	return Descriptor{typ: t}
}

// TypeOf returns the descriptor of the dynamic type of v.
func TypeOf(v any) Descriptor {
	return Descriptor{typ: reflect.TypeOf(v)}
}

// Type returns the described type, nil for a zero descriptor.
func (d Descriptor) Type() reflect.Type {
	return d.typ
}

// IsZero reports whether the descriptor describes nothing.
func (d Descriptor) IsZero() bool {
	return d.typ == nil
}

// Kind returns the kind of the described type.
func (d Descriptor) Kind() reflect.Kind {
	if d.typ == nil {
		return reflect.Invalid
	}

	return d.typ.Kind()
}

// Elem describes the element type of arrays, slices, pointers, maps and channels.
// A zero descriptor is returned for other kinds.
func (d Descriptor) Elem() Descriptor {
	switch d.Kind() {
	case reflect.Array, reflect.Slice, reflect.Pointer, reflect.Map, reflect.Chan:
		return Descriptor{typ: d.typ.Elem()}
	default:
		return Descriptor{}
	}
}

// Key describes the key type of a map, a zero descriptor for other kinds.
func (d Descriptor) Key() Descriptor {
	if d.Kind() != reflect.Map {
		return Descriptor{}
	}

	return Descriptor{typ: d.typ.Key()}
}

// Parameters returns descriptors of the types the described type is built
// from: key and element for maps, element for arrays, slices, pointers and
// channels, nothing otherwise.
func (d Descriptor) Parameters() []Descriptor {
	switch d.Kind() {
	case reflect.Map:
		return []Descriptor{d.Key(), d.Elem()}
	case reflect.Array, reflect.Slice, reflect.Pointer, reflect.Chan:
		return []Descriptor{d.Elem()}
	default:
		return nil
	}
}

// Implements reports whether the described type implements the interface iface.
func (d Descriptor) Implements(iface reflect.Type) bool {
	return d.typ != nil && iface.Kind() == reflect.Interface && d.typ.Implements(iface)
}

func (d Descriptor) String() string {
	if d.typ == nil {
		return "<nil>"
	}

	return d.typ.String()
}
