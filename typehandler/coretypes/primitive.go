// Package coretypes provides the built-in type handlers: primitives, arrays,
// enums, maps, pointers and structs.
//
// All handlers work on erased values (TypeHandler[any]) so they can be built
// at runtime for any reflect.Type; use typehandler.Narrow for a typed view.
package coretypes

import (
	"reflect"

	"github.com/tarantool/go-option"

	"github.com/tarantool/go-persist/persisted"
	"github.com/tarantool/go-persist/typehandler"
)

// PrimitiveHandler handles booleans, integers, floats, strings and byte
// slices, including named types defined over them.
type PrimitiveHandler struct {
	typ reflect.Type
}

// IsPrimitive reports whether NewPrimitiveHandler accepts t.
func IsPrimitive(t reflect.Type) bool {
	if t == nil {
		return false
	}

	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8
	default:
		return false
	}
}

// NewPrimitiveHandler returns the handler for t. The second return value is
// false when t is not primitive.
func NewPrimitiveHandler(t reflect.Type) (typehandler.TypeHandler[any], bool) {
	if !IsPrimitive(t) {
		return nil, false
	}

	return typehandler.NullSafe[any](&PrimitiveHandler{typ: t}), true
}

// Type returns the handled type.
func (h *PrimitiveHandler) Type() reflect.Type {
	return h.typ
}

// SerializeNonNull implements typehandler.NonNull. Values of another type
// serialize to Null.
func (h *PrimitiveHandler) SerializeNonNull(value any, serializer persisted.Serializer) persisted.Data {
	rv := reflect.ValueOf(value)
	if rv.Type() != h.typ {
		return serializer.Null()
	}

	switch h.typ.Kind() {
	case reflect.Bool:
		return serializer.Bool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return serializer.Int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return serializer.Uint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return serializer.Float(rv.Float())
	case reflect.String:
		return serializer.String(rv.String())
	case reflect.Slice:
		return serializer.Bytes(rv.Bytes())
	default:
		return serializer.Null()
	}
}

// Deserialize implements typehandler.NonNull. Numbers that do not fit into
// the handled type are reported as None.
func (h *PrimitiveHandler) Deserialize(data persisted.Data) option.Generic[any] {
	out := reflect.New(h.typ).Elem()

	switch h.typ.Kind() {
	case reflect.Bool:
		v, ok := data.AsBool()
		if !ok {
			return option.None[any]()
		}

		out.SetBool(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, ok := data.AsInt()
		if !ok || out.OverflowInt(v) {
			return option.None[any]()
		}

		out.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		v, ok := data.AsUint()
		if !ok || out.OverflowUint(v) {
			return option.None[any]()
		}

		out.SetUint(v)
	case reflect.Float32, reflect.Float64:
		v, ok := data.AsFloat()
		if !ok || out.OverflowFloat(v) {
			return option.None[any]()
		}

		out.SetFloat(v)
	case reflect.String:
		v, ok := data.AsString()
		if !ok {
			return option.None[any]()
		}

		out.SetString(v)
	case reflect.Slice:
		v, ok := data.AsBytes()
		if !ok {
			return option.None[any]()
		}

		out.SetBytes(v)
	default:
		return option.None[any]()
	}

	return option.Some(out.Interface())
}

// assignable returns val as a reflect.Value usable as a t. Nil is accepted
// for nilable types only.
func assignable(val any, t reflect.Type) (reflect.Value, bool) {
	if val == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return reflect.Zero(t), true
		default:
			return reflect.Value{}, false
		}
	}

	rv := reflect.ValueOf(val)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, false
	}

	return rv, true
}

// interfaceOf returns the value held by rv, nil for invalid values.
func interfaceOf(rv reflect.Value) any {
	if !rv.IsValid() {
		return nil
	}

	return rv.Interface()
}
