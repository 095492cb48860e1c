package coretypes

import (
	"reflect"

	"github.com/tarantool/go-option"

	"github.com/tarantool/go-persist/persisted"
	"github.com/tarantool/go-persist/typehandler"
	"github.com/tarantool/go-persist/typeinfo"
)

// PointerHandler stores *E as the persisted form of E. Null deserializes to a
// nil pointer.
type PointerHandler struct {
	typ  reflect.Type
	elem typehandler.TypeHandler[any]
}

// NewPointerHandler returns the handler for the pointer type desc.
func NewPointerHandler(desc typeinfo.Descriptor, elem typehandler.TypeHandler[any]) (typehandler.TypeHandler[any], bool) {
	if desc.Kind() != reflect.Pointer {
		return nil, false
	}

	return typehandler.NullSafe[any](&PointerHandler{typ: desc.Type(), elem: elem}), true
}

// SerializeNonNull implements typehandler.NonNull.
func (h *PointerHandler) SerializeNonNull(value any, serializer persisted.Serializer) persisted.Data {
	rv := reflect.ValueOf(value)
	if rv.Type() != h.typ {
		return serializer.Null()
	}

	return h.elem.Serialize(rv.Elem().Interface(), serializer)
}

// Deserialize implements typehandler.NonNull.
func (h *PointerHandler) Deserialize(data persisted.Data) option.Generic[any] {
	if data.IsNull() {
		return option.Some(reflect.Zero(h.typ).Interface())
	}

	val, ok := h.elem.Deserialize(data).Get()
	if !ok {
		return option.None[any]()
	}

	rv, ok := assignable(val, h.typ.Elem())
	if !ok {
		return option.None[any]()
	}

	out := reflect.New(h.typ.Elem())
	out.Elem().Set(rv)

	return option.Some(out.Interface())
}
