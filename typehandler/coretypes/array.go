package coretypes

import (
	"reflect"

	"github.com/tarantool/go-option"

	"github.com/tarantool/go-persist/persisted"
	"github.com/tarantool/go-persist/typehandler"
	"github.com/tarantool/go-persist/typeinfo"
)

// ArrayHandler serializes slices and arrays element by element.
//
// Elements that fail to deserialize are dropped: the result holds only the
// successfully deserialized elements, in their original relative order, so it
// may be shorter than the persisted sequence.
type ArrayHandler struct {
	elem     typehandler.TypeHandler[any]
	elemType typeinfo.Descriptor
	// length is the size of a fixed array, -1 for slices.
	length int
}

// NewArrayHandler returns a handler producing []E, where E is elemType.
// elemType is needed to allocate the slice because the element type cannot be
// recovered from an empty or erased sequence.
func NewArrayHandler(elem typehandler.TypeHandler[any], elemType typeinfo.Descriptor) typehandler.TypeHandler[any] {
	return typehandler.NullSafe[any](&ArrayHandler{elem: elem, elemType: elemType, length: -1})
}

// NewFixedArrayHandler returns a handler producing [length]E. Deserialized
// elements fill the array from the start; remaining slots keep zero values.
// More elements than length is reported as None.
func NewFixedArrayHandler(
	elem typehandler.TypeHandler[any],
	elemType typeinfo.Descriptor,
	length int,
) typehandler.TypeHandler[any] {
	return typehandler.NullSafe[any](&ArrayHandler{elem: elem, elemType: elemType, length: length})
}

// ElemType returns the element descriptor.
func (h *ArrayHandler) ElemType() typeinfo.Descriptor {
	return h.elemType
}

// SerializeNonNull implements typehandler.NonNull.
func (h *ArrayHandler) SerializeNonNull(value any, serializer persisted.Serializer) persisted.Data {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return serializer.Null()
	}

	items := make([]persisted.Data, 0, rv.Len())
	for i := range rv.Len() {
		items = append(items, h.elem.Serialize(interfaceOf(rv.Index(i)), serializer))
	}

	return serializer.Array(items)
}

// Deserialize implements typehandler.NonNull.
func (h *ArrayHandler) Deserialize(data persisted.Data) option.Generic[any] {
	arr, ok := data.AsArray()
	if !ok {
		return option.None[any]()
	}

	elemType := h.elemType.Type()

	items := make([]reflect.Value, 0, arr.Len())
	for _, itemData := range arr.Values() {
		item, ok := h.elem.Deserialize(itemData).Get()
		if !ok {
			continue
		}

		rv, ok := assignable(item, elemType)
		if !ok {
			continue
		}

		items = append(items, rv)
	}

	if h.length >= 0 {
		return h.fixed(items)
	}

	out := reflect.MakeSlice(reflect.SliceOf(elemType), len(items), len(items))
	for i, item := range items {
		out.Index(i).Set(item)
	}

	return option.Some(out.Interface())
}

func (h *ArrayHandler) fixed(items []reflect.Value) option.Generic[any] {
	if len(items) > h.length {
		return option.None[any]()
	}

	out := reflect.New(reflect.ArrayOf(h.length, h.elemType.Type())).Elem()
	for i, item := range items {
		out.Index(i).Set(item)
	}

	return option.Some(out.Interface())
}
