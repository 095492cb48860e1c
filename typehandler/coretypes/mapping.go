package coretypes

import (
	"reflect"
	"strconv"

	"github.com/tarantool/go-option"

	"github.com/tarantool/go-persist/persisted"
	"github.com/tarantool/go-persist/typehandler"
	"github.com/tarantool/go-persist/typeinfo"
)

// MapHandler stores maps with string or integer keys as value maps.
// Entries whose key or value fail to deserialize are dropped.
type MapHandler struct {
	typ   reflect.Type
	value typehandler.TypeHandler[any]
}

// IsMapKey reports whether maps keyed by t can be handled.
func IsMapKey(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

// NewMapHandler returns the handler for the map type desc with value handler
// value. The second return value is false for non-map types and unsupported keys.
func NewMapHandler(desc typeinfo.Descriptor, value typehandler.TypeHandler[any]) (typehandler.TypeHandler[any], bool) {
	if desc.Kind() != reflect.Map || !IsMapKey(desc.Key().Type()) {
		return nil, false
	}

	return typehandler.NullSafe[any](&MapHandler{typ: desc.Type(), value: value}), true
}

// SerializeNonNull implements typehandler.NonNull.
func (h *MapHandler) SerializeNonNull(value any, serializer persisted.Serializer) persisted.Data {
	rv := reflect.ValueOf(value)
	if rv.Type() != h.typ {
		return serializer.Null()
	}

	pairs := make(map[string]persisted.Data, rv.Len())

	iter := rv.MapRange()
	for iter.Next() {
		pairs[formatKey(iter.Key())] = h.value.Serialize(iter.Value().Interface(), serializer)
	}

	return serializer.ValueMap(pairs)
}

// Deserialize implements typehandler.NonNull.
func (h *MapHandler) Deserialize(data persisted.Data) option.Generic[any] {
	vm, ok := data.AsValueMap()
	if !ok {
		return option.None[any]()
	}

	out := reflect.MakeMapWithSize(h.typ, vm.Len())

	for _, rawKey := range vm.Keys() {
		key, ok := parseKey(rawKey, h.typ.Key())
		if !ok {
			continue
		}

		itemData, _ := vm.Get(rawKey)

		item, ok := h.value.Deserialize(itemData).Get()
		if !ok {
			continue
		}

		rv, ok := assignable(item, h.typ.Elem())
		if !ok {
			continue
		}

		out.SetMapIndex(key, rv)
	}

	return option.Some(out.Interface())
}

func formatKey(key reflect.Value) string {
	switch key.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(key.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(key.Uint(), 10)
	default:
		return key.String()
	}
}

func parseKey(raw string, t reflect.Type) (reflect.Value, bool) {
	key := reflect.New(t).Elem()

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := strconv.ParseInt(raw, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, false
		}

		key.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(raw, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, false
		}

		key.SetUint(v)
	default:
		key.SetString(raw)
	}

	return key, true
}
