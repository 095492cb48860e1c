package coretypes

import (
	"reflect"

	"github.com/tarantool/go-option"
	"go.uber.org/zap"

	"github.com/tarantool/go-persist/persisted"
	"github.com/tarantool/go-persist/typehandler"
)

// StructField binds a struct field to the handler of its type.
type StructField struct {
	Name    string
	Index   []int
	Type    reflect.Type
	Handler typehandler.TypeHandler[any]
}

// StructHandler stores structs as value maps keyed by persisted field names.
//
// Nil fields are omitted. On deserialization missing fields and fields that
// fail to deserialize keep their zero value.
type StructHandler struct {
	typ    reflect.Type
	fields []StructField
	logger *zap.Logger
}

// NewStructHandler returns the handler for the struct type t.
func NewStructHandler(t reflect.Type, fields []StructField, logger *zap.Logger) typehandler.TypeHandler[any] {
	if logger == nil {
		logger = zap.NewNop()
	}

	return typehandler.NullSafe[any](&StructHandler{typ: t, fields: fields, logger: logger})
}

// Fields returns the handled fields in declaration order.
func (h *StructHandler) Fields() []StructField {
	out := make([]StructField, len(h.fields))
	copy(out, h.fields)

	return out
}

// SerializeNonNull implements typehandler.NonNull.
func (h *StructHandler) SerializeNonNull(value any, serializer persisted.Serializer) persisted.Data {
	rv := reflect.ValueOf(value)
	if rv.Type() != h.typ {
		return serializer.Null()
	}

	pairs := make(map[string]persisted.Data, len(h.fields))

	for _, field := range h.fields {
		fv := rv.FieldByIndex(field.Index).Interface()
		if typehandler.IsNil(fv) {
			continue
		}

		pairs[field.Name] = field.Handler.Serialize(fv, serializer)
	}

	return serializer.ValueMap(pairs)
}

// Deserialize implements typehandler.NonNull.
func (h *StructHandler) Deserialize(data persisted.Data) option.Generic[any] {
	vm, ok := data.AsValueMap()
	if !ok {
		return option.None[any]()
	}

	out := reflect.New(h.typ).Elem()

	for _, field := range h.fields {
		fieldData, ok := vm.Get(field.Name)
		if !ok {
			continue
		}

		val, ok := field.Handler.Deserialize(fieldData).Get()
		if !ok {
			h.logger.Debug("skipping field that failed to deserialize",
				zap.Stringer("type", h.typ),
				zap.String("field", field.Name),
			)

			continue
		}

		rv, ok := assignable(val, field.Type)
		if !ok {
			continue
		}

		out.FieldByIndex(field.Index).Set(rv)
	}

	return option.Some(out.Interface())
}
