package coretypes

import (
	"reflect"

	"github.com/tarantool/go-option"
	"go.uber.org/zap"

	"github.com/tarantool/go-persist/enum"
	"github.com/tarantool/go-persist/persisted"
	"github.com/tarantool/go-persist/typehandler"
)

// EnumHandler stores constants of a declared enumeration by name.
// It produces values of its own type, which is either the declared type of
// the set or an override type embedding it.
type EnumHandler struct {
	typ    reflect.Type
	set    *enum.Set
	logger *zap.Logger
}

// NewEnumHandler returns the handler for values of the declared type of set.
// A nil logger disables logging.
func NewEnumHandler(set *enum.Set, logger *zap.Logger) typehandler.TypeHandler[any] {
	return NewEnumSubtypeHandler(set.Type(), set, logger)
}

// NewEnumSubtypeHandler returns the handler for typ, which must be the declared
// type of set or embed it through its first fields. Deserialized constants are
// wrapped into a new typ value.
func NewEnumSubtypeHandler(typ reflect.Type, set *enum.Set, logger *zap.Logger) typehandler.TypeHandler[any] {
	if logger == nil {
		logger = zap.NewNop()
	}

	return typehandler.NullSafe[any](&EnumHandler{typ: typ, set: set, logger: logger})
}

// Type returns the type of the produced values.
func (h *EnumHandler) Type() reflect.Type {
	return h.typ
}

// Set returns the enumeration the handler is bound to.
func (h *EnumHandler) Set() *enum.Set {
	return h.set
}

// SerializeNonNull implements typehandler.NonNull. Values of override types
// embedding a constant are stored under the embedded constant's name.
func (h *EnumHandler) SerializeNonNull(value any, serializer persisted.Serializer) persisted.Data {
	name, ok := h.set.NameOf(value)
	if !ok {
		h.logger.Warn("value is not a declared enum constant",
			zap.Stringer("enum", h.set.Type()),
			zap.Any("value", value),
		)

		return serializer.Null()
	}

	return serializer.String(name)
}

// Deserialize implements typehandler.NonNull. Names are matched ignoring case.
func (h *EnumHandler) Deserialize(data persisted.Data) option.Generic[any] {
	name, ok := data.AsString()
	if !ok {
		return option.None[any]()
	}

	constant, ok := h.set.ByName(name)
	if !ok {
		h.logger.Warn("unknown enum value",
			zap.Stringer("enum", h.set.Type()),
			zap.String("value", name),
		)

		return option.None[any]()
	}

	if h.typ == h.set.Type() {
		return option.Some(constant)
	}

	value, ok := enum.Wrap(h.typ, constant)
	if !ok {
		h.logger.Warn("cannot wrap enum constant",
			zap.Stringer("enum", h.set.Type()),
			zap.Stringer("type", h.typ),
			zap.String("value", name),
		)

		return option.None[any]()
	}

	return option.Some(value.Interface())
}
