// Package factories provides the factories building the coretypes handlers and
// their default registration order.
package factories

import (
	"reflect"

	"github.com/tarantool/go-option"
	"go.uber.org/zap"

	"github.com/tarantool/go-persist/enum"
	"github.com/tarantool/go-persist/typehandler"
	"github.com/tarantool/go-persist/typehandler/coretypes"
	"github.com/tarantool/go-persist/typeinfo"
)

func none() option.Generic[typehandler.TypeHandler[any]] {
	return option.None[typehandler.TypeHandler[any]]()
}

func some(h typehandler.TypeHandler[any]) option.Generic[typehandler.TypeHandler[any]] {
	return option.Some(h)
}

// Default returns the built-in factories in resolution order: enums first,
// since named integer and string types would otherwise be taken as plain
// primitives, and structs last as the most general fallback.
func Default(catalog *enum.Catalog) []typehandler.Factory {
	return []typehandler.Factory{
		NewEnumFactory(catalog),
		NewPrimitiveFactory(),
		NewPointerFactory(),
		NewArrayFactory(),
		NewMapFactory(),
		NewStructFactory(),
	}
}

type enumFactory struct {
	catalog *enum.Catalog
}

// NewEnumFactory returns a factory for declared enumerations. A requested type
// that embeds a declared enumeration as its first field (directly or through
// other such types) is stored as that enumeration and read back as a value of
// the requested type.
// Interface types, including enum.Constant, never match.
func NewEnumFactory(catalog *enum.Catalog) typehandler.Factory {
	return enumFactory{catalog: catalog}
}

func (f enumFactory) Create(desc typeinfo.Descriptor, ctx typehandler.Context) option.Generic[typehandler.TypeHandler[any]] {
	if f.catalog == nil || desc.Type() == enum.RootType {
		return none()
	}

	set, ok := f.catalog.Resolve(desc.Type())
	if !ok {
		return none()
	}

	return some(coretypes.NewEnumSubtypeHandler(desc.Type(), set, ctx.Logger()))
}

type primitiveFactory struct{}

// NewPrimitiveFactory returns a factory matching types by primitive kind.
func NewPrimitiveFactory() typehandler.Factory {
	return primitiveFactory{}
}

func (primitiveFactory) Create(desc typeinfo.Descriptor, _ typehandler.Context) option.Generic[typehandler.TypeHandler[any]] {
	h, ok := coretypes.NewPrimitiveHandler(desc.Type())
	if !ok {
		return none()
	}

	return some(h)
}

type pointerFactory struct{}

// NewPointerFactory returns a factory for pointer types whose element type resolves.
func NewPointerFactory() typehandler.Factory {
	return pointerFactory{}
}

func (pointerFactory) Create(desc typeinfo.Descriptor, ctx typehandler.Context) option.Generic[typehandler.TypeHandler[any]] {
	if desc.Kind() != reflect.Pointer {
		return none()
	}

	elem, ok := ctx.Resolve(desc.Elem()).Get()
	if !ok {
		return none()
	}

	h, ok := coretypes.NewPointerHandler(desc, elem)
	if !ok {
		return none()
	}

	return some(h)
}

type arrayFactory struct{}

// NewArrayFactory returns a factory for slices and fixed arrays whose element
// type resolves.
func NewArrayFactory() typehandler.Factory {
	return arrayFactory{}
}

func (arrayFactory) Create(desc typeinfo.Descriptor, ctx typehandler.Context) option.Generic[typehandler.TypeHandler[any]] {
	kind := desc.Kind()
	if kind != reflect.Slice && kind != reflect.Array {
		return none()
	}

	elemType := desc.Elem()

	elem, ok := ctx.Resolve(elemType).Get()
	if !ok {
		return none()
	}

	if kind == reflect.Array {
		return some(coretypes.NewFixedArrayHandler(elem, elemType, desc.Type().Len()))
	}

	return some(coretypes.NewArrayHandler(elem, elemType))
}

type mapFactory struct{}

// NewMapFactory returns a factory for maps with string or integer keys whose
// value type resolves.
func NewMapFactory() typehandler.Factory {
	return mapFactory{}
}

func (mapFactory) Create(desc typeinfo.Descriptor, ctx typehandler.Context) option.Generic[typehandler.TypeHandler[any]] {
	if desc.Kind() != reflect.Map || !coretypes.IsMapKey(desc.Key().Type()) {
		return none()
	}

	value, ok := ctx.Resolve(desc.Elem()).Get()
	if !ok {
		return none()
	}

	h, ok := coretypes.NewMapHandler(desc, value)
	if !ok {
		return none()
	}

	return some(h)
}

type structFactory struct{}

// NewStructFactory returns a factory for struct types. Fields whose type has
// no handler are skipped with a warning.
func NewStructFactory() typehandler.Factory {
	return structFactory{}
}

func (structFactory) Create(desc typeinfo.Descriptor, ctx typehandler.Context) option.Generic[typehandler.TypeHandler[any]] {
	if desc.Kind() != reflect.Struct {
		return none()
	}

	persistable := typeinfo.Fields(desc.Type())
	fields := make([]coretypes.StructField, 0, len(persistable))

	for _, field := range persistable {
		h, ok := ctx.Resolve(typeinfo.FromType(field.Type)).Get()
		if !ok {
			ctx.Logger().Warn("no type handler for field, skipping",
				zap.Stringer("type", desc),
				zap.String("field", field.Name),
				zap.Stringer("fieldType", field.Type),
			)

			continue
		}

		fields = append(fields, coretypes.StructField{
			Name:    field.PersistedName,
			Index:   field.Index,
			Type:    field.Type,
			Handler: h,
		})
	}

	return some(coretypes.NewStructHandler(desc.Type(), fields, ctx.Logger()))
}
