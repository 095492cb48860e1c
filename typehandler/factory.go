package typehandler

import (
	"github.com/tarantool/go-option"
	"go.uber.org/zap"

	"github.com/tarantool/go-persist/typeinfo"
)

// Context is handed to factories so composite handlers can resolve the
// handlers of their children.
type Context interface {
	// Resolve returns the handler for desc, or None if no factory accepts it.
	Resolve(desc typeinfo.Descriptor) option.Generic[TypeHandler[any]]
	Logger() *zap.Logger
}

// Factory produces handlers for the types it is responsible for and declines
// (returns None) for everything else.
type Factory interface {
	Create(desc typeinfo.Descriptor, ctx Context) option.Generic[TypeHandler[any]]
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(desc typeinfo.Descriptor, ctx Context) option.Generic[TypeHandler[any]]

// Create implements Factory.
func (f FactoryFunc) Create(desc typeinfo.Descriptor, ctx Context) option.Generic[TypeHandler[any]] {
	return f(desc, ctx)
}

// Exact returns a factory producing h for exactly the type T.
func Exact[T any](h TypeHandler[T]) Factory {
	want := typeinfo.Of[T]()
	untyped := Erase(h)

	return FactoryFunc(func(desc typeinfo.Descriptor, _ Context) option.Generic[TypeHandler[any]] {
		if desc != want {
			return option.None[TypeHandler[any]]()
		}

		return option.Some(untyped)
	})
}

// Lookup resolves the handler for T through ctx.
func Lookup[T any](ctx Context) option.Generic[TypeHandler[T]] {
	h, ok := ctx.Resolve(typeinfo.Of[T]()).Get()
	if !ok {
		return option.None[TypeHandler[T]]()
	}

	return option.Some(Narrow[T](h))
}
