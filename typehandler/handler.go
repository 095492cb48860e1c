// Package typehandler defines the serialization contract for a single type
// and the ordered factory registry resolving handlers by requested type.
//
// See [Library] for resolution and the coretypes package for built-in handlers.
package typehandler

import (
	"reflect"

	"github.com/tarantool/go-option"

	"github.com/tarantool/go-persist/persisted"
)

// TypeHandler converts values of T to and from persisted data.
//
// Serialize returns the serializer's Null value for nil input without invoking
// type specific logic. Deserialize returns None when the data has an
// unexpected shape or cannot be reconstructed; it never panics on such input.
type TypeHandler[T any] interface {
	Serialize(value T, serializer persisted.Serializer) persisted.Data
	Deserialize(data persisted.Data) option.Generic[T]
}

// NonNull is the part of a handler concrete types implement. Values passed to
// SerializeNonNull are never nil.
type NonNull[T any] interface {
	SerializeNonNull(value T, serializer persisted.Serializer) persisted.Data
	Deserialize(data persisted.Data) option.Generic[T]
}

type nullSafe[T any] struct {
	inner NonNull[T]
}

// NullSafe wraps inner so nil values serialize to Null.
func NullSafe[T any](inner NonNull[T]) TypeHandler[T] {
	return nullSafe[T]{inner: inner}
}

func (h nullSafe[T]) Serialize(value T, serializer persisted.Serializer) persisted.Data {
	if IsNil(value) {
		return serializer.Null()
	}

	return h.inner.SerializeNonNull(value, serializer)
}

func (h nullSafe[T]) Deserialize(data persisted.Data) option.Generic[T] {
	if data == nil {
		return option.None[T]()
	}

	return h.inner.Deserialize(data)
}

// Inner returns the implementation wrapped by NullSafe, or nil if h was not
// built by NullSafe.
func Inner[T any](h TypeHandler[T]) NonNull[T] {
	if wrapper, ok := h.(nullSafe[T]); ok {
		return wrapper.inner
	}

	return nil
}

type funcHandler[T any] struct {
	serialize   func(T, persisted.Serializer) persisted.Data
	deserialize func(persisted.Data) option.Generic[T]
}

func (h funcHandler[T]) SerializeNonNull(value T, serializer persisted.Serializer) persisted.Data {
	return h.serialize(value, serializer)
}

func (h funcHandler[T]) Deserialize(data persisted.Data) option.Generic[T] {
	return h.deserialize(data)
}

// Func builds a null-safe handler out of two functions.
func Func[T any](
	serialize func(value T, serializer persisted.Serializer) persisted.Data,
	deserialize func(data persisted.Data) option.Generic[T],
) TypeHandler[T] {
	return NullSafe[T](funcHandler[T]{serialize: serialize, deserialize: deserialize})
}

// IsNil reports whether v is nil or holds a nil pointer, slice, map,
// interface, function or channel.
func IsNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

type erased[T any] struct {
	typed TypeHandler[T]
}

// Erase exposes a typed handler as TypeHandler[any]. Values that are not a T
// serialize to Null.
func Erase[T any](h TypeHandler[T]) TypeHandler[any] {
	if untyped, ok := any(h).(TypeHandler[any]); ok {
		return untyped
	}

	if n, ok := h.(narrowed[T]); ok {
		return n.untyped
	}

	return erased[T]{typed: h}
}

func (h erased[T]) Serialize(value any, serializer persisted.Serializer) persisted.Data {
	if value == nil {
		return serializer.Null()
	}

	typed, ok := value.(T)
	if !ok {
		return serializer.Null()
	}

	return h.typed.Serialize(typed, serializer)
}

func (h erased[T]) Deserialize(data persisted.Data) option.Generic[any] {
	val, ok := h.typed.Deserialize(data).Get()
	if !ok {
		return option.None[any]()
	}

	return option.Some[any](val)
}

type narrowed[T any] struct {
	untyped TypeHandler[any]
}

// Narrow exposes an erased handler as TypeHandler[T]. Deserialized values that
// are not a T are reported as None.
func Narrow[T any](h TypeHandler[any]) TypeHandler[T] {
	if typed, ok := any(h).(TypeHandler[T]); ok {
		return typed
	}

	if e, ok := h.(erased[T]); ok {
		return e.typed
	}

	return narrowed[T]{untyped: h}
}

func (h narrowed[T]) Serialize(value T, serializer persisted.Serializer) persisted.Data {
	if IsNil(value) {
		return serializer.Null()
	}

	return h.untyped.Serialize(value, serializer)
}

func (h narrowed[T]) Deserialize(data persisted.Data) option.Generic[T] {
	val, ok := h.untyped.Deserialize(data).Get()
	if !ok {
		return option.None[T]()
	}

	typed, ok := val.(T)
	if !ok {
		return option.None[T]()
	}

	return option.Some(typed)
}
