package codec

import (
	"github.com/tarantool/go-persist/persisted"
	"github.com/tarantool/go-persist/typehandler"
)

// TypedMarshaller is a generic interface for typed marshalling operations.
type TypedMarshaller[T any] interface {
	Marshal(data T) ([]byte, error)
	Unmarshal(data []byte) (T, error)
}

// Typed marshals values of T through a type handler and a codec.
type Typed[T any] struct {
	handler    typehandler.TypeHandler[T]
	codec      Codec
	serializer persisted.Serializer
}

var _ TypedMarshaller[int] = Typed[int]{}

// NewTyped creates a marshaller for T.
func NewTyped[T any](handler typehandler.TypeHandler[T], codec Codec) Typed[T] {
	return Typed[T]{
		handler:    handler,
		codec:      codec,
		serializer: persisted.NewSerializer(),
	}
}

// Marshal serializes data with the handler and encodes the result.
func (m Typed[T]) Marshal(data T) ([]byte, error) {
	out, err := m.codec.Encode(m.handler.Serialize(data, m.serializer))
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Unmarshal decodes data and deserializes it with the handler. An
// UnmarshalError wrapping ErrNoValue is returned when the handler rejects the
// decoded tree.
func (m Typed[T]) Unmarshal(data []byte) (T, error) {
	var zero T

	decoded, err := m.codec.Decode(data)
	if err != nil {
		return zero, err
	}

	out, ok := m.handler.Deserialize(decoded).Get()
	if !ok {
		return zero, errUnmarshal(ErrNoValue)
	}

	return out, nil
}
