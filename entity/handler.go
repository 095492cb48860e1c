package entity

import (
	"github.com/tarantool/go-option"

	"github.com/tarantool/go-persist/persisted"
	"github.com/tarantool/go-persist/typehandler"
)

type refHandler struct{}

// NewRefHandler returns the handler storing references as UUID strings.
// Null is stored as the persisted Null value.
func NewRefHandler() typehandler.TypeHandler[Ref] {
	return typehandler.NullSafe[Ref](refHandler{})
}

// RefFactory returns a factory producing the reference handler. It must be
// registered before the struct factory, which would otherwise accept Ref.
func RefFactory() typehandler.Factory {
	return typehandler.Exact(NewRefHandler())
}

func (refHandler) SerializeNonNull(ref Ref, serializer persisted.Serializer) persisted.Data {
	if ref.IsNull() {
		return serializer.Null()
	}

	return serializer.String(ref.String())
}

func (refHandler) Deserialize(data persisted.Data) option.Generic[Ref] {
	if data.IsNull() {
		return option.Some(Null)
	}

	s, ok := data.AsString()
	if !ok {
		return option.None[Ref]()
	}

	ref, err := Parse(s)
	if err != nil {
		return option.None[Ref]()
	}

	return option.Some(ref)
}
