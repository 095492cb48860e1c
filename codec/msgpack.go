package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/tarantool/go-persist/persisted"
)

type msgpackCodec struct {
	serializer persisted.Serializer
}

// NewMsgpack returns the MessagePack codec. Map keys are written in ascending
// order, so equal trees always encode to equal bytes.
func NewMsgpack() Codec {
	return msgpackCodec{serializer: persisted.NewSerializer()}
}

// Name implements Codec.
func (msgpackCodec) Name() string { return "msgpack" }

// Encode implements Codec.
func (c msgpackCodec) Encode(data persisted.Data) ([]byte, error) {
	var buf bytes.Buffer

	encoder := msgpack.NewEncoder(&buf)

	if err := encodeMsgpack(encoder, data); err != nil {
		return nil, errMarshal(err)
	}

	return buf.Bytes(), nil
}

func encodeMsgpack(encoder *msgpack.Encoder, data persisted.Data) error {
	if data == nil {
		return encoder.EncodeNil()
	}

	switch data.Kind() {
	case persisted.KindNull:
		return encoder.EncodeNil()
	case persisted.KindBool:
		v, _ := data.AsBool()
		return encoder.EncodeBool(v)
	case persisted.KindInt:
		v, _ := data.AsInt()
		return encoder.EncodeInt(v)
	case persisted.KindUint:
		v, _ := data.AsUint()
		return encoder.EncodeUint(v)
	case persisted.KindFloat:
		v, _ := data.AsFloat()
		return encoder.EncodeFloat64(v)
	case persisted.KindString:
		v, _ := data.AsString()
		return encoder.EncodeString(v)
	case persisted.KindBytes:
		v, _ := data.AsBytes()
		return encoder.EncodeBytes(v)
	case persisted.KindArray:
		return encodeMsgpackArray(encoder, data)
	case persisted.KindValueMap:
		return encodeMsgpackMap(encoder, data)
	default:
		return fmt.Errorf("%w: kind %s", ErrUnsupportedNode, data.Kind())
	}
}

func encodeMsgpackArray(encoder *msgpack.Encoder, data persisted.Data) error {
	arr, _ := data.AsArray()

	err := encoder.EncodeArrayLen(arr.Len())
	if err != nil {
		return fmt.Errorf("failed to encode array length: %w", err)
	}

	for i := range arr.Len() {
		err = encodeMsgpack(encoder, arr.At(i))
		if err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}

	return nil
}

func encodeMsgpackMap(encoder *msgpack.Encoder, data persisted.Data) error {
	vm, _ := data.AsValueMap()

	err := encoder.EncodeMapLen(vm.Len())
	if err != nil {
		return fmt.Errorf("failed to encode map length: %w", err)
	}

	for _, key := range vm.Keys() {
		err = encoder.EncodeString(key)
		if err != nil {
			return fmt.Errorf("failed to encode key %q: %w", key, err)
		}

		item, _ := vm.Get(key)

		err = encodeMsgpack(encoder, item)
		if err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
	}

	return nil
}

// Decode implements Codec. The document must hold exactly one value.
func (c msgpackCodec) Decode(document []byte) (persisted.Data, error) {
	decoder := msgpack.NewDecoder(bytes.NewReader(document))

	raw, err := decoder.DecodeInterfaceLoose()
	if err != nil {
		return nil, errUnmarshal(fmt.Errorf("%w: %w", ErrInvalidDocument, err))
	}

	if _, err := decoder.PeekCode(); !errors.Is(err, io.EOF) {
		return nil, errUnmarshal(fmt.Errorf("%w: trailing data", ErrInvalidDocument))
	}

	data, err := persisted.FromNative(c.serializer, raw)
	if err != nil {
		return nil, errUnmarshal(err)
	}

	return data, nil
}
