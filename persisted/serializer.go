package persisted

import (
	"maps"
	"slices"
)

// Serializer builds persisted values from native ones.
type Serializer interface {
	// Null returns the distinguished absent value.
	Null() Data
	Bool(v bool) Data
	Int(v int64) Data
	Uint(v uint64) Data
	Float(v float64) Data
	String(v string) Data
	Bytes(v []byte) Data
	// Array keeps the order of items. Nil items are stored as Null.
	Array(items []Data) Data
	// ValueMap stores a copy of pairs. Nil values are stored as Null.
	ValueMap(pairs map[string]Data) Data
}

type memSerializer struct{}

// NewSerializer returns a Serializer producing in-memory values.
func NewSerializer() Serializer {
	return memSerializer{}
}

// Null returns the shared Null value.
func Null() Data {
	return nullValue
}

func (memSerializer) Null() Data { return nullValue }

func (memSerializer) Bool(v bool) Data { return &value{kind: KindBool, b: v} }

func (memSerializer) Int(v int64) Data { return &value{kind: KindInt, i: v} }

func (memSerializer) Uint(v uint64) Data { return &value{kind: KindUint, u: v} }

func (memSerializer) Float(v float64) Data { return &value{kind: KindFloat, f: v} }

func (memSerializer) String(v string) Data { return &value{kind: KindString, s: v} }

func (memSerializer) Bytes(v []byte) Data {
	return &value{kind: KindBytes, bytes: slices.Clone(v)}
}

func (memSerializer) Array(items []Data) Data {
	out := make([]Data, len(items))
	for i, item := range items {
		out[i] = orNull(item)
	}

	return &value{kind: KindArray, items: out}
}

func (memSerializer) ValueMap(pairs map[string]Data) Data {
	out := maps.Clone(pairs)
	if out == nil {
		out = make(map[string]Data)
	}

	for k, v := range out {
		out[k] = orNull(v)
	}

	return &value{kind: KindValueMap, pairs: out}
}

func orNull(d Data) Data {
	if d == nil {
		return nullValue
	}

	return d
}
