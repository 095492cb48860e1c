// Package persisted provides the format-agnostic value tree that type handlers
// produce and consume.
//
// A [Data] is immutable. Concrete encodings (YAML, MessagePack, JSON) live in
// the [github.com/tarantool/go-persist/codec] package and only ever see Data.
package persisted

// Kind is the tag of a persisted value.
type Kind uint8

const (
	// KindNull is the distinguished absent value.
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindBytes
	KindArray
	KindValueMap
)

var kindNames = [...]string{ //nolint:gochecknoglobals
	KindNull:     "null",
	KindBool:     "bool",
	KindInt:      "int",
	KindUint:     "uint",
	KindFloat:    "float",
	KindString:   "string",
	KindBytes:    "bytes",
	KindArray:    "array",
	KindValueMap: "map",
}

// String returns a human readable name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "unknown"
}

// IsNumber reports whether the kind holds a number.
func (k Kind) IsNumber() bool {
	return k == KindInt || k == KindUint || k == KindFloat
}

// Data is an immutable tagged tree value.
//
// The AsXxx accessors never panic: the second return value is false when the
// value cannot be viewed as the requested type.
type Data interface {
	Kind() Kind

	IsNull() bool
	IsArray() bool
	IsValueMap() bool

	AsBool() (bool, bool)
	// AsInt accepts any number that fits into int64 without loss.
	AsInt() (int64, bool)
	// AsUint accepts any non-negative number that fits into uint64 without loss.
	AsUint() (uint64, bool)
	// AsFloat accepts any number.
	AsFloat() (float64, bool)
	AsString() (string, bool)
	// AsBytes accepts bytes and base64 encoded strings.
	AsBytes() ([]byte, bool)
	AsArray() (Array, bool)
	AsValueMap() (ValueMap, bool)
}

// Array is an ordered sequence of persisted values.
type Array interface {
	Len() int
	At(i int) Data
	// Values returns the items in order. The returned slice is owned by the caller.
	Values() []Data
}

// ValueMap is a string keyed collection of persisted values.
type ValueMap interface {
	Len() int
	Get(key string) (Data, bool)
	// Keys returns the keys in ascending order.
	Keys() []string
}
