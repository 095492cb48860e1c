package persisted

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrUnsupportedNative is returned by FromNative for values outside of the tree model.
var ErrUnsupportedNative = errors.New("unsupported native value")

// Native converts d into plain Go values: nil, bool, int64, uint64, float64,
// string, []byte, []any and map[string]any.
func Native(d Data) any {
	if d == nil {
		return nil
	}

	switch d.Kind() {
	case KindBool:
		v, _ := d.AsBool()
		return v
	case KindInt:
		v, _ := d.AsInt()
		return v
	case KindUint:
		v, _ := d.AsUint()
		return v
	case KindFloat:
		v, _ := d.AsFloat()
		return v
	case KindString:
		v, _ := d.AsString()
		return v
	case KindBytes:
		v, _ := d.AsBytes()
		return v
	case KindArray:
		arr, _ := d.AsArray()

		out := make([]any, 0, arr.Len())
		for _, item := range arr.Values() {
			out = append(out, Native(item))
		}

		return out
	case KindValueMap:
		vm, _ := d.AsValueMap()

		out := make(map[string]any, vm.Len())
		for _, key := range vm.Keys() {
			item, _ := vm.Get(key)
			out[key] = Native(item)
		}

		return out
	default:
		return nil
	}
}

// FromNative builds Data out of plain Go values, the inverse of Native.
// Integer and float types of any width are accepted, as well as maps keyed by
// strings or by interface values holding strings.
func FromNative(s Serializer, v any) (Data, error) {
	switch val := v.(type) {
	case nil:
		return s.Null(), nil
	case Data:
		return val, nil
	case bool:
		return s.Bool(val), nil
	case int:
		return s.Int(int64(val)), nil
	case int8:
		return s.Int(int64(val)), nil
	case int16:
		return s.Int(int64(val)), nil
	case int32:
		return s.Int(int64(val)), nil
	case int64:
		return s.Int(val), nil
	case uint:
		return s.Uint(uint64(val)), nil
	case uint8:
		return s.Uint(uint64(val)), nil
	case uint16:
		return s.Uint(uint64(val)), nil
	case uint32:
		return s.Uint(uint64(val)), nil
	case uint64:
		return s.Uint(val), nil
	case float32:
		return s.Float(float64(val)), nil
	case float64:
		return s.Float(val), nil
	case string:
		return s.String(val), nil
	case []byte:
		return s.Bytes(val), nil
	case []any:
		items := make([]Data, 0, len(val))

		for i, item := range val {
			d, err := FromNative(s, item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}

			items = append(items, d)
		}

		return s.Array(items), nil
	case map[string]any:
		pairs := make(map[string]Data, len(val))

		for key, item := range val {
			d, err := FromNative(s, item)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}

			pairs[key] = d
		}

		return s.ValueMap(pairs), nil
	case map[any]any:
		pairs := make(map[string]Data, len(val))

		for rawKey, item := range val {
			key, ok := rawKey.(string)
			if !ok {
				return nil, fmt.Errorf("%w: map key of type %T", ErrUnsupportedNative, rawKey)
			}

			d, err := FromNative(s, item)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}

			pairs[key] = d
		}

		return s.ValueMap(pairs), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedNative, v)
	}
}

// Equal reports whether two trees hold the same content.
//
// Numbers are compared by value regardless of their kind, and bytes compare
// equal to their base64 string form, so trees survive a trip through formats
// that do not distinguish those kinds.
func Equal(a, b Data) bool {
	if a == nil || b == nil {
		return a == b
	}

	ka, kb := a.Kind(), b.Kind()

	switch {
	case ka.IsNumber() && kb.IsNumber():
		return equalNumbers(a, b)
	case ka == KindBytes || kb == KindBytes:
		ba, okA := a.AsBytes()
		bb, okB := b.AsBytes()

		return okA && okB && bytes.Equal(ba, bb)
	case ka != kb:
		return false
	}

	switch ka {
	case KindNull:
		return true
	case KindBool:
		va, _ := a.AsBool()
		vb, _ := b.AsBool()

		return va == vb
	case KindString:
		va, _ := a.AsString()
		vb, _ := b.AsString()

		return va == vb
	case KindArray:
		return equalArrays(a, b)
	case KindValueMap:
		return equalMaps(a, b)
	default:
		return false
	}
}

func equalNumbers(a, b Data) bool {
	if a.Kind() == KindFloat || b.Kind() == KindFloat {
		fa, _ := a.AsFloat()
		fb, _ := b.AsFloat()

		return fa == fb
	}

	if ia, okA := a.AsInt(); okA {
		ib, okB := b.AsInt()
		return okB && ia == ib
	}

	ua, _ := a.AsUint()
	ub, okB := b.AsUint()

	return okB && ua == ub
}

func equalArrays(a, b Data) bool {
	arrA, _ := a.AsArray()
	arrB, _ := b.AsArray()

	if arrA.Len() != arrB.Len() {
		return false
	}

	for i := range arrA.Len() {
		if !Equal(arrA.At(i), arrB.At(i)) {
			return false
		}
	}

	return true
}

func equalMaps(a, b Data) bool {
	mapA, _ := a.AsValueMap()
	mapB, _ := b.AsValueMap()

	if mapA.Len() != mapB.Len() {
		return false
	}

	for _, key := range mapA.Keys() {
		va, _ := mapA.Get(key)

		vb, ok := mapB.Get(key)
		if !ok || !Equal(va, vb) {
			return false
		}
	}

	return true
}
