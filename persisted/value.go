package persisted

import (
	"encoding/base64"
	"math"
	"slices"
	"sort"
)

// value is the in-memory Data implementation produced by the default serializer.
type value struct {
	kind Kind

	b     bool
	i     int64
	u     uint64
	f     float64
	s     string
	bytes []byte
	items []Data
	pairs map[string]Data
}

var nullValue = &value{kind: KindNull} //nolint:gochecknoglobals

func (v *value) Kind() Kind       { return v.kind }
func (v *value) IsNull() bool     { return v.kind == KindNull }
func (v *value) IsArray() bool    { return v.kind == KindArray }
func (v *value) IsValueMap() bool { return v.kind == KindValueMap }

func (v *value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}

	return v.b, true
}

func (v *value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindUint:
		if v.u > math.MaxInt64 {
			return 0, false
		}

		return int64(v.u), true
	case KindFloat:
		return floatToInt(v.f)
	default:
		return 0, false
	}
}

func (v *value) AsUint() (uint64, bool) {
	switch v.kind {
	case KindUint:
		return v.u, true
	case KindInt:
		if v.i < 0 {
			return 0, false
		}

		return uint64(v.i), true
	case KindFloat:
		if v.f < 0 {
			return 0, false
		}

		i, ok := floatToInt(v.f)
		if !ok {
			return 0, false
		}

		return uint64(i), true
	default:
		return 0, false
	}
}

func (v *value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	case KindUint:
		return float64(v.u), true
	default:
		return 0, false
	}
}

func (v *value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}

	return v.s, true
}

func (v *value) AsBytes() ([]byte, bool) {
	switch v.kind {
	case KindBytes:
		return slices.Clone(v.bytes), true
	case KindString:
		decoded, err := base64.StdEncoding.DecodeString(v.s)
		if err != nil {
			return nil, false
		}

		return decoded, true
	default:
		return nil, false
	}
}

func (v *value) AsArray() (Array, bool) {
	if v.kind != KindArray {
		return nil, false
	}

	return arrayView(v.items), true
}

func (v *value) AsValueMap() (ValueMap, bool) {
	if v.kind != KindValueMap {
		return nil, false
	}

	return mapView(v.pairs), true
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}

	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}

	return int64(f), true
}

type arrayView []Data

func (a arrayView) Len() int       { return len(a) }
func (a arrayView) At(i int) Data  { return a[i] }
func (a arrayView) Values() []Data { return slices.Clone([]Data(a)) }

type mapView map[string]Data

func (m mapView) Len() int { return len(m) }

func (m mapView) Get(key string) (Data, bool) {
	d, ok := m[key]
	return d, ok
}

func (m mapView) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
