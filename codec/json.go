package codec

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/tarantool/go-persist/persisted"
)

type jsonCodec struct {
	serializer persisted.Serializer
}

// NewJSON returns the JSON codec. Bytes are written as base64 strings.
//
// Decoded trees are lazy: nested arrays and objects are only parsed when
// visited.
func NewJSON() Codec {
	return jsonCodec{serializer: persisted.NewSerializer()}
}

// Name implements Codec.
func (jsonCodec) Name() string { return "json" }

// Encode implements Codec. NaN and infinite floats cannot be encoded.
func (jsonCodec) Encode(data persisted.Data) ([]byte, error) {
	out, err := json.Marshal(persisted.Native(data))
	if err != nil {
		return nil, errMarshal(err)
	}

	return out, nil
}

// Decode implements Codec.
func (c jsonCodec) Decode(document []byte) (persisted.Data, error) {
	if !gjson.ValidBytes(document) {
		return nil, errUnmarshal(fmt.Errorf("%w: malformed json", ErrInvalidDocument))
	}

	return newJSONData(gjson.ParseBytes(document), c.serializer), nil
}

// jsonData views a gjson result as persisted data. Scalars delegate to an
// in-memory value so conversions match the rest of the package.
type jsonData struct {
	result     gjson.Result
	serializer persisted.Serializer

	once   sync.Once
	kind   persisted.Kind
	scalar persisted.Data
}

func newJSONData(result gjson.Result, serializer persisted.Serializer) *jsonData {
	return &jsonData{result: result, serializer: serializer}
}

func (d *jsonData) init() {
	d.once.Do(func() {
		switch d.result.Type {
		case gjson.Null:
			d.kind, d.scalar = persisted.KindNull, d.serializer.Null()
		case gjson.False:
			d.kind, d.scalar = persisted.KindBool, d.serializer.Bool(false)
		case gjson.True:
			d.kind, d.scalar = persisted.KindBool, d.serializer.Bool(true)
		case gjson.String:
			d.kind, d.scalar = persisted.KindString, d.serializer.String(d.result.Str)
		case gjson.Number:
			d.scalar = d.number()
			d.kind = d.scalar.Kind()
		case gjson.JSON:
			switch {
			case d.result.IsArray():
				d.kind = persisted.KindArray
			case d.result.IsObject():
				d.kind = persisted.KindValueMap
			default:
				d.kind, d.scalar = persisted.KindNull, d.serializer.Null()
			}
		}
	})
}

func (d *jsonData) number() persisted.Data {
	raw := d.result.Raw

	if !strings.ContainsAny(raw, ".eE") {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return d.serializer.Int(v)
		}

		if v, err := strconv.ParseUint(raw, 10, 64); err == nil {
			return d.serializer.Uint(v)
		}
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		v = d.result.Num
	}

	return d.serializer.Float(v)
}

func (d *jsonData) Kind() persisted.Kind {
	d.init()
	return d.kind
}

func (d *jsonData) IsNull() bool     { return d.Kind() == persisted.KindNull }
func (d *jsonData) IsArray() bool    { return d.Kind() == persisted.KindArray }
func (d *jsonData) IsValueMap() bool { return d.Kind() == persisted.KindValueMap }

func (d *jsonData) value() (persisted.Data, bool) {
	d.init()
	return d.scalar, d.scalar != nil
}

func (d *jsonData) AsBool() (bool, bool) {
	if v, ok := d.value(); ok {
		return v.AsBool()
	}

	return false, false
}

func (d *jsonData) AsInt() (int64, bool) {
	if v, ok := d.value(); ok {
		return v.AsInt()
	}

	return 0, false
}

func (d *jsonData) AsUint() (uint64, bool) {
	if v, ok := d.value(); ok {
		return v.AsUint()
	}

	return 0, false
}

func (d *jsonData) AsFloat() (float64, bool) {
	if v, ok := d.value(); ok {
		return v.AsFloat()
	}

	return 0, false
}

func (d *jsonData) AsString() (string, bool) {
	if v, ok := d.value(); ok {
		return v.AsString()
	}

	return "", false
}

func (d *jsonData) AsBytes() ([]byte, bool) {
	if v, ok := d.value(); ok {
		return v.AsBytes()
	}

	return nil, false
}

func (d *jsonData) AsArray() (persisted.Array, bool) {
	if !d.IsArray() {
		return nil, false
	}

	results := d.result.Array()
	items := make([]persisted.Data, 0, len(results))

	for _, item := range results {
		items = append(items, newJSONData(item, d.serializer))
	}

	return jsonArray(items), true
}

func (d *jsonData) AsValueMap() (persisted.ValueMap, bool) {
	if !d.IsValueMap() {
		return nil, false
	}

	pairs := map[string]persisted.Data{}

	d.result.ForEach(func(key, item gjson.Result) bool {
		pairs[key.String()] = newJSONData(item, d.serializer)
		return true
	})

	return jsonObject(pairs), true
}

type jsonArray []persisted.Data

func (a jsonArray) Len() int                 { return len(a) }
func (a jsonArray) At(i int) persisted.Data  { return a[i] }
func (a jsonArray) Values() []persisted.Data { return append([]persisted.Data(nil), a...) }

type jsonObject map[string]persisted.Data

func (o jsonObject) Len() int { return len(o) }

func (o jsonObject) Get(key string) (persisted.Data, bool) {
	d, ok := o[key]
	return d, ok
}

func (o jsonObject) Keys() []string {
	keys := make([]string, 0, len(o))
	for key := range o {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
