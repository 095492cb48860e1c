package coretypes_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarantool/go-persist/enum"
	testutil "github.com/tarantool/go-persist/internal/testing"
	"github.com/tarantool/go-persist/persisted"
	"github.com/tarantool/go-persist/typehandler"
	"github.com/tarantool/go-persist/typehandler/coretypes"
	"github.com/tarantool/go-persist/typehandler/coretypes/factories"
	"github.com/tarantool/go-persist/typeinfo"
)

type Color int

const (
	Red Color = iota
	Green
	Blue
)

func (c Color) String() string {
	switch c {
	case Red:
		return "Red"
	case Green:
		return "Green"
	case Blue:
		return "Blue"
	default:
		return "Color(?)"
	}
}

type Celsius float64

type settings struct {
	Name    string `persist:"name"`
	Level   int8
	Palette []Color
	Scores  map[string]int
	Parent  *settings
	Secret  string `persist:"-"`
	hidden  int
}

func newLibrary(t *testing.T) *typehandler.Library {
	t.Helper()

	catalog := enum.NewCatalog(enum.MustDeclare(Red, Green, Blue))

	return typehandler.NewBuilder().WithFactory(factories.Default(catalog)...).Build()
}

func handlerFor[T any](t *testing.T, lib *typehandler.Library) typehandler.TypeHandler[T] {
	t.Helper()

	h, ok := typehandler.Lookup[T](lib).Get()
	require.True(t, ok, "no handler for %s", typeinfo.Of[T]())

	return h
}

func roundTrip[T any](t *testing.T, lib *typehandler.Library, value T) T {
	t.Helper()

	h := handlerFor[T](t, lib)

	out, ok := h.Deserialize(h.Serialize(value, persisted.NewSerializer())).Get()
	require.True(t, ok)

	return out
}

func TestPrimitive_RoundTrip(t *testing.T) {
	t.Parallel()

	lib := newLibrary(t)

	assert.True(t, roundTrip(t, lib, true))
	assert.Equal(t, int64(math.MinInt64), roundTrip(t, lib, int64(math.MinInt64)))
	assert.Equal(t, uint64(math.MaxUint64), roundTrip(t, lib, uint64(math.MaxUint64)))
	assert.InDelta(t, 1.5, roundTrip(t, lib, 1.5), 0)
	assert.Equal(t, "text", roundTrip(t, lib, "text"))
	assert.Equal(t, []byte{1, 2, 3}, roundTrip(t, lib, []byte{1, 2, 3}))
	assert.Equal(t, Celsius(36.6), roundTrip(t, lib, Celsius(36.6)))
}

func TestPrimitive_Deserialize(t *testing.T) {
	t.Parallel()

	lib := newLibrary(t)
	serializer := persisted.NewSerializer()

	t.Run("overflow is none", func(t *testing.T) {
		t.Parallel()

		assert.True(t, handlerFor[int8](t, lib).Deserialize(serializer.Int(300)).IsZero())
		assert.True(t, handlerFor[uint8](t, lib).Deserialize(serializer.Int(-1)).IsZero())
	})

	t.Run("wrong shape is none", func(t *testing.T) {
		t.Parallel()

		assert.True(t, handlerFor[bool](t, lib).Deserialize(serializer.String("yes")).IsZero())
		assert.True(t, handlerFor[string](t, lib).Deserialize(serializer.Array(nil)).IsZero())
	})

	t.Run("null is none", func(t *testing.T) {
		t.Parallel()

		assert.True(t, handlerFor[int](t, lib).Deserialize(serializer.Null()).IsZero())
	})

	t.Run("integral float", func(t *testing.T) {
		t.Parallel()

		v, ok := handlerFor[int](t, lib).Deserialize(serializer.Float(4)).Get()
		require.True(t, ok)
		assert.Equal(t, 4, v)
	})
}

func TestPrimitive_NotPrimitive(t *testing.T) {
	t.Parallel()

	_, ok := coretypes.NewPrimitiveHandler(typeinfo.Of[[]int]().Type())
	assert.False(t, ok)

	_, ok = coretypes.NewPrimitiveHandler(nil)
	assert.False(t, ok)
}

func TestArray_ElementOrder(t *testing.T) {
	t.Parallel()

	lib := newLibrary(t)

	in := []int{5, 3, 9, 1}
	assert.Equal(t, in, roundTrip(t, lib, in))

	assert.Equal(t, [][]string{{"a"}, {}, {"b", "c"}}, roundTrip(t, lib, [][]string{{"a"}, {}, {"b", "c"}}))
}

func TestArray_DropsFailedElements(t *testing.T) {
	t.Parallel()

	lib := newLibrary(t)
	serializer := persisted.NewSerializer()

	data := serializer.Array([]persisted.Data{
		serializer.String("Blue"),
		serializer.String("purple"),
		serializer.Int(3),
		serializer.String("red"),
	})

	out, ok := handlerFor[[]Color](t, lib).Deserialize(data).Get()
	require.True(t, ok)
	assert.Equal(t, []Color{Blue, Red}, out)
}

func TestArray_EmptyKeepsElementType(t *testing.T) {
	t.Parallel()

	lib := newLibrary(t)
	serializer := persisted.NewSerializer()

	h, ok := lib.Resolve(typeinfo.Of[[]string]()).Get()
	require.True(t, ok)

	out, ok := h.Deserialize(serializer.Array(nil)).Get()
	require.True(t, ok)
	assert.Equal(t, []string{}, out)

	inner, ok := typehandler.Inner(h).(*coretypes.ArrayHandler)
	require.True(t, ok)
	assert.Equal(t, typeinfo.Of[string](), inner.ElemType())
}

func TestArray_NotAnArray(t *testing.T) {
	t.Parallel()

	lib := newLibrary(t)
	serializer := persisted.NewSerializer()

	assert.True(t, handlerFor[[]int](t, lib).Deserialize(serializer.Int(1)).IsZero())
	assert.True(t, handlerFor[[]int](t, lib).Serialize(nil, serializer).IsNull())
}

func TestArray_Fixed(t *testing.T) {
	t.Parallel()

	lib := newLibrary(t)
	serializer := persisted.NewSerializer()
	h := handlerFor[[3]int](t, lib)

	assert.Equal(t, [3]int{1, 2, 3}, roundTrip(t, lib, [3]int{1, 2, 3}))

	short, ok := h.Deserialize(serializer.Array([]persisted.Data{serializer.Int(7)})).Get()
	require.True(t, ok)
	assert.Equal(t, [3]int{7, 0, 0}, short)

	long := serializer.Array([]persisted.Data{
		serializer.Int(1), serializer.Int(2), serializer.Int(3), serializer.Int(4),
	})
	assert.True(t, h.Deserialize(long).IsZero())
}

func TestArray_NilElementHandlerInput(t *testing.T) {
	t.Parallel()

	serializer := persisted.NewSerializer()
	h := coretypes.NewArrayHandler(
		typehandler.NullSafe[any](testutil.PanickingHandler[any]{}),
		typeinfo.Of[*int](),
	)

	data := h.Serialize([]*int{nil, nil}, serializer)

	arr, ok := data.AsArray()
	require.True(t, ok)
	require.Equal(t, 2, arr.Len())
	assert.True(t, arr.At(0).IsNull())
	assert.True(t, arr.At(1).IsNull())
}

func TestEnum(t *testing.T) {
	t.Parallel()

	logger, logs := testutil.ObservedLogger()
	set := enum.MustDeclare(Red, Green, Blue)
	h := typehandler.Narrow[Color](coretypes.NewEnumHandler(set, logger))
	serializer := persisted.NewSerializer()

	data := h.Serialize(Green, serializer)
	name, ok := data.AsString()
	require.True(t, ok)
	assert.Equal(t, "Green", name)

	v, ok := h.Deserialize(serializer.String("BLUE")).Get()
	require.True(t, ok)
	assert.Equal(t, Blue, v)

	assert.True(t, h.Deserialize(serializer.String("Magenta")).IsZero())
	assert.True(t, h.Deserialize(serializer.Int(1)).IsZero())
	assert.Equal(t, 1, logs.FilterMessage("unknown enum value").Len())

	assert.True(t, h.Serialize(Color(42), serializer).IsNull())
}

func TestMap(t *testing.T) {
	t.Parallel()

	lib := newLibrary(t)
	serializer := persisted.NewSerializer()

	assert.Equal(t, map[string]int{"a": 1, "b": 2}, roundTrip(t, lib, map[string]int{"a": 1, "b": 2}))
	assert.Equal(t, map[int16]string{-3: "x", 7: "y"}, roundTrip(t, lib, map[int16]string{-3: "x", 7: "y"}))

	data := serializer.ValueMap(map[string]persisted.Data{
		"1":     serializer.String("one"),
		"two":   serializer.String("two"),
		"99999": serializer.String("overflow"),
	})

	out, ok := handlerFor[map[int16]string](t, lib).Deserialize(data).Get()
	require.True(t, ok)
	assert.Equal(t, map[int16]string{1: "one"}, out)

	assert.True(t, lib.Resolve(typeinfo.Of[map[float64]int]()).IsZero())
}

func TestPointer(t *testing.T) {
	t.Parallel()

	lib := newLibrary(t)
	serializer := persisted.NewSerializer()
	h := handlerFor[*int](t, lib)

	value := 12

	out := roundTrip(t, lib, &value)
	require.NotNil(t, out)
	assert.Equal(t, 12, *out)
	assert.NotSame(t, &value, out)

	assert.True(t, h.Serialize(nil, serializer).IsNull())

	null, ok := h.Deserialize(serializer.Null()).Get()
	require.True(t, ok)
	assert.Nil(t, null)
}

func TestStruct(t *testing.T) {
	t.Parallel()

	lib := newLibrary(t)
	serializer := persisted.NewSerializer()
	h := handlerFor[settings](t, lib)

	in := settings{
		Name:    "main",
		Level:   3,
		Palette: []Color{Red, Blue},
		Scores:  map[string]int{"x": 1},
		Parent:  &settings{Name: "root"},
		Secret:  "dropped",
		hidden:  1,
	}

	data := h.Serialize(in, serializer)

	vm, ok := data.AsValueMap()
	require.True(t, ok)
	assert.Equal(t, []string{"Level", "Palette", "Parent", "Scores", "name"}, vm.Keys())

	out, ok := h.Deserialize(data).Get()
	require.True(t, ok)

	in.Secret = ""
	in.hidden = 0
	assert.Equal(t, in, out)
}

func TestStruct_SkipsFailedFields(t *testing.T) {
	t.Parallel()

	lib := newLibrary(t)
	serializer := persisted.NewSerializer()

	data := serializer.ValueMap(map[string]persisted.Data{
		"name":  serializer.String("x"),
		"Level": serializer.Int(1000),
		"Other": serializer.Bool(true),
	})

	out, ok := handlerFor[settings](t, lib).Deserialize(data).Get()
	require.True(t, ok)
	assert.Equal(t, settings{Name: "x"}, out)

	assert.True(t, handlerFor[settings](t, lib).Deserialize(serializer.String("x")).IsZero())
}
