package entity_test

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarantool/go-persist/entity"
	"github.com/tarantool/go-persist/persisted"
	"github.com/tarantool/go-persist/typeinfo"
)

type slot struct {
	Item  entity.Ref
	Count int
}

type bag struct {
	Slots   []slot
	ByName  map[string]entity.Ref
	Main    *entity.Ref
	Fixed   [2]entity.Ref
	Labels  []string
	private entity.Ref
}

type chain struct {
	Next *chain
	Ref  entity.Ref
}

func TestRef(t *testing.T) {
	t.Parallel()

	assert.True(t, entity.Null.IsNull())

	ref := entity.New()
	assert.False(t, ref.IsNull())

	parsed, err := entity.Parse(ref.String())
	require.NoError(t, err)
	assert.Equal(t, ref, parsed)

	id := uuid.New()
	assert.Equal(t, id, entity.NewRef(id).ID())

	_, err = entity.Parse("not-a-uuid")
	require.Error(t, err)
}

func TestRefHandler(t *testing.T) {
	t.Parallel()

	h := entity.NewRefHandler()
	serializer := persisted.NewSerializer()
	ref := entity.New()

	data := h.Serialize(ref, serializer)
	s, ok := data.AsString()
	require.True(t, ok)
	assert.Equal(t, ref.String(), s)

	out, ok := h.Deserialize(data).Get()
	require.True(t, ok)
	assert.Equal(t, ref, out)

	assert.True(t, h.Serialize(entity.Null, serializer).IsNull())

	null, ok := h.Deserialize(serializer.Null()).Get()
	require.True(t, ok)
	assert.True(t, null.IsNull())

	assert.True(t, h.Deserialize(serializer.String("garbage")).IsZero())
	assert.True(t, h.Deserialize(serializer.Int(1)).IsZero())
}

func TestRefFactory(t *testing.T) {
	t.Parallel()

	f := entity.RefFactory()

	assert.True(t, f.Create(typeinfo.Of[entity.Ref](), nil).IsSome())
	assert.True(t, f.Create(typeinfo.Of[*entity.Ref](), nil).IsZero())
}

func TestContains(t *testing.T) {
	t.Parallel()

	for _, typ := range []reflect.Type{
		entity.RefType,
		reflect.TypeFor[*entity.Ref](),
		reflect.TypeFor[[]entity.Ref](),
		reflect.TypeFor[map[entity.Ref]int](),
		reflect.TypeFor[map[string][]slot](),
		reflect.TypeFor[bag](),
		reflect.TypeFor[chain](),
	} {
		assert.True(t, entity.Contains(typ), typ.String())
	}

	for _, typ := range []reflect.Type{
		nil,
		reflect.TypeFor[int](),
		reflect.TypeFor[[]string](),
		reflect.TypeFor[any](),
		reflect.TypeFor[struct{ private entity.Ref }](),
	} {
		assert.False(t, entity.Contains(typ), "%v", typ)
	}
}

func TestCollect(t *testing.T) {
	t.Parallel()

	a, b, c, d := entity.New(), entity.New(), entity.New(), entity.New()

	value := bag{
		Slots:   []slot{{Item: a}, {Item: entity.Null}},
		ByName:  map[string]entity.Ref{"b": b},
		Main:    &c,
		Fixed:   [2]entity.Ref{d},
		private: entity.New(),
	}

	assert.ElementsMatch(t, []entity.Ref{a, b, c, d}, entity.Collect(value))
	assert.Nil(t, entity.Collect(nil))
	assert.Empty(t, entity.Collect(42))

	loop := &chain{Ref: a}
	loop.Next = loop

	assert.Equal(t, []entity.Ref{a}, entity.Collect(loop))
}

func TestRewrite(t *testing.T) {
	t.Parallel()

	a, c := entity.New(), entity.New()
	mapped := map[entity.Ref]entity.Ref{a: entity.New(), c: entity.New()}

	in := bag{
		Slots:  []slot{{Item: a, Count: 2}},
		Main:   &c,
		Labels: []string{"x"},
	}

	var untouched int

	out := entity.Rewrite(reflect.ValueOf(in),
		func(ref entity.Ref) entity.Ref { return mapped[ref] },
		func(v reflect.Value) reflect.Value {
			untouched++

			return v
		},
	).Interface().(bag)

	assert.Equal(t, mapped[a], out.Slots[0].Item)
	assert.Equal(t, 2, out.Slots[0].Count)
	assert.Equal(t, mapped[c], *out.Main)
	assert.Equal(t, []string{"x"}, out.Labels)
	assert.Positive(t, untouched)

	// The source is left intact.
	assert.Equal(t, a, in.Slots[0].Item)
	assert.Equal(t, c, *in.Main)
}

func TestRewrite_Cycle(t *testing.T) {
	t.Parallel()

	a := entity.New()
	replacement := entity.New()

	loop := &chain{Ref: a}
	loop.Next = loop

	out := entity.Rewrite(reflect.ValueOf(loop),
		func(entity.Ref) entity.Ref { return replacement },
		func(v reflect.Value) reflect.Value { return v },
	).Interface().(*chain)

	assert.Equal(t, replacement, out.Ref)
	assert.Same(t, out, out.Next)
	assert.NotSame(t, loop, out)
}
