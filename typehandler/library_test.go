package typehandler_test

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tarantool/go-option"

	"github.com/tarantool/go-persist/enum"
	testutil "github.com/tarantool/go-persist/internal/testing"
	"github.com/tarantool/go-persist/persisted"
	"github.com/tarantool/go-persist/typehandler"
	"github.com/tarantool/go-persist/typehandler/coretypes/factories"
	"github.com/tarantool/go-persist/typeinfo"
)

type node struct {
	Value int
	Next  *node
}

func constHandler(s string) typehandler.TypeHandler[any] {
	return typehandler.Func(
		func(_ any, serializer persisted.Serializer) persisted.Data { return serializer.String(s) },
		func(persisted.Data) option.Generic[any] { return option.Some[any](s) },
	)
}

func kindFactory(kind reflect.Kind, h typehandler.TypeHandler[any]) typehandler.Factory {
	return typehandler.FactoryFunc(
		func(desc typeinfo.Descriptor, _ typehandler.Context) option.Generic[typehandler.TypeHandler[any]] {
			if desc.Kind() != kind {
				return option.None[typehandler.TypeHandler[any]]()
			}

			return option.Some(h)
		},
	)
}

func TestLibrary_FirstFactoryWins(t *testing.T) {
	t.Parallel()

	serializer := persisted.NewSerializer()

	lib := typehandler.NewBuilder().
		WithFactory(kindFactory(reflect.Int, constHandler("first"))).
		WithFactory(kindFactory(reflect.Int, constHandler("second"))).
		Build()

	h, ok := lib.Resolve(typeinfo.Of[int]()).Get()
	require.True(t, ok)

	s, _ := h.Serialize(1, serializer).AsString()
	assert.Equal(t, "first", s)
}

func TestLibrary_HandlerBeforeFactories(t *testing.T) {
	t.Parallel()

	serializer := persisted.NewSerializer()

	builder := typehandler.NewBuilder().
		WithFactory(kindFactory(reflect.Int, constHandler("factory")))
	builder = typehandler.AddHandler(builder, intHandler())

	h, ok := typehandler.Lookup[int](builder.Build()).Get()
	require.True(t, ok)

	v, _ := h.Serialize(5, serializer).AsInt()
	assert.Equal(t, int64(5), v)
}

func TestLibrary_FactoryOrder(t *testing.T) {
	t.Parallel()

	first, second, third := &testutil.MockFactory{}, &testutil.MockFactory{}, &testutil.MockFactory{}

	mock.InOrder(
		first.On("Create", typeinfo.Of[int](), mock.Anything).Return(testutil.Declined()).Once(),
		second.On("Create", typeinfo.Of[int](), mock.Anything).Return(testutil.Handled(constHandler("second"))).Once(),
	)

	lib := typehandler.NewBuilder().WithFactory(first, second, third).Build()

	h, ok := lib.Resolve(typeinfo.Of[int]()).Get()
	require.True(t, ok)

	s, _ := h.Serialize(1, persisted.NewSerializer()).AsString()
	assert.Equal(t, "second", s)

	first.AssertExpectations(t)
	second.AssertExpectations(t)
	third.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLibrary_Caches(t *testing.T) {
	t.Parallel()

	factory := &testutil.MockFactory{}
	factory.On("Create", typeinfo.Of[string](), mock.Anything).Return(testutil.Handled(constHandler("s")))

	lib := typehandler.NewBuilder().WithFactory(factory).Build()

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			assert.True(t, lib.Resolve(typeinfo.Of[string]()).IsSome())
		}()
	}

	wg.Wait()

	calls := len(factory.Calls)
	assert.GreaterOrEqual(t, calls, 1)

	lib.Resolve(typeinfo.Of[string]())
	factory.AssertNumberOfCalls(t, "Create", calls)
}

func TestLibrary_Miss(t *testing.T) {
	t.Parallel()

	logger, logs := testutil.ObservedLogger()

	factory := &testutil.MockFactory{}
	factory.On("Create", typeinfo.Of[chan int](), mock.Anything).Return(testutil.Declined()).Once()

	lib := typehandler.NewBuilder().
		WithFactory(factory).
		WithLogger(logger).
		Build()

	assert.True(t, lib.Resolve(typeinfo.Of[chan int]()).IsZero())
	assert.True(t, lib.Resolve(typeinfo.Of[chan int]()).IsZero())
	factory.AssertExpectations(t)

	warnings := logs.FilterMessage("no type handler found").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "chan int", warnings[0].ContextMap()["type"])

	assert.True(t, lib.Resolve(typeinfo.Descriptor{}).IsZero())
	factory.AssertNumberOfCalls(t, "Create", 1)
}

func TestLibrary_Serialize(t *testing.T) {
	t.Parallel()

	serializer := persisted.NewSerializer()
	lib := typehandler.NewBuilder().WithFactory(factories.Default(enum.NewCatalog())...).Build()

	data, ok := lib.Serialize([]int{1, 2}, serializer)
	require.True(t, ok)
	assert.True(t, data.IsArray())

	data, ok = lib.Serialize(nil, serializer)
	require.True(t, ok)
	assert.True(t, data.IsNull())

	_, ok = lib.Serialize(make(chan int), serializer)
	assert.False(t, ok)
}

func TestLibrary_RecursiveType(t *testing.T) {
	t.Parallel()

	serializer := persisted.NewSerializer()
	lib := typehandler.NewBuilder().WithFactory(factories.Default(enum.NewCatalog())...).Build()

	h, ok := typehandler.Lookup[node](lib).Get()
	require.True(t, ok)

	in := node{Value: 1, Next: &node{Value: 2, Next: nil}}
	data := h.Serialize(in, serializer)

	vm, ok := data.AsValueMap()
	require.True(t, ok)
	assert.Equal(t, []string{"Next", "Value"}, vm.Keys())

	out, ok := h.Deserialize(data).Get()
	require.True(t, ok)
	assert.Equal(t, in, out)

	// The pointer handler built during resolution is cached as well.
	assert.True(t, lib.Resolve(typeinfo.Of[*node]()).IsSome())
}

func TestLibrary_UnresolvableElement(t *testing.T) {
	t.Parallel()

	type holder struct {
		Items []chan int
	}

	lib := typehandler.NewBuilder().
		WithFactory(factories.NewArrayFactory()).
		Build()

	assert.True(t, lib.Resolve(typeinfo.Of[[]chan int]()).IsZero())
	assert.True(t, lib.Resolve(typeinfo.Of[holder]()).IsZero())
}

func TestBuilder_Immutable(t *testing.T) {
	t.Parallel()

	base := typehandler.NewBuilder()
	extended := base.WithFactory(kindFactory(reflect.Int, constHandler("x")))

	assert.True(t, base.Build().Resolve(typeinfo.Of[int]()).IsZero())
	assert.True(t, extended.Build().Resolve(typeinfo.Of[int]()).IsSome())

	var zero typehandler.Builder

	assert.NotNil(t, zero.Build().Logger())
}
