package serialization_test

import (
	"encoding/binary"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarantool/go-option"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tarantool/go-persist/entity"
	"github.com/tarantool/go-persist/enum"
	"github.com/tarantool/go-persist/hasher"
	testutil "github.com/tarantool/go-persist/internal/testing"
	"github.com/tarantool/go-persist/metadata"
	"github.com/tarantool/go-persist/persisted"
	"github.com/tarantool/go-persist/serialization"
	"github.com/tarantool/go-persist/typehandler"
	"github.com/tarantool/go-persist/typehandler/coretypes/factories"
	"github.com/tarantool/go-persist/typeinfo"
)

// signal mixes an enum field with one no handler can serve.
type signal struct {
	Mode   metadata.ReplicationType
	Events chan int
	Rider  *entity.Ref
}

type fixture struct {
	serializer *serialization.ComponentSerializer
	logs       *observer.ObservedLogs
	logger     *zap.Logger
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	lib := metadata.NewLibrary()
	require.NoError(t, lib.RegisterAll(
		metadata.Entry[testutil.Position]("test:position"),
		metadata.Entry[testutil.Health]("test:health"),
		metadata.Entry[*testutil.Inventory]("test:inventory"),
		metadata.Entry[signal]("test:signal"),
	))

	logger, logs := testutil.ObservedLogger()
	handlers := serialization.DefaultHandlers(enum.NewCatalog(metadata.ReplicationTypes), logger)

	return fixture{
		serializer: serialization.NewComponentSerializer(lib, handlers, serialization.WithLogger(logger)),
		logs:       logs,
		logger:     logger,
	}
}

func fieldsOf(t *testing.T, data persisted.Data) persisted.ValueMap {
	t.Helper()

	vm, ok := data.AsValueMap()
	require.True(t, ok)

	return vm
}

func TestSerialize_PersistedNames(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	data, err := f.serializer.Serialize(testutil.Health{Current: 3, Max: 10})
	require.NoError(t, err)

	vm := fieldsOf(t, data)
	assert.Equal(t, []string{"Current", "max"}, vm.Keys())

	current, _ := vm.Get("Current")
	value, ok := current.AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(3), value)
}

func TestSerialize_RoundTrip(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	in := &testutil.Inventory{
		Items:    []entity.Ref{entity.New(), entity.New()},
		Selected: 1,
		Labels:   map[string]string{"slot": "left"},
		Viewer:   entity.New(),
	}

	data, err := f.serializer.Serialize(in)
	require.NoError(t, err)

	items, ok := fieldsOf(t, data).Get("Items")
	require.True(t, ok)

	arr, ok := items.AsArray()
	require.True(t, ok)

	first, ok := arr.At(0).AsString()
	require.True(t, ok)
	assert.Equal(t, in.Items[0].String(), first)

	out, err := f.serializer.Deserialize("test:inventory", data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSerialize_EnumAndNil(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	data, err := f.serializer.Serialize(signal{Mode: metadata.OwnerToServer, Events: make(chan int)})
	require.NoError(t, err)

	vm := fieldsOf(t, data)
	assert.Equal(t, []string{"Mode"}, vm.Keys())

	mode, _ := vm.Get("Mode")
	assert.Equal(t, persisted.KindString, mode.Kind())

	assert.Equal(t, 1, f.logs.FilterMessage("no type handler for field, skipping").
		FilterField(zap.String("field", "Events")).Len())

	out, err := f.serializer.Deserialize("TEST:signal", data)
	require.NoError(t, err)
	assert.Equal(t, signal{Mode: metadata.OwnerToServer}, out)

	rider := entity.New()

	data, err = f.serializer.Serialize(signal{Rider: &rider})
	require.NoError(t, err)

	out, err = f.serializer.Deserialize("test:signal", data)
	require.NoError(t, err)

	typed, ok := out.(signal)
	require.True(t, ok)
	require.NotNil(t, typed.Rider)
	assert.Equal(t, rider, *typed.Rider)
}

func TestSerialize_Errors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.serializer.Serialize(testutil.Lamp{})
	require.ErrorIs(t, err, serialization.ErrUnknownComponent)

	_, err = f.serializer.Serialize((*testutil.Inventory)(nil))
	require.ErrorIs(t, err, serialization.ErrNilComponent)

	_, err = f.serializer.Deserialize("test:lamp", persisted.Null())
	require.ErrorIs(t, err, serialization.ErrUnknownComponent)

	_, err = f.serializer.Deserialize("test:health", persisted.NewSerializer().String("x"))
	require.ErrorIs(t, err, serialization.ErrNotValueMap)
}

func TestDeserialize_SkipsFailedFields(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	s := persisted.NewSerializer()

	out, err := f.serializer.Deserialize("test:health", s.ValueMap(map[string]persisted.Data{
		"Current": s.String("lots"),
		"max":     s.Int(5),
		"unknown": s.Bool(true),
	}))
	require.NoError(t, err)
	assert.Equal(t, testutil.Health{Max: 5}, out)

	assert.Equal(t, 1, f.logs.FilterMessage("cannot deserialize field, skipping").Len())
}

type grid struct {
	Small int8
	Cells [4]int
	Name  string
}

func fixedHandler(value any) typehandler.TypeHandler[any] {
	return typehandler.Func(
		func(_ any, serializer persisted.Serializer) persisted.Data { return serializer.Null() },
		func(persisted.Data) option.Generic[any] { return option.Some(value) },
	)
}

func TestDeserialize_SkipsMismatchedValues(t *testing.T) {
	t.Parallel()

	lib := metadata.NewLibrary()
	require.NoError(t, lib.RegisterAll(metadata.Entry[grid]("test:grid")))

	handlers := typehandler.NewBuilder().
		WithHandler(typeinfo.Of[int8](), fixedHandler(300)).
		WithHandler(typeinfo.Of[[4]int](), fixedHandler([]int{1})).
		WithFactory(factories.Default(nil)...).
		Build()

	logger, logs := testutil.ObservedLogger()
	serializer := serialization.NewComponentSerializer(lib, handlers, serialization.WithLogger(logger))
	s := persisted.NewSerializer()

	var (
		out any
		err error
	)

	require.NotPanics(t, func() {
		out, err = serializer.Deserialize("test:grid", s.ValueMap(map[string]persisted.Data{
			"Small": s.Int(1),
			"Cells": s.Array([]persisted.Data{s.Int(1)}),
			"Name":  s.String("g"),
		}))
	})
	require.NoError(t, err)
	assert.Equal(t, grid{Name: "g"}, out)

	skipped := logs.FilterMessage("cannot deserialize field, skipping").All()
	require.Len(t, skipped, 2)
	assert.Equal(t, "int", skipped[0].ContextMap()["valueType"])
	assert.Equal(t, "[]int", skipped[1].ContextMap()["valueType"])
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	labels := map[string]string{}
	for _, key := range []string{"c", "a", "b"} {
		labels[key] = key
	}

	first, err := f.serializer.Fingerprint(&testutil.Inventory{Labels: labels, Selected: 2})
	require.NoError(t, err)

	second, err := f.serializer.Fingerprint(&testutil.Inventory{
		Labels:   map[string]string{"a": "a", "b": "b", "c": "c"},
		Selected: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	third, err := f.serializer.Fingerprint(&testutil.Inventory{Labels: labels, Selected: 3})
	require.NoError(t, err)
	assert.NotEqual(t, first, third)

	_, err = f.serializer.Fingerprint(testutil.Lamp{})
	require.ErrorIs(t, err, serialization.ErrUnknownComponent)
}

func TestSerialize_Concurrent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	in := testutil.Position{X: 1, Y: 2, Z: 3}

	for i := range 8 {
		t.Run("worker-"+strconv.Itoa(i), func(t *testing.T) {
			t.Parallel()

			data, err := f.serializer.Serialize(in)
			require.NoError(t, err)

			out, err := f.serializer.Deserialize("test:position", data)
			require.NoError(t, err)
			assert.Equal(t, in, out)
		})
	}
}

func TestDigest(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	sum, err := f.serializer.Digest(testutil.Position{X: 1})
	require.NoError(t, err)
	assert.Len(t, sum, 32)

	again, err := f.serializer.Digest(testutil.Position{X: 1})
	require.NoError(t, err)
	assert.Equal(t, sum, again)

	short := serialization.NewComponentSerializer(
		f.serializer.Components(),
		serialization.DefaultHandlers(nil, nil),
		serialization.WithHasher(hasher.NewXXHash64()),
	)

	sum, err = short.Digest(testutil.Position{X: 1})
	require.NoError(t, err)
	require.Len(t, sum, 8)

	fingerprint, err := short.Fingerprint(testutil.Position{X: 1})
	require.NoError(t, err)
	assert.Equal(t, binary.BigEndian.Uint64(sum), fingerprint)
}
