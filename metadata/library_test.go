package metadata_test

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	testutil "github.com/tarantool/go-persist/internal/testing"
	"github.com/tarantool/go-persist/metadata"
)

func TestRegister(t *testing.T) {
	t.Parallel()

	lib := metadata.NewLibrary()

	md, err := metadata.Register[testutil.Position](lib, "test:position")
	require.NoError(t, err)

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()

		again, err := metadata.Register[testutil.Position](lib, "TEST:position")
		require.NoError(t, err)
		assert.Same(t, md, again)
	})

	t.Run("type under other uri", func(t *testing.T) {
		t.Parallel()

		_, err := metadata.Register[testutil.Position](lib, "test:other")
		require.ErrorIs(t, err, metadata.ErrAlreadyRegistered)
	})

	t.Run("uri of other type", func(t *testing.T) {
		t.Parallel()

		_, err := metadata.Register[testutil.Health](lib, "test:position")
		require.ErrorIs(t, err, metadata.ErrAlreadyRegistered)
	})

	t.Run("lookup", func(t *testing.T) {
		t.Parallel()

		byType, ok := lib.Lookup(reflect.TypeFor[testutil.Position]()).Get()
		require.True(t, ok)
		assert.Equal(t, "test:position", byType.URI())

		byURI, ok := lib.LookupURI("Test:Position").Get()
		require.True(t, ok)
		assert.Equal(t, byType, byURI)

		byValue, ok := lib.LookupOf(testutil.Position{}).Get()
		require.True(t, ok)
		assert.Equal(t, byType, byValue)

		typed, ok := metadata.Get[testutil.Position](lib).Get()
		require.True(t, ok)
		assert.Same(t, md, typed)

		assert.True(t, lib.LookupOf(&testutil.Position{}).IsZero())
		assert.True(t, lib.LookupOf(nil).IsZero())
		assert.True(t, metadata.Get[testutil.Lamp](lib).IsZero())
	})
}

func TestRegister_Concurrent(t *testing.T) {
	t.Parallel()

	logger, logs := testutil.ObservedLogger()
	lib := metadata.NewLibrary(metadata.WithLibraryLogger(logger))

	results := make([]*metadata.ComponentMetadata[testutil.Health], 16)

	var wg sync.WaitGroup

	for i := range results {
		wg.Add(1)

		go func() {
			defer wg.Done()

			md, err := metadata.Register[testutil.Health](lib, "test:health")
			assert.NoError(t, err)

			results[i] = md
		}()
	}

	wg.Wait()

	for _, md := range results {
		assert.Same(t, results[0], md)
	}

	assert.Equal(t, 1, logs.FilterMessage("component registered").Len())
}

func TestLibrary_RegisterAll(t *testing.T) {
	t.Parallel()

	lib := metadata.NewLibrary()

	err := lib.RegisterAll(
		metadata.Entry[testutil.Position]("test:position"),
		metadata.Entry[int]("test:int"),
		metadata.Entry[testutil.Lamp]("test:lamp"),
		metadata.Entry[testutil.Health]("bad uri"),
		metadata.Entry[testutil.Inventory]("test:inventory"),
	)
	require.Error(t, err)
	require.ErrorIs(t, err, metadata.ErrNoConstructor)
	require.ErrorIs(t, err, metadata.ErrInvalidURI)
	assert.Len(t, multierr.Errors(err), 2)

	uris := make([]string, 0)
	for _, md := range lib.All() {
		uris = append(uris, md.URI())
	}

	assert.Equal(t, []string{"test:inventory", "test:lamp", "test:position"}, uris)
}

func TestLibrary_SharedCopyStrategies(t *testing.T) {
	t.Parallel()

	lib := metadata.NewLibrary()

	md, err := metadata.Register[testutil.Position](lib, "test:position")
	require.NoError(t, err)

	field, ok := md.Field("X").Get()
	require.True(t, ok)
	assert.NotNil(t, lib.CopyStrategies())

	in := reflect.ValueOf(testutil.Position{X: 2})
	assert.InDelta(t, 2.0, field.CopyOfValue(in).Float(), 0)
}
