package typeinfo_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarantool/go-persist/typeinfo"
)

type point struct {
	X, Y int
}

func TestOf_StructuralEquality(t *testing.T) {
	t.Parallel()

	assert.Equal(t, typeinfo.Of[[]point](), typeinfo.Of[[]point]())
	assert.Equal(t, typeinfo.Of[map[string]int](), typeinfo.FromType(reflect.TypeOf(map[string]int{})))
	assert.NotEqual(t, typeinfo.Of[[]point](), typeinfo.Of[[]*point]())
	assert.NotEqual(t, typeinfo.Of[map[string]int](), typeinfo.Of[map[string]int64]())

	seen := map[typeinfo.Descriptor]int{typeinfo.Of[[]point](): 1}
	assert.Equal(t, 1, seen[typeinfo.Of[[]point]()])
}

func TestDescriptor_Interface(t *testing.T) {
	t.Parallel()

	desc := typeinfo.Of[any]()
	assert.Equal(t, reflect.Interface, desc.Kind())
	assert.Equal(t, reflect.Int, typeinfo.TypeOf(1).Kind())
}

func TestDescriptor_Parameters(t *testing.T) {
	t.Parallel()

	t.Run("map", func(t *testing.T) {
		t.Parallel()

		params := typeinfo.Of[map[string]point]().Parameters()
		require.Len(t, params, 2)
		assert.Equal(t, typeinfo.Of[string](), params[0])
		assert.Equal(t, typeinfo.Of[point](), params[1])
	})

	t.Run("slice", func(t *testing.T) {
		t.Parallel()

		params := typeinfo.Of[[]point]().Parameters()
		require.Len(t, params, 1)
		assert.Equal(t, typeinfo.Of[point](), params[0])
	})

	t.Run("scalar", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, typeinfo.Of[int]().Parameters())
		assert.True(t, typeinfo.Of[int]().Elem().IsZero())
		assert.True(t, typeinfo.Of[[]int]().Key().IsZero())
	})
}

func TestDescriptor_Zero(t *testing.T) {
	t.Parallel()

	var desc typeinfo.Descriptor

	assert.True(t, desc.IsZero())
	assert.Equal(t, reflect.Invalid, desc.Kind())
	assert.Equal(t, "<nil>", desc.String())
	assert.False(t, desc.Implements(reflect.TypeFor[error]()))
}
