package codec //nolint:testpackage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalError(t *testing.T) {
	t.Parallel()

	parentErr := errors.New("encoder failure")

	err := errMarshal(parentErr)
	require.Error(t, err)
	assert.Equal(t, "Failed to marshal: encoder failure", err.Error())

	var marshalErr MarshalError
	require.ErrorAs(t, err, &marshalErr)
	assert.Equal(t, parentErr, marshalErr.Unwrap())

	require.NoError(t, errMarshal(nil))
}

func TestUnmarshalError(t *testing.T) {
	t.Parallel()

	err := errUnmarshal(ErrNoValue)
	require.Error(t, err)
	assert.Equal(t, "Failed to unmarshal: no value", err.Error())
	require.ErrorIs(t, err, ErrNoValue)

	var unmarshalErr UnmarshalError
	require.ErrorAs(t, err, &unmarshalErr)

	require.NoError(t, errUnmarshal(nil))
}
