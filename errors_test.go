package packlib

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapNilReturnsNil(t *testing.T) {
	require.NoError(t, wrap(KindIO, "Open", nil))
}

func TestWrapUnwrapsToSentinel(t *testing.T) {
	err := wrap(KindFormat, "detectRevision", ErrBadMagic)
	require.True(t, errors.Is(err, ErrBadMagic))

	var packErr *Error
	require.True(t, errors.As(err, &packErr))
	require.Equal(t, KindFormat, packErr.Kind)
	require.Equal(t, "detectRevision", packErr.Op)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "io", KindIO.String())
	require.Equal(t, "format", KindFormat.String())
	require.Equal(t, "unknown", Kind(999).String())
}
