package table

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCellIsEmpty(t *testing.T) {
	require.True(t, BoolCell(false).IsEmpty())
	require.False(t, BoolCell(true).IsEmpty())
	require.True(t, I32Cell(0).IsEmpty())
	require.False(t, I32Cell(1).IsEmpty())
	require.True(t, StringU8Cell("").IsEmpty())
	require.False(t, StringU8Cell("x").IsEmpty())
	require.True(t, OptionalStringU8Cell("", false).IsEmpty())
	require.True(t, OptionalStringU8Cell("x", false).IsEmpty())
	require.False(t, OptionalStringU8Cell("x", true).IsEmpty())
	require.True(t, SequenceCell(nil).IsEmpty())
	require.False(t, SequenceCell([]Row{{BoolCell(true)}}).IsEmpty())
}

func TestCellAsKeyTokenTreatsZeroAsEmpty(t *testing.T) {
	require.Equal(t, "", I32Cell(0).AsKeyToken())
	require.Equal(t, "5", I32Cell(5).AsKeyToken())
	require.Equal(t, "", I64Cell(0).AsKeyToken())
	require.Equal(t, "", F32Cell(0).AsKeyToken())
	require.Equal(t, "1", BoolCell(true).AsKeyToken())
	require.Equal(t, "", BoolCell(false).AsKeyToken())
	require.Equal(t, "name", StringU8Cell("name").AsKeyToken())
}
