package table

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modkit/packlib/schema"
)

func TestSequenceRoundTrip(t *testing.T) {
	inner := schema.Definition{
		Table: "anim_fragment_frame",
		Fields: []schema.Field{
			{Name: "bone", Type: schema.StringU8},
			{Name: "time", Type: schema.F32},
		},
	}
	RegisterNestedField("frames", inner)
	t.Cleanup(func() { delete(nestedDefinitions, "frames") })

	outer := []schema.Field{
		{Name: "fragment_name", Type: schema.StringU8},
		{Name: "frames", Type: schema.I32}, // type unused once nested-registered
	}

	row := Row{
		StringU8Cell("walk"),
		SequenceCell([]Row{
			{StringU8Cell("root"), F32Cell(0)},
			{StringU8Cell("spine"), F32Cell(0.5)},
		}),
	}

	w := &writer{}
	require.NoError(t, encodeRowWithSequences(w, outer, row))

	c := &cursor{buf: w.bytes()}
	decoded, err := decodeRowWithSequences(c, outer)
	require.NoError(t, err)

	require.Equal(t, "walk", decoded[0].String())
	frames := decoded[1].Sequence()
	require.Len(t, frames, 2)
	require.Equal(t, "root", frames[0][0].String())
	require.InDelta(t, 0.5, frames[1][1].F32(), 1e-6)
}

func TestNestedSequenceInsideSequence(t *testing.T) {
	leaf := schema.Definition{
		Table:  "leaf",
		Fields: []schema.Field{{Name: "value", Type: schema.I32}},
	}
	RegisterNestedField("children", leaf)
	t.Cleanup(func() { delete(nestedDefinitions, "children") })

	branch := schema.Definition{
		Table: "branch",
		Fields: []schema.Field{
			{Name: "name", Type: schema.StringU8},
			{Name: "children", Type: schema.I32},
		},
	}
	RegisterNestedField("branches", branch)
	t.Cleanup(func() { delete(nestedDefinitions, "branches") })

	root := []schema.Field{{Name: "branches", Type: schema.I32}}
	row := Row{
		SequenceCell([]Row{
			{
				StringU8Cell("a"),
				SequenceCell([]Row{{I32Cell(1)}, {I32Cell(2)}}),
			},
		}),
	}

	w := &writer{}
	require.NoError(t, encodeRowWithSequences(w, root, row))

	c := &cursor{buf: w.bytes()}
	decoded, err := decodeRowWithSequences(c, root)
	require.NoError(t, err)

	branches := decoded[0].Sequence()
	require.Len(t, branches, 1)
	require.Equal(t, "a", branches[0][0].String())
	require.Len(t, branches[0][1].Sequence(), 2)
}
