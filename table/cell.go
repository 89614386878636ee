// Package table implements the DB and Loc tabular payload codec (spec §3,
// §4.E): decoding/encoding a table's rows against a schema.Definition, plus
// the recursive SequenceU32 sub-table cell used by animation-fragment
// payloads. Grounded on saferwall-pe's richheader.go cell-by-cell
// binary.LittleEndian.Uint32 + length-prefixed-string reassembly,
// generalized to the full cell-type switch spec §4.E describes.
package table

import (
	"fmt"

	"github.com/modkit/packlib/schema"
)

// Cell is the algebraic sum type spec §9 calls for: one variant recursively
// contains the same Row type (SequenceU32), matching the original's
// heterogeneous cell variant that carries sub-tables.
type Cell struct {
	kind cellKind

	b   bool
	f   float32
	i32 int32
	i64 int64
	s   string
	// present distinguishes a null OptionalString*-typed cell from an
	// empty-but-present one.
	present bool
	seq     []Row
}

type cellKind int

const (
	kindBool cellKind = iota
	kindF32
	kindI32
	kindI64
	kindStringU8
	kindStringU16
	kindOptionalStringU8
	kindOptionalStringU16
	kindSequenceU32
)

// Constructors. Each matches one schema.FieldType plus the SequenceU32
// extension named in spec §3/§9.

func BoolCell(v bool) Cell          { return Cell{kind: kindBool, b: v} }
func F32Cell(v float32) Cell        { return Cell{kind: kindF32, f: v} }
func I32Cell(v int32) Cell          { return Cell{kind: kindI32, i32: v} }
func I64Cell(v int64) Cell          { return Cell{kind: kindI64, i64: v} }
func StringU8Cell(v string) Cell    { return Cell{kind: kindStringU8, s: v} }
func StringU16Cell(v string) Cell   { return Cell{kind: kindStringU16, s: v} }
func OptionalStringU8Cell(v string, present bool) Cell {
	return Cell{kind: kindOptionalStringU8, s: v, present: present}
}
func OptionalStringU16Cell(v string, present bool) Cell {
	return Cell{kind: kindOptionalStringU16, s: v, present: present}
}
func SequenceCell(rows []Row) Cell { return Cell{kind: kindSequenceU32, seq: rows} }

// Bool, F32, I32, I64, String, Present and Sequence read back a Cell's
// value; callers are expected to know the field type from the Definition
// (mirroring how the original indexes a row by column position, not by
// runtime type probing).
func (c Cell) Bool() bool       { return c.b }
func (c Cell) F32() float32     { return c.f }
func (c Cell) I32() int32       { return c.i32 }
func (c Cell) I64() int64       { return c.i64 }
func (c Cell) String() string   { return c.s }
func (c Cell) Present() bool    { return c.present }
func (c Cell) Sequence() []Row  { return c.seq }

// IsEmpty reports whether a cell counts as "blank" for the diagnostics
// engine's EmptyRow/EmptyKeyField checks (spec §4.H): an OptionalStringU8/
// U16 cell with present=false, a zero-length string, a false bool, or a
// zero number.
func (c Cell) IsEmpty() bool {
	switch c.kind {
	case kindBool:
		return !c.b
	case kindF32:
		return c.f == 0
	case kindI32:
		return c.i32 == 0
	case kindI64:
		return c.i64 == 0
	case kindStringU8, kindStringU16:
		return c.s == ""
	case kindOptionalStringU8, kindOptionalStringU16:
		return !c.present || c.s == ""
	case kindSequenceU32:
		return len(c.seq) == 0
	default:
		return true
	}
}

// AsKeyToken renders a cell for combined-key comparison purposes: the
// string value for string-typed cells, a decimal rendering otherwise, with
// a numeric "0" collapsed to "" per spec §4.H InvalidReference's "numeric
// 0 treated as empty" rule (reused here so a zero-valued numeric key
// doesn't spuriously collide with a present key of a different row).
func (c Cell) AsKeyToken() string {
	switch c.kind {
	case kindBool:
		if c.b {
			return "1"
		}
		return ""
	case kindF32:
		if c.f == 0 {
			return ""
		}
		return fmt.Sprintf("%g", c.f)
	case kindI32:
		if c.i32 == 0 {
			return ""
		}
		return fmt.Sprintf("%d", c.i32)
	case kindI64:
		if c.i64 == 0 {
			return ""
		}
		return fmt.Sprintf("%d", c.i64)
	default:
		return c.s
	}
}

// Row is an ordered list of cells matching a Definition's field count (spec
// §3).
type Row []Cell

func cellKindFor(t schema.FieldType) cellKind {
	switch t {
	case schema.Bool:
		return kindBool
	case schema.F32:
		return kindF32
	case schema.I32:
		return kindI32
	case schema.I64:
		return kindI64
	case schema.StringU8:
		return kindStringU8
	case schema.StringU16:
		return kindStringU16
	case schema.OptionalStringU8:
		return kindOptionalStringU8
	case schema.OptionalStringU16:
		return kindOptionalStringU16
	default:
		return kindStringU8
	}
}
