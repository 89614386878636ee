package table

import (
	"fmt"

	"github.com/modkit/packlib/schema"
)

// DecodeSequence decodes a SequenceU32 cell's inner table: a u32 row count
// followed by that many rows of inner, used by animation-fragment payloads
// where one column hosts an inlined table (spec §3, §4.E, and the
// supplemented animation-fragment feature in SPEC_FULL.md §D). The cursor
// is threaded through so a sequence nested inside another sequence (an
// animation fragment's outer row containing an inner SequenceU32 column)
// decodes with the same recursive call, mirroring resource.go's recursive
// ResourceDirectory tree-walk.
func decodeSequence(c *cursor, inner schema.Definition) ([]Row, error) {
	count, err := c.u32()
	if err != nil {
		return nil, fmt.Errorf("sequence row count: %w", ErrTruncated)
	}
	rows := make([]Row, 0, count)
	for i := uint32(0); i < count; i++ {
		row, err := decodeRowWithSequences(c, inner.Fields)
		if err != nil {
			return nil, fmt.Errorf("sequence row %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func encodeSequence(w *writer, inner schema.Definition, rows []Row) error {
	w.putU32(uint32(len(rows)))
	for i, row := range rows {
		if len(row) != len(inner.Fields) {
			return fmt.Errorf("sequence row %d: %w", i, ErrFieldCountMismatch)
		}
		if err := encodeRowWithSequences(w, inner.Fields, row); err != nil {
			return fmt.Errorf("sequence row %d: %w", i, err)
		}
	}
	return nil
}

// decodeRowWithSequences is decodeRow's counterpart for field lists that may
// contain a nested table: a field whose name is registered in
// nestedDefinitions (via RegisterNestedField) is decoded as a SequenceU32
// sub-table.
// Plain DB/Loc payloads never nest, so DecodeDB/DecodeLoc call the simpler
// decodeRow directly; this variant exists for the anim-fragment path.
func decodeRowWithSequences(c *cursor, fields []schema.Field) (Row, error) {
	row := make(Row, len(fields))
	for i, f := range fields {
		if nested, ok := nestedDefinitions[f.Name]; ok {
			rows, err := decodeSequence(c, nested)
			if err != nil {
				return nil, err
			}
			row[i] = SequenceCell(rows)
			continue
		}
		cell, err := decodeCell(c, f)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		row[i] = cell
	}
	return row, nil
}

func encodeRowWithSequences(w *writer, fields []schema.Field, row Row) error {
	for i, f := range fields {
		if nested, ok := nestedDefinitions[f.Name]; ok {
			if err := encodeSequence(w, nested, row[i].Sequence()); err != nil {
				return err
			}
			continue
		}
		if err := encodeCell(w, f, row[i]); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	}
	return nil
}

// nestedDefinitions registers, by field name, which fields carry a
// SequenceU32 sub-table rather than a plain cell. Animation-fragment
// payloads are the only known user of this (spec §9); callers register the
// inner shape once via RegisterNestedField.
var nestedDefinitions = map[string]schema.Definition{}

// RegisterNestedField declares that any field named fieldName should be
// decoded/encoded as a SequenceU32 sub-table of shape inner, rather than a
// scalar cell.
func RegisterNestedField(fieldName string, inner schema.Definition) {
	nestedDefinitions[fieldName] = inner
}
