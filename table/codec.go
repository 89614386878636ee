package table

import (
	"errors"
	"fmt"

	"github.com/modkit/packlib/schema"
)

// dbMarker is the fixed u32 magic preceding a DB payload's version, per
// spec §4.E: "[u32 0xFC_FD_FE_FF marker, u32 version]".
const dbMarker uint32 = 0xFCFDFEFF

// locMagic/locVersion are the fixed values spec §4.E's Loc payload layout
// opens with.
const locMagic uint32 = 0xFCFDFEFF
const locVersion int32 = 1

var (
	// ErrUnknownVersion is returned when a DB payload declares a version
	// absent from the supplied schema.Schema (spec §4.E "Unknown versions
	// fail").
	ErrUnknownVersion = errors.New("unknown table definition version")
	// ErrFieldCountMismatch is returned when a row's length disagrees with
	// the definition's field count (spec §3 invariant).
	ErrFieldCountMismatch = errors.New("row length does not match field count")
	ErrTruncated          = errors.New("truncated table payload")
)

// Payload is a decoded DB or Loc table (spec §3).
type Payload struct {
	Table   string
	Version int32
	GUID    string
	Rows    []Row
}

// DecodeDB decodes a DB table payload against def. The optional leading
// u16-prefixed GUID string is detected the way the original does, by probing
// whether the four bytes after a would-be GUID equal dbMarker; DecodeDB does
// that probe itself so callers don't need to know in advance.
func DecodeDB(table string, def schema.Definition, buf []byte) (Payload, error) {
	c := &cursor{buf: buf}

	guid, err := probeGUID(c)
	if err != nil {
		return Payload{}, fmt.Errorf("table: DecodeDB: %w", err)
	}

	marker, err := c.u32()
	if err != nil {
		return Payload{}, fmt.Errorf("table: DecodeDB: %w", ErrTruncated)
	}
	if marker != dbMarker {
		return Payload{}, fmt.Errorf("table: DecodeDB: bad marker 0x%X", marker)
	}
	version, err := c.i32()
	if err != nil {
		return Payload{}, fmt.Errorf("table: DecodeDB: %w", ErrTruncated)
	}
	if version != def.Version {
		return Payload{}, fmt.Errorf("table: DecodeDB table=%s version=%d: %w", table, version, ErrUnknownVersion)
	}
	if _, err := c.u8(); err != nil { // "mysterious" flag, spec §4.E
		return Payload{}, fmt.Errorf("table: DecodeDB: %w", ErrTruncated)
	}
	rowCount, err := c.u32()
	if err != nil {
		return Payload{}, fmt.Errorf("table: DecodeDB: %w", ErrTruncated)
	}

	rows := make([]Row, 0, rowCount)
	for i := uint32(0); i < rowCount; i++ {
		row, err := decodeRow(c, def.Fields)
		if err != nil {
			return Payload{}, fmt.Errorf("table: DecodeDB row %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return Payload{Table: table, Version: version, GUID: guid, Rows: rows}, nil
}

// PeekDBVersion reads just enough of buf to report the version a DB payload
// declares, without requiring a schema.Definition up front. Used by callers
// (the dependency index's pre-decode pass) that must look up the matching
// Definition before a full DecodeDB call.
func PeekDBVersion(buf []byte) (int32, error) {
	c := &cursor{buf: buf}
	if _, err := probeGUID(c); err != nil {
		return 0, err
	}
	marker, err := c.u32()
	if err != nil {
		return 0, fmt.Errorf("table: PeekDBVersion: %w", ErrTruncated)
	}
	if marker != dbMarker {
		return 0, fmt.Errorf("table: PeekDBVersion: bad marker 0x%X", marker)
	}
	return c.i32()
}

// probeGUID reads an optional leading u16-prefixed GUID string: if the four
// bytes right after would-be GUID bytes match dbMarker, the GUID is returned
// and the cursor left just past it; otherwise there was no GUID and the
// cursor is rewound.
func probeGUID(c *cursor) (string, error) {
	start := c.off
	n, err := c.u16()
	if err != nil {
		c.off = start
		return "", nil
	}
	// A marker can never itself look like a valid string length followed
	// by the marker bytes in the non-GUID case because dbMarker's low
	// 16 bits (0xFEFF) would have to match a plausible ASCII GUID length;
	// guard by requiring the declared length to be a sane GUID size.
	if n == 0 || n > 64 {
		c.off = start
		return "", nil
	}
	guidBytes, err := c.bytes(int(n))
	if err != nil {
		c.off = start
		return "", nil
	}
	// Peek the marker; if absent, this wasn't a GUID after all.
	save := c.off
	marker, err := c.u32()
	c.off = save
	if err != nil || marker != dbMarker {
		c.off = start
		return "", nil
	}
	return string(guidBytes), nil
}

func decodeRow(c *cursor, fields []schema.Field) (Row, error) {
	row := make(Row, len(fields))
	for i, f := range fields {
		cell, err := decodeCell(c, f)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		row[i] = cell
	}
	return row, nil
}

func decodeCell(c *cursor, f schema.Field) (Cell, error) {
	switch f.Type {
	case schema.Bool:
		v, err := c.bool()
		return BoolCell(v), err
	case schema.F32:
		v, err := c.f32()
		return F32Cell(v), err
	case schema.I32:
		v, err := c.i32()
		return I32Cell(v), err
	case schema.I64:
		v, err := c.i64()
		return I64Cell(v), err
	case schema.StringU8:
		v, err := c.stringU8()
		return StringU8Cell(v), err
	case schema.StringU16:
		v, err := c.stringU16()
		return StringU16Cell(v), err
	case schema.OptionalStringU8:
		present, err := c.bool()
		if err != nil {
			return Cell{}, err
		}
		v, err := c.stringU8()
		return OptionalStringU8Cell(v, present), err
	case schema.OptionalStringU16:
		present, err := c.bool()
		if err != nil {
			return Cell{}, err
		}
		v, err := c.stringU16()
		return OptionalStringU16Cell(v, present), err
	default:
		return Cell{}, fmt.Errorf("unsupported field type %v", f.Type)
	}
}

// EncodeDB is the inverse of DecodeDB. Returns ErrFieldCountMismatch if any
// row's length disagrees with def.Fields.
func EncodeDB(def schema.Definition, p Payload) ([]byte, error) {
	w := &writer{}
	if p.GUID != "" {
		if err := w.putStringU8(p.GUID); err != nil {
			return nil, err
		}
	}
	w.putU32(dbMarker)
	w.putI32(def.Version)
	w.putU8(0) // "mysterious" flag
	w.putU32(uint32(len(p.Rows)))
	for i, row := range p.Rows {
		if len(row) != len(def.Fields) {
			return nil, fmt.Errorf("row %d: %w", i, ErrFieldCountMismatch)
		}
		if err := encodeRow(w, def.Fields, row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return w.bytes(), nil
}

func encodeRow(w *writer, fields []schema.Field, row Row) error {
	for i, f := range fields {
		if err := encodeCell(w, f, row[i]); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	}
	return nil
}

func encodeCell(w *writer, f schema.Field, cell Cell) error {
	switch f.Type {
	case schema.Bool:
		w.putBool(cell.Bool())
	case schema.F32:
		w.putF32(cell.F32())
	case schema.I32:
		w.putI32(cell.I32())
	case schema.I64:
		w.putI64(cell.I64())
	case schema.StringU8:
		return w.putStringU8(cell.String())
	case schema.StringU16:
		return w.putStringU16(cell.String())
	case schema.OptionalStringU8:
		w.putBool(cell.Present())
		return w.putStringU8(cell.String())
	case schema.OptionalStringU16:
		w.putBool(cell.Present())
		return w.putStringU16(cell.String())
	default:
		return fmt.Errorf("unsupported field type %v", f.Type)
	}
	return nil
}

// DecodeLoc decodes a Loc table payload against the fixed
// schema.LocDefinition (spec §3, §4.E).
func DecodeLoc(buf []byte) (Payload, error) {
	c := &cursor{buf: buf}
	magic, err := c.u32()
	if err != nil {
		return Payload{}, fmt.Errorf("table: DecodeLoc: %w", ErrTruncated)
	}
	if magic != locMagic {
		return Payload{}, fmt.Errorf("table: DecodeLoc: bad magic 0x%X", magic)
	}
	version, err := c.i32()
	if err != nil {
		return Payload{}, fmt.Errorf("table: DecodeLoc: %w", ErrTruncated)
	}
	rowCount, err := c.u32()
	if err != nil {
		return Payload{}, fmt.Errorf("table: DecodeLoc: %w", ErrTruncated)
	}
	rows := make([]Row, 0, rowCount)
	for i := uint32(0); i < rowCount; i++ {
		key, err := c.stringU16()
		if err != nil {
			return Payload{}, fmt.Errorf("table: DecodeLoc row %d key: %w", i, err)
		}
		text, err := c.stringU16()
		if err != nil {
			return Payload{}, fmt.Errorf("table: DecodeLoc row %d text: %w", i, err)
		}
		tooltip, err := c.bool()
		if err != nil {
			return Payload{}, fmt.Errorf("table: DecodeLoc row %d tooltip: %w", i, err)
		}
		rows = append(rows, Row{StringU16Cell(key), StringU16Cell(text), BoolCell(tooltip)})
	}
	return Payload{Table: "loc", Version: version, Rows: rows}, nil
}

// EncodeLoc is the inverse of DecodeLoc.
func EncodeLoc(p Payload) ([]byte, error) {
	w := &writer{}
	w.putU32(locMagic)
	w.putI32(locVersion)
	w.putU32(uint32(len(p.Rows)))
	for i, row := range p.Rows {
		if len(row) != 3 {
			return nil, fmt.Errorf("row %d: %w", i, ErrFieldCountMismatch)
		}
		if err := w.putStringU16(row[0].String()); err != nil {
			return nil, fmt.Errorf("row %d key: %w", i, err)
		}
		if err := w.putStringU16(row[1].String()); err != nil {
			return nil, fmt.Errorf("row %d text: %w", i, err)
		}
		w.putBool(row[2].Bool())
	}
	return w.bytes(), nil
}

// CombinedKey renders the combined key for row given def's key fields (spec
// §4.E "Key semantics"): the concatenation of every IsKey field's token, or
// for Loc, "(key, text)" specifically.
func CombinedKey(def schema.Definition, row Row) string {
	if def.Table == "loc" {
		return row[0].String() + "\x00" + row[1].String()
	}
	var out string
	for _, i := range def.KeyFieldIndexes() {
		out += row[i].AsKeyToken() + "\x1f"
	}
	return out
}
