// Package tsv implements the tab-separated interchange format for tabular
// payloads (spec §4.F, §6): a two-line header (table name + version, then
// field names) followed by one data row per line. New logic with no PE
// analogue — the teacher never needs a text interchange format — written
// in the manual tab-splitting style spec §4.F calls for rather than reached
// for encoding/csv, since csv's quoting rules don't match the header-prefix-
// then-data-rows shape this format needs.
package tsv

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/modkit/packlib/schema"
	"github.com/modkit/packlib/table"
)

// Reserved table-name constants (spec §6).
const (
	PackFileList = "PackFile_List"
	LocPackedFile = "Loc_PackedFile"
)

// Export writes p against def as: "table_name\tversion\n", then a tab-
// joined field-name line, then one tab-joined data row per line, LF
// terminated (spec §4.F, §6). Float cells are rendered with 3 decimal
// digits, the documented acceptable lossy rounding (spec §4.F, §8 property
// 3).
func Export(w io.Writer, def schema.Definition, p table.Payload) error {
	bw := bufio.NewWriter(w)
	name := def.Table
	if name == "loc" {
		name = LocPackedFile
	}
	if _, err := fmt.Fprintf(bw, "%s\t%d\n", name, def.Version); err != nil {
		return err
	}
	names := make([]string, len(def.Fields))
	for i, f := range def.Fields {
		names[i] = f.Name
	}
	if _, err := fmt.Fprintf(bw, "%s\n", strings.Join(names, "\t")); err != nil {
		return err
	}
	for _, row := range p.Rows {
		cells := make([]string, len(def.Fields))
		for i, f := range def.Fields {
			cells[i] = cellText(f, row[i])
		}
		if _, err := fmt.Fprintf(bw, "%s\n", strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func cellText(f schema.Field, c table.Cell) string {
	switch f.Type {
	case schema.Bool:
		if c.Bool() {
			return "true"
		}
		return "false"
	case schema.F32:
		return strconv.FormatFloat(float64(c.F32()), 'f', 3, 32)
	case schema.I32:
		return strconv.FormatInt(int64(c.I32()), 10)
	case schema.I64:
		return strconv.FormatInt(c.I64(), 10)
	case schema.OptionalStringU8, schema.OptionalStringU16:
		// A present-but-empty optional string and an absent one both render
		// as "" here; parseCell below reads either back as absent. Plain TSV
		// has no third way to spell "present, empty" beside the column's own
		// text, so the distinction doesn't survive a round trip.
		if !c.Present() {
			return ""
		}
		return c.String()
	default:
		return c.String()
	}
}

// Import parses a TSV document produced by Export, validating the header's
// table name and version against def, and returns the decoded Payload.
// Parse errors are annotated with the offending row/column per spec §4.F.
func Import(r io.Reader, def schema.Definition) (table.Payload, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !sc.Scan() {
		return table.Payload{}, fmt.Errorf("tsv: missing header line 1")
	}
	header1 := strings.Split(sc.Text(), "\t")
	if len(header1) != 2 {
		return table.Payload{}, fmt.Errorf("tsv: header line 1 must be table_name\\tversion")
	}
	wantName := def.Table
	if wantName == "loc" {
		wantName = LocPackedFile
	}
	if header1[0] != wantName {
		return table.Payload{}, fmt.Errorf("tsv: table name %q does not match definition %q", header1[0], wantName)
	}
	version, err := strconv.ParseInt(header1[1], 10, 32)
	if err != nil {
		return table.Payload{}, fmt.Errorf("tsv: bad version %q: %w", header1[1], err)
	}
	if int32(version) != def.Version {
		return table.Payload{}, fmt.Errorf("tsv: version %d does not match definition version %d", version, def.Version)
	}

	if !sc.Scan() {
		return table.Payload{}, fmt.Errorf("tsv: missing header line 2")
	}
	names := strings.Split(sc.Text(), "\t")
	if len(names) != len(def.Fields) {
		return table.Payload{}, fmt.Errorf("tsv: field count %d does not match definition field count %d", len(names), len(def.Fields))
	}
	for i, f := range def.Fields {
		if names[i] != f.Name {
			return table.Payload{}, fmt.Errorf("tsv: column %d name %q does not match definition field %q", i, names[i], f.Name)
		}
	}

	var rows []table.Row
	rowNum := 0
	for sc.Scan() {
		rowNum++
		line := sc.Text()
		if line == "" {
			continue
		}
		cells := strings.Split(line, "\t")
		if len(cells) != len(def.Fields) {
			return table.Payload{}, fmt.Errorf("tsv: row %d: field count %d does not match definition field count %d", rowNum, len(cells), len(def.Fields))
		}
		row := make(table.Row, len(def.Fields))
		for i, f := range def.Fields {
			cell, err := parseCell(f, cells[i])
			if err != nil {
				return table.Payload{}, fmt.Errorf("tsv: row %d column %d (%s): %w", rowNum, i, f.Name, err)
			}
			row[i] = cell
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return table.Payload{}, err
	}
	return table.Payload{Table: def.Table, Version: def.Version, Rows: rows}, nil
}

func parseCell(f schema.Field, raw string) (table.Cell, error) {
	switch f.Type {
	case schema.Bool:
		switch raw {
		case "true", "1":
			return table.BoolCell(true), nil
		case "false", "0", "":
			return table.BoolCell(false), nil
		default:
			return table.Cell{}, fmt.Errorf("invalid bool %q", raw)
		}
	case schema.F32:
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return table.Cell{}, err
		}
		return table.F32Cell(float32(v)), nil
	case schema.I32:
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return table.Cell{}, err
		}
		return table.I32Cell(int32(v)), nil
	case schema.I64:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return table.Cell{}, err
		}
		return table.I64Cell(v), nil
	case schema.StringU8:
		return table.StringU8Cell(raw), nil
	case schema.StringU16:
		return table.StringU16Cell(raw), nil
	case schema.OptionalStringU8:
		// raw == "" reads back as absent even if the source cell was
		// present-but-empty; see the matching note in cellText.
		return table.OptionalStringU8Cell(raw, raw != ""), nil
	case schema.OptionalStringU16:
		return table.OptionalStringU16Cell(raw, raw != ""), nil
	default:
		return table.Cell{}, fmt.Errorf("unsupported field type %v", f.Type)
	}
}

// ExportManifest writes the dependency-manifest TSV variant (spec §6,
// reserved name PackFile_List): a "PackFile_List<TAB>1" line, a "name"
// field-header line, then one dependency name per line.
func ExportManifest(w io.Writer, deps []string) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%s\t%d\n", PackFileList, 1); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(bw, "name\n"); err != nil {
		return err
	}
	for _, d := range deps {
		if _, err := fmt.Fprintf(bw, "%s\n", d); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ImportManifest is ExportManifest's inverse.
func ImportManifest(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		return nil, fmt.Errorf("tsv: missing manifest header line 1")
	}
	if !strings.HasPrefix(sc.Text(), PackFileList+"\t") {
		return nil, fmt.Errorf("tsv: not a %s manifest", PackFileList)
	}
	if !sc.Scan() {
		return nil, fmt.Errorf("tsv: missing manifest header line 2")
	}
	var deps []string
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		deps = append(deps, line)
	}
	return deps, sc.Err()
}
