package diagnostics

import (
	"strings"
	"unicode"

	"github.com/modkit/packlib"
	"github.com/modkit/packlib/depindex"
	"github.com/modkit/packlib/schema"
	"github.com/modkit/packlib/table"
)

// checkDBTable runs every per-DB-table check in spec §4.H's table against
// one table group (all entries sharing the same second path component).
func (e *Engine) checkDBTable(c *packlib.Container, tableName string, entries []*packlib.Entry, ig *ignoreSet) []Diagnostic {
	var out []Diagnostic

	out = append(out, e.tableNameChecks(tableName, entries, ig)...)

	seenCombined := make(map[string]string) // combined key -> first row's path
	reportedFirst := make(map[string]bool)  // combined key -> first row already reported

	for _, entry := range entries {
		path := entry.Path()
		if ig.skipEntirely(path) {
			continue
		}

		payload, def, ok := e.decodeForDiagnostics(entry, tableName)
		if !ok {
			continue
		}

		out = append(out, e.singleTableVersionChecks(path, payload, ig)...)

		for rowIdx, row := range payload.Rows {
			out = append(out, e.rowChecks(c, path, def, row, ig)...)

			key := table.CombinedKey(def, row)
			if strings.Trim(key, "\x1f") == "" {
				continue
			}
			if firstPath, dup := seenCombined[key]; dup {
				if !ig.suppressed(path, "", CodeDuplicatedCombinedKeys) {
					out = append(out, Diagnostic{Code: CodeDuplicatedCombinedKeys, Level: LevelError, Path: path})
					if !reportedFirst[key] {
						out = append(out, Diagnostic{Code: CodeDuplicatedCombinedKeys, Level: LevelError, Path: firstPath})
						reportedFirst[key] = true
					}
				}
			} else {
				seenCombined[key] = path
			}
			_ = rowIdx
		}
	}

	return out
}

// decodeForDiagnostics decodes one DB entry against the schema, returning
// ok=false (and nothing emitted) if decoding isn't possible — that failure
// belongs to the codec layer, not the linter.
func (e *Engine) decodeForDiagnostics(entry *packlib.Entry, tableName string) (table.Payload, schema.Definition, bool) {
	raw, err := entry.GetData()
	if err != nil {
		return table.Payload{}, schema.Definition{}, false
	}
	version, err := table.PeekDBVersion(raw)
	if err != nil {
		return table.Payload{}, schema.Definition{}, false
	}
	def, ok := e.sch.Lookup(tableName, version)
	if !ok {
		return table.Payload{}, schema.Definition{}, false
	}
	payload, err := table.DecodeDB(tableName, def, raw)
	if err != nil {
		return table.Payload{}, schema.Definition{}, false
	}
	return payload, def, true
}

// tableNameChecks implements OutdatedTable, BannedTable,
// TableNameEndsInNumber, TableNameHasSpace and TableIsDataCoring — the
// checks that only need the table name and container file name, not a
// decoded row.
func (e *Engine) tableNameChecks(tableName string, entries []*packlib.Entry, ig *ignoreSet) []Diagnostic {
	var out []Diagnostic
	if len(entries) == 0 {
		return out
	}
	path := entries[0].Path()
	if ig.skipEntirely(path) {
		return out
	}

	if newest, ok := e.sch.NewestVersion(tableName); ok {
		for _, entry := range entries {
			raw, err := entry.GetData()
			if err != nil {
				continue
			}
			if v, err := table.PeekDBVersion(raw); err == nil && v != newest {
				if !ig.suppressed(entry.Path(), "", CodeOutdatedTable) {
					out = append(out, Diagnostic{Code: CodeOutdatedTable, Level: LevelError, Path: entry.Path()})
				}
			}
		}
	}

	if e.opts.Catalogue != nil {
		for _, banned := range e.opts.Catalogue.BannedTables() {
			if strings.EqualFold(banned, tableName) && !ig.suppressed(path, "", CodeBannedTable) {
				out = append(out, Diagnostic{Code: CodeBannedTable, Level: LevelError, Path: path})
				break
			}
		}
	}

	if len(tableName) > 0 {
		last := rune(tableName[len(tableName)-1])
		if unicode.IsDigit(last) && !ig.suppressed(path, "", CodeTableNameEndsInNumber) {
			out = append(out, Diagnostic{Code: CodeTableNameEndsInNumber, Level: LevelError, Path: path})
		}
	}
	if strings.Contains(tableName, " ") && !ig.suppressed(path, "", CodeTableNameHasSpace) {
		out = append(out, Diagnostic{Code: CodeTableNameHasSpace, Level: LevelError, Path: path})
	}

	if e.opts.Catalogue != nil {
		fixedName, sameAsFolder := e.opts.Catalogue.DatacoringName(tableName)
		archiveName := entries[0].Container()
		coring := false
		if sameAsFolder {
			segs := entries[0].Segments()
			if len(segs) >= 2 {
				coring = strings.EqualFold(archiveName, segs[1]+".pack")
			}
		} else if fixedName != "" {
			coring = strings.EqualFold(archiveName, fixedName)
		}
		if coring && !ig.suppressed(path, "", CodeTableIsDataCoring) {
			out = append(out, Diagnostic{Code: CodeTableIsDataCoring, Level: LevelWarning, Path: path})
		}
	}

	return out
}

// singleTableVersionChecks runs the checks that only need the decoded
// payload as a whole (none currently; kept as a seam for table-wide rules
// beyond the per-row ones).
func (e *Engine) singleTableVersionChecks(path string, payload table.Payload, ig *ignoreSet) []Diagnostic {
	return nil
}

// rowChecks runs FieldWithPathNotFound, InvalidReference,
// NoReferenceTableFound, NoReferenceTableNorColumnFound{NoPak,Pak},
// EmptyKeyField, ValueCannotBeEmpty, EmptyRow and EmptyKeyFields against
// one decoded row.
func (e *Engine) rowChecks(c *packlib.Container, path string, def schema.Definition, row table.Row, ig *ignoreSet) []Diagnostic {
	var out []Diagnostic

	allEmpty := true
	allKeysEmpty := true
	keyIdx := make(map[int]bool)
	for _, i := range def.KeyFieldIndexes() {
		keyIdx[i] = true
	}

	for i, f := range def.Fields {
		if i >= len(row) {
			break
		}
		cell := row[i]
		empty := cell.IsEmpty()
		if !empty {
			allEmpty = false
		}
		if keyIdx[i] && !empty {
			allKeysEmpty = false
		}

		if ig.suppressed(path, f.Name, "") {
			// field fully ignored: still count toward emptiness, skip
			// per-field diagnostics below.
		} else {
			if keyIdx[i] && empty && f.Type != schema.OptionalStringU8 && f.Type != schema.Bool {
				if !ig.suppressed(path, f.Name, CodeEmptyKeyField) {
					out = append(out, Diagnostic{Code: CodeEmptyKeyField, Level: LevelWarning, Path: path, Field: f.Name})
				}
			}
			if f.CannotBeEmpty && empty && (f.ScopedToTable == "" || strings.EqualFold(f.ScopedToTable, def.Table)) {
				if !ig.suppressed(path, f.Name, CodeValueCannotBeEmpty) {
					out = append(out, Diagnostic{Code: CodeValueCannotBeEmpty, Level: LevelError, Path: path, Field: f.Name})
				}
			}
			if f.IsFilename && !empty {
				if !e.resolvesSomewhere(c, f, cell.String()) && !ig.suppressed(path, f.Name, CodeFieldWithPathNotFound) {
					out = append(out, Diagnostic{Code: CodeFieldWithPathNotFound, Level: LevelWarning, Path: path, Field: f.Name})
				}
			}
			if f.Reference != nil && !empty && cell.AsKeyToken() != "" {
				out = append(out, e.referenceChecks(path, f, cell, ig)...)
			}
		}
	}

	if allEmpty && !ig.suppressed(path, "", CodeEmptyRow) {
		out = append(out, Diagnostic{Code: CodeEmptyRow, Level: LevelError, Path: path})
	}
	if allKeysEmpty && len(keyIdx) > 0 && !allEmpty && !ig.suppressed(path, "", CodeEmptyKeyFields) {
		out = append(out, Diagnostic{Code: CodeEmptyKeyFields, Level: LevelWarning, Path: path})
	}

	return out
}

// resolvesSomewhere implements FieldWithPathNotFound's resolution rule: `*`
// always passes; `;` and `,` split multi-paths; each candidate is checked
// case-insensitively as a file or folder against the local container, the
// parent index and the vanilla index.
func (e *Engine) resolvesSomewhere(c *packlib.Container, f schema.Field, value string) bool {
	if strings.Contains(value, "*") {
		return true
	}
	parts := strings.FieldsFunc(value, func(r rune) bool { return r == ';' || r == ',' })
	if len(parts) == 0 {
		parts = []string{value}
	}
	for _, p := range parts {
		candidate := f.RelativeBase + p
		if _, ok := c.ByPathFold(candidate); ok {
			return true
		}
		if len(c.ByFolder(candidate)) > 0 {
			return true
		}
		if e.idx != nil {
			if e.idx.FileExists(depindex.Parent, candidate, false) || e.idx.FolderExists(depindex.Parent, candidate, false) {
				return true
			}
			if e.idx.FileExists(depindex.Vanilla, candidate, false) || e.idx.FolderExists(depindex.Vanilla, candidate, false) {
				return true
			}
		}
	}
	return false
}

// referenceChecks implements InvalidReference, NoReferenceTableFound and
// NoReferenceTableNorColumnFound{NoPak,Pak}.
func (e *Engine) referenceChecks(path string, f schema.Field, cell table.Cell, ig *ignoreSet) []Diagnostic {
	ref := f.Reference
	haveTable := e.sch.HasTable(ref.Table)
	if !haveTable {
		if !ig.suppressed(path, f.Name, CodeNoReferenceTableFound) {
			return []Diagnostic{{Code: CodeNoReferenceTableFound, Level: LevelInfo, Path: path, Field: f.Name}}
		}
		return nil
	}
	if !e.sch.HasColumn(ref.Table, ref.Column) {
		code := CodeNoReferenceTableNorColumnFoundNoPak
		level := LevelWarning
		if e.opts.AssKitLoaded {
			code = CodeNoReferenceTableNorColumnFoundPak
			level = LevelInfo
		}
		if !ig.suppressed(path, f.Name, code) {
			return []Diagnostic{{Code: code, Level: level, Path: path, Field: f.Name}}
		}
		return nil
	}

	if e.idx == nil {
		return nil
	}
	wantToken := cell.AsKeyToken()
	found := false
	for _, side := range []depindex.Side{depindex.Vanilla, depindex.Parent} {
		for _, payload := range e.idx.AllOfType(side, depindex.KindDB) {
			if !strings.EqualFold(payload.Table, ref.Table) {
				continue
			}
			targetDef, ok := e.sch.Lookup(payload.Table, payload.Version)
			if !ok {
				continue
			}
			colIdx := -1
			for i, tf := range targetDef.Fields {
				if tf.Name == ref.Column {
					colIdx = i
					break
				}
			}
			if colIdx == -1 {
				continue
			}
			for _, row := range payload.Rows {
				if colIdx < len(row) && row[colIdx].AsKeyToken() == wantToken {
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if found {
			break
		}
	}
	if !found && !ig.suppressed(path, f.Name, CodeInvalidReference) {
		return []Diagnostic{{Code: CodeInvalidReference, Level: LevelError, Path: path, Field: f.Name}}
	}
	return nil
}
