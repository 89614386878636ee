// Package schema holds the table-name -> version -> field-list definitions
// that the table codec decodes payloads against (spec §3, §4.D). Grounded
// on saferwall-pe's pe.go ImageDirectoryEntry/funcMaps map-keyed-dispatch
// idiom: a schema here is a map[string]map[int32]Definition, looked up the
// same way pe.go's data-directory table is looked up by enum key.
package schema

import (
	"fmt"
	"sync"
)

// FieldType is one of the cell types a DB table field can declare (spec
// §3).
type FieldType int

// Field types, per spec §3.
const (
	Bool FieldType = iota
	F32
	I32
	I64
	StringU8
	StringU16
	OptionalStringU8
	OptionalStringU16
)

func (t FieldType) String() string {
	switch t {
	case Bool:
		return "Bool"
	case F32:
		return "F32"
	case I32:
		return "I32"
	case I64:
		return "I64"
	case StringU8:
		return "StringU8"
	case StringU16:
		return "StringU16"
	case OptionalStringU8:
		return "OptionalStringU8"
	case OptionalStringU16:
		return "OptionalStringU16"
	default:
		return "Unknown"
	}
}

// Reference links a field to a column in another table, used by the
// diagnostics engine's InvalidReference/NoReferenceTableFound checks.
type Reference struct {
	Table  string
	Column string
}

// Field is one column of a table Definition (spec §3).
type Field struct {
	Name string
	Type FieldType
	// IsKey marks a field as participating in a row's combined key (spec
	// §4.E "Key semantics").
	IsKey bool
	// Reference is the (other_table_name, other_column_name) this field
	// points to, if any.
	Reference *Reference
	// IsFilename marks a field whose value should resolve to a path that
	// exists somewhere in the dependency index (spec §4.H
	// FieldWithPathNotFound). RelativeBase, if non-empty, is prefixed to
	// the cell's value before resolution.
	IsFilename    bool
	RelativeBase  string
	// CannotBeEmpty, when true, makes a blank cell for this field an error
	// (spec §4.H ValueCannotBeEmpty). ScopedToTable, if non-empty, limits
	// the rule to that one table name (a field with the same name can
	// appear, un-scoped, in several tables' definitions).
	CannotBeEmpty  bool
	ScopedToTable  string
	Description    string
}

// Definition is an ordered list of Fields for one (table, version) pair
// (spec §3).
type Definition struct {
	Table   string
	Version int32
	Fields  []Field
}

// KeyFieldIndexes returns the positions of fields marked IsKey, in
// declaration order.
func (d Definition) KeyFieldIndexes() []int {
	var out []int
	for i, f := range d.Fields {
		if f.IsKey {
			out = append(out, i)
		}
	}
	return out
}

// LocDefinition is the fixed Loc table shape (spec §3, §4.E): key (unique
// StringU16), text (StringU16), tooltip (Bool).
var LocDefinition = Definition{
	Table:   "loc",
	Version: 1,
	Fields: []Field{
		{Name: "key", Type: StringU16, IsKey: true},
		{Name: "text", Type: StringU16},
		{Name: "tooltip", Type: Bool},
	},
}

// Schema is the shared, read-mostly mapping from table name to version to
// Definition (spec §4.D). Loaded once at startup and held behind a
// reader-writer lock so the editor layer can reload definitions at runtime
// without requiring every reader to re-fetch a handle (spec §9's "pass
// these as explicit context handles" redesign note — Schema is the handle).
type Schema struct {
	mu    sync.RWMutex
	defs  map[string]map[int32]Definition

	// assKitOnly holds auxiliary table definitions from an external source
	// (the game's dev kit "assembly kit" export), used only for
	// reference-target discovery when the live archives don't ship the
	// table (spec §3 depindex.asskit_only, §4.G).
	assKitOnly map[string]Definition
}

// New returns an empty Schema ready for Add/Load calls.
func New() *Schema {
	return &Schema{
		defs:       make(map[string]map[int32]Definition),
		assKitOnly: make(map[string]Definition),
	}
}

// Add registers one Definition, replacing any prior definition for the same
// (table, version) pair. Callers needing runtime reload go through this
// under the Schema's own lock, per spec §4.D "mutations... go through a
// writer lock".
func (s *Schema) Add(def Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.defs[def.Table]; !ok {
		s.defs[def.Table] = make(map[int32]Definition)
	}
	s.defs[def.Table][def.Version] = def
}

// Lookup returns the Definition for (table, version), or ok=false when the
// version is unknown (spec §4.D).
func (s *Schema) Lookup(table string, version int32) (Definition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byVersion, ok := s.defs[table]
	if !ok {
		return Definition{}, false
	}
	def, ok := byVersion[version]
	return def, ok
}

// NewestVersion returns the highest known version for table, used by the
// diagnostics OutdatedTable check. Falls back to an asskit-only definition's
// version when no live definition is loaded, matching HasTable/HasColumn's
// asskit fallback.
func (s *Schema) NewestVersion(table string) (int32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byVersion, ok := s.defs[table]
	if !ok || len(byVersion) == 0 {
		if def, ok := s.assKitOnly[table]; ok {
			return def.Version, true
		}
		return 0, false
	}
	var max int32
	first := true
	for v := range byVersion {
		if first || v > max {
			max = v
			first = false
		}
	}
	return max, true
}

// HasTable reports whether any version of table is known (including
// asskit-only definitions).
func (s *Schema) HasTable(table string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.defs[table]; ok {
		return true
	}
	_, ok := s.assKitOnly[table]
	return ok
}

// HasColumn reports whether table (in any loaded source) declares column.
func (s *Schema) HasColumn(table, column string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, def := range s.defs[table] {
		for _, f := range def.Fields {
			if f.Name == column {
				return true
			}
		}
	}
	if def, ok := s.assKitOnly[table]; ok {
		for _, f := range def.Fields {
			if f.Name == column {
				return true
			}
		}
	}
	return false
}

// AddAssKitDefinition registers an auxiliary, columns-only definition used
// purely for reference-target discovery (spec §3 asskit_only, §4.G).
func (s *Schema) AddAssKitDefinition(def Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assKitOnly[def.Table] = def
}

// HasAssKitOnly reports whether table is known only through the auxiliary
// source (no live definition loaded).
func (s *Schema) HasAssKitOnly(table string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.defs[table]; ok {
		return false
	}
	_, ok := s.assKitOnly[table]
	return ok
}

// ErrUnknownVersion names the condition of a known table name with no
// Definition for the requested version. No function in this package returns
// it; Lookup reports that case as ok=false.
var ErrUnknownVersion = fmt.Errorf("unknown table definition version")
