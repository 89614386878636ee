// Package diagnostics implements the per-table-group parallel linter that
// flags modding errors against the dependency index and schema (spec §3,
// §4.H). Grounded directly on saferwall-pe's anomaly.go: "append a named
// string/code to a results slice, one check per field, grouped under a
// parse-like pass" generalized from one flat slice of strings to a sorted
// []Diagnostic{Code, Level, Path, Field} slice, with group-level
// parallelism added (anomaly.go itself runs sequentially since a PE has
// only one header to check; the fan-out here is new, grounded instead on
// pe.go's funcMaps dispatch shape, with one goroutine per group).
package diagnostics

import "sort"

// Level is a diagnostic's severity (spec §4.H).
type Level int

// Severities.
const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Code names a single diagnostic rule (spec §4.H's tables).
type Code string

// DB table diagnostic codes.
const (
	CodeOutdatedTable                         Code = "OutdatedTable"
	CodeBannedTable                           Code = "BannedTable"
	CodeTableNameEndsInNumber                 Code = "TableNameEndsInNumber"
	CodeTableNameHasSpace                     Code = "TableNameHasSpace"
	CodeTableIsDataCoring                     Code = "TableIsDataCoring"
	CodeFieldWithPathNotFound                 Code = "FieldWithPathNotFound"
	CodeInvalidReference                      Code = "InvalidReference"
	CodeNoReferenceTableFound                 Code = "NoReferenceTableFound"
	CodeNoReferenceTableNorColumnFoundNoPak   Code = "NoReferenceTableNorColumnFoundNoPak"
	CodeNoReferenceTableNorColumnFoundPak     Code = "NoReferenceTableNorColumnFoundPak"
	CodeEmptyKeyField                         Code = "EmptyKeyField"
	CodeValueCannotBeEmpty                    Code = "ValueCannotBeEmpty"
	CodeEmptyRow                              Code = "EmptyRow"
	CodeEmptyKeyFields                        Code = "EmptyKeyFields"
	CodeDuplicatedCombinedKeys                Code = "DuplicatedCombinedKeys"
)

// Loc table diagnostic codes.
const (
	CodeInvalidLocKey  Code = "InvalidLocKey"
	CodeLocEmptyKeyField Code = "EmptyKeyField"
	CodeLocEmptyRow    Code = "EmptyRow"
	CodeInvalidEscape  Code = "InvalidEscape"
	CodeDuplicatedRow  Code = "DuplicatedRow"
)

// Container-level and manifest codes.
const (
	CodeInvalidPackFileName Code = "InvalidPackFileName"
	CodeInvalidDependencyName Code = "InvalidDependencyName"
)

// Config codes; the first three are blocking (spec §4.H "Config checks").
const (
	CodeDependenciesCacheNotGenerated       Code = "DependenciesCacheNotGenerated"
	CodeDependenciesCacheOutdated           Code = "DependenciesCacheOutdated"
	CodeDependenciesCacheCouldNotBeLoaded   Code = "DependenciesCacheCouldNotBeLoaded"
	CodeIncorrectGamePath                   Code = "IncorrectGamePath"
)

// Diagnostic is one finding (spec §4.H output).
type Diagnostic struct {
	Code    Code
	Level   Level
	Path    string
	Field   string
	Message string
}

// isBlocking reports whether d is one of the three config checks that
// short-circuit the rest of a diagnostics run (spec §4.H "Config checks").
func (d Diagnostic) isBlocking() bool {
	switch d.Code {
	case CodeDependenciesCacheNotGenerated, CodeDependenciesCacheOutdated, CodeDependenciesCacheCouldNotBeLoaded:
		return true
	default:
		return false
	}
}

// sortDiagnostics orders results by entry path, empty paths last (spec
// §4.H "Output").
func sortDiagnostics(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		pi, pj := ds[i].Path, ds[j].Path
		if pi == "" && pj != "" {
			return false
		}
		if pi != "" && pj == "" {
			return true
		}
		return pi < pj
	})
}
