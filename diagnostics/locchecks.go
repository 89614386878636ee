package diagnostics

import (
	"regexp"
	"strings"

	"github.com/modkit/packlib"
	"github.com/modkit/packlib/table"
)

// unescapedControlChar matches the literal two-character sequence \n or \t
// (a backslash followed by the letter n or t) not preceded by another
// backslash (spec §4.H InvalidEscape: "text contains \n or \t not preceded
// by a backslash"; equivalent to original_source/rpfm_lib/src/diagnostics/
// mod.rs's `(?<!\\)\\n|(?<!\\)\\t`, written without lookbehind since Go's
// regexp/syntax (RE2) doesn't support it).
var unescapedControlChar = regexp.MustCompile(`(^|[^\\])\\[nt]`)

// checkLocGroup runs InvalidLocKey, EmptyKeyField, EmptyRow, InvalidEscape
// and DuplicatedRow against every Loc entry in the container (spec §4.H).
func (e *Engine) checkLocGroup(entries []*packlib.Entry, ig *ignoreSet) []Diagnostic {
	var out []Diagnostic
	seen := make(map[string][]string) // (key,text) -> paths that used it

	for _, entry := range entries {
		path := entry.Path()
		if ig.skipEntirely(path) {
			continue
		}
		raw, err := entry.GetData()
		if err != nil {
			continue
		}
		payload, err := table.DecodeLoc(raw)
		if err != nil {
			continue
		}

		for _, row := range payload.Rows {
			key := row[0].String()
			text := row[1].String()

			if (strings.Contains(key, "\n") || strings.Contains(key, "\t")) && !ig.suppressed(path, "key", CodeInvalidLocKey) {
				out = append(out, Diagnostic{Code: CodeInvalidLocKey, Level: LevelError, Path: path, Field: "key"})
			}
			if key == "" && !ig.suppressed(path, "key", CodeLocEmptyKeyField) {
				out = append(out, Diagnostic{Code: CodeLocEmptyKeyField, Level: LevelWarning, Path: path, Field: "key"})
			}
			if key == "" && text == "" && !ig.suppressed(path, "", CodeLocEmptyRow) {
				out = append(out, Diagnostic{Code: CodeLocEmptyRow, Level: LevelError, Path: path})
			}
			if unescapedControlChar.MatchString(text) && !ig.suppressed(path, "text", CodeInvalidEscape) {
				out = append(out, Diagnostic{Code: CodeInvalidEscape, Level: LevelError, Path: path, Field: "text"})
			}

			dupKey := key + "\x00" + text
			seen[dupKey] = append(seen[dupKey], path)
		}
	}

	for _, paths := range seen {
		if len(paths) < 2 {
			continue
		}
		for _, p := range paths {
			if !ig.suppressed(p, "", CodeDuplicatedRow) {
				out = append(out, Diagnostic{Code: CodeDuplicatedRow, Level: LevelWarning, Path: p})
			}
		}
	}

	return out
}
