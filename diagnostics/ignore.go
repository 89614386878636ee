package diagnostics

import "strings"

// IgnoreRule targets a path prefix; its matching rules follow spec §4.H's
// tri-state switch (spec §9 "effectively a tri-state switch"): entry-wide,
// field-wide, or diagnostic-code-wide.
type IgnoreRule struct {
	PathPrefix string
	Fields     []string
	Codes      []string
}

func (r IgnoreRule) matches(path string) bool {
	return strings.HasPrefix(path, r.PathPrefix)
}

// ignoreSet resolves the applicable rules for one entry path, answering
// skip/suppress questions per §4.H:
//   - both field-list and code-list empty: entry skipped entirely.
//   - only fields given: diagnostics on those fields are suppressed.
//   - only codes given: those codes are suppressed for the entry.
//   - both given: only the code-list is suppressed on the field-list.
type ignoreSet struct {
	rules []IgnoreRule
}

func newIgnoreSet(rules []IgnoreRule) *ignoreSet { return &ignoreSet{rules: rules} }

// skipEntirely reports whether path should produce no diagnostics at all.
func (s *ignoreSet) skipEntirely(path string) bool {
	for _, r := range s.rules {
		if r.matches(path) && len(r.Fields) == 0 && len(r.Codes) == 0 {
			return true
		}
	}
	return false
}

// suppressed reports whether a diagnostic with the given field and code
// should be dropped for path.
func (s *ignoreSet) suppressed(path, field string, code Code) bool {
	for _, r := range s.rules {
		if !r.matches(path) {
			continue
		}
		if len(r.Fields) == 0 && len(r.Codes) == 0 {
			continue // handled by skipEntirely
		}
		hasFields := len(r.Fields) > 0
		hasCodes := len(r.Codes) > 0
		switch {
		case hasFields && hasCodes:
			if containsFold(r.Fields, field) && containsFold(r.Codes, string(code)) {
				return true
			}
		case hasFields:
			if containsFold(r.Fields, field) {
				return true
			}
		case hasCodes:
			if containsFold(r.Codes, string(code)) {
				return true
			}
		}
	}
	return false
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
