package diagnostics

import (
	"strings"
	"sync"

	"github.com/modkit/packlib"
)

// Update re-diagnoses only the groups touched by changedPaths and merges
// the fresh results into the previous report (spec §4.H "Incremental
// update"): a changed DB entry re-diagnoses every entry sharing its table
// name; any changed Loc entry re-diagnoses all Loc entries; a changed
// anim-fragment entry re-diagnoses only itself. Manifest and container
// diagnostics are always rebuilt. previous is the prior full result set,
// typically the return value of Run or of an earlier Update call.
func (e *Engine) Update(c *packlib.Container, cfg ConfigState, previous []Diagnostic, changedPaths []string) []Diagnostic {
	if !cfg.CacheGenerated || cfg.CacheOutdated || cfg.CacheLoadError != nil || !cfg.GamePathCorrect {
		// A blocking or config-level change invalidates any incremental
		// reasoning; fall back to a full run.
		return e.Run(c, cfg)
	}

	ig := newIgnoreSet(e.opts.IgnoreRules)
	allGroups := groupEntries(c)

	affectedTables := make(map[string]bool)
	touchLocs := false
	touchedAnim := make(map[string]bool)
	for _, p := range changedPaths {
		p = strings.ReplaceAll(p, "\\", "/")
		switch {
		case isAnimFragmentPath(p):
			touchedAnim[p] = true
		case isLocSuffixed(p):
			touchLocs = true
		default:
			segs := strings.Split(p, "/")
			if len(segs) >= 2 && strings.EqualFold(segs[0], "db") {
				affectedTables[segs[1]] = true
			}
		}
	}

	var freshGroups []entryGroup
	for _, g := range allGroups {
		switch g.kind {
		case groupDB:
			if affectedTables[g.table] {
				freshGroups = append(freshGroups, g)
			}
		case groupLoc:
			if touchLocs {
				freshGroups = append(freshGroups, g)
			}
		case groupAnimFragments:
			var subset []*packlib.Entry
			for _, entry := range g.entries {
				if touchedAnim[entry.Path()] {
					subset = append(subset, entry)
				}
			}
			if len(subset) > 0 {
				freshGroups = append(freshGroups, entryGroup{kind: groupAnimFragments, entries: subset})
			}
		}
	}

	var wg sync.WaitGroup
	results := make([][]Diagnostic, len(freshGroups))
	for i, g := range freshGroups {
		wg.Add(1)
		go func(i int, g entryGroup) {
			defer wg.Done()
			results[i] = e.runGroup(c, g, ig)
		}(i, g)
	}
	wg.Wait()

	var fresh []Diagnostic
	fresh = append(fresh, e.containerChecks(c)...)
	fresh = append(fresh, e.manifestChecks(c)...)
	for _, r := range results {
		fresh = append(fresh, r...)
	}

	// Drop every previous diagnostic whose path belongs to a rebuilt
	// group, then merge in the fresh set (spec §4.H "drop all previous
	// diagnostics with matching paths before inserting the fresh set").
	rebuiltPaths := make(map[string]bool)
	for _, g := range freshGroups {
		for _, entry := range g.entries {
			rebuiltPaths[entry.Path()] = true
		}
	}

	var merged []Diagnostic
	for _, d := range previous {
		if d.Path == "" {
			continue // container/manifest diagnostics are always rebuilt
		}
		if rebuiltPaths[d.Path] {
			continue
		}
		merged = append(merged, d)
	}
	merged = append(merged, fresh...)

	sortDiagnostics(merged)
	e.remember(merged)
	return merged
}

func isLocSuffixed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".loc")
}
