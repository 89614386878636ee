package depindex

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Side selects vanilla or parent archives for Build/PreDecode/query calls
// (spec §3 "vanilla_cached"/"parent_cached").
type Side int

const (
	Vanilla Side = iota
	Parent
)

// caseSets holds the three lazily-built derived sets spec §4.G names for
// one side: a case-insensitive file set and case-sensitive/insensitive
// folder sets. Folders are every proper non-empty slash-prefix of each
// path. Grounded on arloliu/mebo's internal/hash.ID (xxhash64) idiom: the
// case-insensitive sets key on the xxhash of the lowercased string rather
// than the string itself, the same trade (a compact 64-bit id standing in
// for the string) mebo's blob IDs make.
type caseSets struct {
	filesCI   map[uint64]struct{}
	foldersCS map[string]struct{}
	foldersCI map[uint64]struct{}
}

func ciKey(s string) uint64 {
	return xxhash.Sum64String(strings.ToLower(s))
}

// buildCaseSets derives the three sets from a path -> Descriptor map (spec
// §8 property 6).
func buildCaseSets(descriptors map[string]Descriptor) *caseSets {
	cs := &caseSets{
		filesCI:   make(map[uint64]struct{}, len(descriptors)),
		foldersCS: make(map[string]struct{}),
		foldersCI: make(map[uint64]struct{}),
	}
	for p := range descriptors {
		cs.filesCI[ciKey(p)] = struct{}{}
		for _, folder := range properPrefixes(p) {
			cs.foldersCS[folder] = struct{}{}
			cs.foldersCI[ciKey(folder)] = struct{}{}
		}
	}
	return cs
}

// properPrefixes splits p on '/' and returns every proper non-empty prefix
// (spec §4.G "Folders are derived by splitting each path on '/' and taking
// every proper non-empty prefix").
func properPrefixes(p string) []string {
	segs := strings.Split(p, "/")
	if len(segs) <= 1 {
		return nil
	}
	out := make([]string, 0, len(segs)-1)
	for i := 1; i < len(segs); i++ {
		out = append(out, strings.Join(segs[:i], "/"))
	}
	return out
}

// sets returns the lazily-built caseSets for side, constructing them on
// first call (spec §4.G "built on first query, not at load").
func (idx *Index) sets(side Side) *caseSets {
	switch side {
	case Vanilla:
		idx.vanillaOnce.Do(func() {
			idx.mu.RLock()
			defer idx.mu.RUnlock()
			idx.vanillaSets = buildCaseSets(idx.vanillaCached)
		})
		return idx.vanillaSets
	default:
		idx.parentOnce.Do(func() {
			idx.mu.RLock()
			defer idx.mu.RUnlock()
			idx.parentSets = buildCaseSets(idx.parentCached)
		})
		return idx.parentSets
	}
}

// FileExists reports whether path names a file in side's index, with the
// requested case sensitivity.
func (idx *Index) FileExists(side Side, path string, caseSensitive bool) bool {
	if caseSensitive {
		idx.mu.RLock()
		defer idx.mu.RUnlock()
		m := idx.vanillaCached
		if side == Parent {
			m = idx.parentCached
		}
		_, ok := m[path]
		return ok
	}
	_, ok := idx.sets(side).filesCI[ciKey(path)]
	return ok
}

// FolderExists reports whether path names a folder in side's index.
func (idx *Index) FolderExists(side Side, path string, caseSensitive bool) bool {
	cs := idx.sets(side)
	if caseSensitive {
		_, ok := cs.foldersCS[path]
		return ok
	}
	_, ok := cs.foldersCI[ciKey(path)]
	return ok
}
