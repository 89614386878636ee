package depindex

import (
	"strings"

	"github.com/modkit/packlib/table"
)

// ByPath fetches the decoded payload at path on side: a decoded-cache hit
// returns immediately; a miss falls through to the raw descriptor, is
// materialised and decoded, memoised into the decoded cache, and returned
// (spec §4.G query (a)).
func (idx *Index) ByPath(side Side, path string) (table.Payload, bool) {
	idx.mu.RLock()
	decoded := idx.vanillaDecoded
	cached := idx.vanillaCached
	if side == Parent {
		decoded = idx.parentDecoded
		cached = idx.parentCached
	}
	if p, ok := decoded[path]; ok {
		idx.mu.RUnlock()
		return p, true
	}
	d, ok := cached[path]
	idx.mu.RUnlock()
	if !ok {
		return table.Payload{}, false
	}

	p, ok := idx.decodeDescriptor(d)
	if !ok {
		return table.Payload{}, false
	}

	idx.mu.Lock()
	if side == Vanilla {
		idx.vanillaDecoded[path] = p
	} else {
		idx.parentDecoded[path] = p
	}
	idx.mu.Unlock()
	return p, true
}

// ByFolder returns every decoded payload whose path starts with prefix
// (spec §4.G query (b)).
func (idx *Index) ByFolder(side Side, prefix string) map[string]table.Payload {
	idx.mu.RLock()
	cached := idx.vanillaCached
	if side == Parent {
		cached = idx.parentCached
	}
	var matches []string
	for p := range cached {
		if strings.HasPrefix(p, prefix) {
			matches = append(matches, p)
		}
	}
	idx.mu.RUnlock()

	out := make(map[string]table.Payload, len(matches))
	for _, p := range matches {
		if payload, ok := idx.ByPath(side, p); ok {
			out[p] = payload
		}
	}
	return out
}

// AllOfType returns every decoded payload of kind on side (spec §4.G query
// (c)).
func (idx *Index) AllOfType(side Side, kind Kind) map[string]table.Payload {
	idx.mu.RLock()
	cached := idx.vanillaCached
	if side == Parent {
		cached = idx.parentCached
	}
	var matches []string
	for p := range cached {
		switch kind {
		case KindDB:
			if isDBPath(p) {
				matches = append(matches, p)
			}
		case KindLoc:
			if isLocPath(p) {
				matches = append(matches, p)
			}
		}
	}
	idx.mu.RUnlock()

	out := make(map[string]table.Payload, len(matches))
	for _, p := range matches {
		if payload, ok := idx.ByPath(side, p); ok {
			out[p] = payload
		}
	}
	return out
}

// AskKitColumn reports whether table is known to the auxiliary (assembly
// kit) definitions and, if so, whether it declares column — the fallback
// used when a reference target table isn't shipped by any live archive
// (spec §4.G query (e), §4.H NoReferenceTableNorColumnFoundPak).
func (idx *Index) AskKitColumn(table, column string) (hasTable, hasColumn bool) {
	for _, d := range idx.assKitOnly {
		if d.Table != table {
			continue
		}
		hasTable = true
		for _, f := range d.Fields {
			if f.Name == column {
				hasColumn = true
				return
			}
		}
		return
	}
	return false, false
}
