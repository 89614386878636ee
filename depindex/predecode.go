package depindex

import (
	"strings"
	"sync"

	"github.com/modkit/packlib/table"
)

// isDBPath reports whether path names a DB table entry: spec §4.H groups DB
// entries "by second path component", which requires a "db/<table>/..."
// shape; this is also how the reference client lays out table payloads.
func isDBPath(path string) bool {
	segs := strings.Split(path, "/")
	return len(segs) >= 3 && strings.EqualFold(segs[0], "db")
}

func dbTableName(path string) string {
	segs := strings.Split(path, "/")
	return segs[1]
}

func isLocPath(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".loc")
}

// PreDecode walks side's cached descriptors, decodes every DB/Loc entry
// against the bound schema, and inserts successes into the decoded cache;
// entries that fail to decode are silently skipped (spec §4.G
// "Pre-decode"). Fan-out is parallel; insertion order into the decoded
// cache is irrelevant (spec §5).
func (idx *Index) PreDecode(side Side) {
	idx.mu.RLock()
	var descriptors map[string]Descriptor
	switch side {
	case Vanilla:
		descriptors = idx.vanillaCached
	case Parent:
		descriptors = idx.parentCached
	}
	snapshot := make([]Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		snapshot = append(snapshot, d)
	}
	idx.mu.RUnlock()

	type decoded struct {
		path string
		p    table.Payload
	}
	results := make(chan decoded, len(snapshot))
	var wg sync.WaitGroup
	sem := make(chan struct{}, 16)
	for _, d := range snapshot {
		if !isDBPath(d.Path) && !isLocPath(d.Path) {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(d Descriptor) {
			defer wg.Done()
			defer func() { <-sem }()
			p, ok := idx.decodeDescriptor(d)
			if ok {
				results <- decoded{path: d.Path, p: p}
			}
		}(d)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	idx.mu.Lock()
	defer idx.mu.Unlock()
	var dst map[string]table.Payload
	switch side {
	case Vanilla:
		dst = idx.vanillaDecoded
	case Parent:
		dst = idx.parentDecoded
	}
	for r := range results {
		dst[r.path] = r.p
	}
}

func (idx *Index) decodeDescriptor(d Descriptor) (table.Payload, bool) {
	raw, err := d.materialize(idx)
	if err != nil {
		return table.Payload{}, false
	}
	if isLocPath(d.Path) {
		p, err := table.DecodeLoc(raw)
		if err != nil {
			return table.Payload{}, false
		}
		return p, true
	}
	name := dbTableName(d.Path)
	version, err := table.PeekDBVersion(raw)
	if err != nil {
		return table.Payload{}, false
	}
	def, ok := idx.schema.Lookup(name, version)
	if !ok {
		return table.Payload{}, false
	}
	p, err := table.DecodeDB(name, def, raw)
	if err != nil {
		return table.Payload{}, false
	}
	return p, true
}
