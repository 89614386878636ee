// Package depindex builds and queries the dependency index over vanilla
// (game-shipped) and parent (mod) archives: a fast case-sensitive and
// case-insensitive containment index plus a pre-decoded table/loc cache
// (spec §3, §4.G). Grounded on cockroachdb/pebble's read-many/write-rare
// RWMutex-guarded cache pattern (manifest + staleness check) for the
// decoded caches and needsUpdating(), and on arloliu/mebo's
// internal/hash.ID (xxhash64) idiom for the case-insensitive set
// membership fast path.
package depindex

import "fmt"

// Descriptor is the serialisable record kept per entry path: enough to
// locate and later materialise the entry's bytes without holding the
// archive open (spec §3 "path + metadata + on-disk locator").
type Descriptor struct {
	// Path is the entry's slash-separated logical path.
	Path string
	// ArchivePath is the filesystem path, as given to Build, of the container
	// this entry came from (after overlay resolution, the winning container).
	ArchivePath string
	// ArchiveName is that container's base file name, used by the
	// diagnostics engine's datacoring check.
	ArchiveName string
	Size        int64
	Compressed  bool
	Encrypted   bool
	Modified    int64
}

// materialize re-opens (or reuses a cached open handle for) the owning
// archive and returns the entry's plaintext bytes.
func (d Descriptor) materialize(idx *Index) ([]byte, error) {
	c, err := idx.openArchive(d.ArchivePath)
	if err != nil {
		return nil, err
	}
	e, ok := c.ByPath(d.Path)
	if !ok {
		return nil, fmt.Errorf("depindex: entry not found: %s", d.Path)
	}
	return e.GetData()
}
