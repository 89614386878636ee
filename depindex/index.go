package depindex

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/modkit/packlib"
	"github.com/modkit/packlib/schema"
	"github.com/modkit/packlib/table"
)

// Kind selects which of the two payload types a pre-decode/query call is
// interested in (spec §4.G "fetch-all-of-type").
type Kind int

const (
	KindDB Kind = iota
	KindLoc
)

// Index is the assembled, queryable view over vanilla and parent archives
// (spec §3 "Dependency index"). The decoded caches are guarded by an
// RWMutex (read-many/write-rare); the lazily built case-insensitive/folder
// sets are built once under sync.Once per side (spec §4.G "Case-set
// materialisation (lazy)").
type Index struct {
	schema *schema.Schema

	mu             sync.RWMutex
	vanillaCached  map[string]Descriptor
	parentCached   map[string]Descriptor
	vanillaDecoded map[string]table.Payload
	parentDecoded  map[string]table.Payload

	vanillaOnce sync.Once
	parentOnce  sync.Once
	vanillaSets *caseSets
	parentSets  *caseSets

	archivesMu sync.Mutex
	archives   map[string]*packlib.Container
	openOpts   *packlib.OpenOptions

	assKitOnly []schema.Definition

	// buildDate is wall-clock seconds since epoch when the vanilla side
	// was last built, checked against vanillaArchivePaths' newest mtime by
	// NeedsUpdating (spec §3, §4.G "Staleness").
	buildDate           int64
	vanillaArchivePaths []string
}

// New returns an empty Index bound to sch, used for all reference lookups.
func New(sch *schema.Schema, opts *packlib.OpenOptions) *Index {
	return &Index{
		schema:         sch,
		vanillaCached:  make(map[string]Descriptor),
		parentCached:   make(map[string]Descriptor),
		vanillaDecoded: make(map[string]table.Payload),
		parentDecoded:  make(map[string]table.Payload),
		archives:       make(map[string]*packlib.Container),
		openOpts:       opts,
	}
}

// openArchive returns a cached open *packlib.Container for path, opening it
// lazily on first use (including after a snapshot load, where no archive
// was opened yet this session).
func (idx *Index) openArchive(path string) (*packlib.Container, error) {
	idx.archivesMu.Lock()
	defer idx.archivesMu.Unlock()
	if c, ok := idx.archives[path]; ok {
		return c, nil
	}
	opts := idx.openOpts
	if opts == nil {
		opts = &packlib.OpenOptions{Lazy: true}
	}
	c, err := packlib.Open(path, opts)
	if err != nil {
		return nil, err
	}
	idx.archives[path] = c
	return c, nil
}

// BuildVanilla ingests every game-shipped archive in paths, in overlay-merge
// order, and records a Descriptor per winning entry (spec §4.G "Build").
// build_date is stamped to now.
func (idx *Index) BuildVanilla(paths []string, opts *packlib.OpenOptions) error {
	cached, err := idx.build(paths, opts)
	if err != nil {
		return err
	}
	idx.mu.Lock()
	idx.vanillaCached = cached
	idx.vanillaDecoded = make(map[string]table.Payload)
	idx.mu.Unlock()
	idx.vanillaOnce = sync.Once{}
	idx.vanillaSets = nil
	idx.vanillaArchivePaths = append([]string(nil), paths...)
	idx.buildDate = time.Now().Unix()
	return nil
}

// BuildParent ingests user-selected mod archives. Never persisted (spec
// §4.G "Parent side: ... never persisted").
func (idx *Index) BuildParent(paths []string, opts *packlib.OpenOptions) error {
	cached, err := idx.build(paths, opts)
	if err != nil {
		return err
	}
	idx.mu.Lock()
	idx.parentCached = cached
	idx.parentDecoded = make(map[string]table.Payload)
	idx.mu.Unlock()
	idx.parentOnce = sync.Once{}
	idx.parentSets = nil
	return nil
}

// build opens every archive in paths (read in parallel, per spec §5, then
// assembled serially via packlib's overlay-merge bucketing), returning a
// path -> Descriptor map of the winning entries.
func (idx *Index) build(paths []string, opts *packlib.OpenOptions) (map[string]Descriptor, error) {
	type opened struct {
		c   *packlib.Container
		err error
	}
	results := make([]opened, len(paths))
	var wg sync.WaitGroup
	for i, p := range paths {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			c, err := packlib.Open(p, opts)
			results[i] = opened{c: c, err: err}
		}(i, p)
	}
	wg.Wait()

	containers := make([]*packlib.Container, 0, len(paths))
	nameToPath := make(map[string]string, len(paths))
	for i, r := range results {
		if r.err != nil {
			for _, o := range results[:i] {
				if o.c != nil {
					o.c.Close()
				}
			}
			return nil, r.err
		}
		containers = append(containers, r.c)
		nameToPath[filepath.Base(paths[i])] = paths[i]
	}

	merged := overlayDescriptors(containers)

	idx.archivesMu.Lock()
	for i, c := range containers {
		idx.archives[paths[i]] = c
	}
	idx.archivesMu.Unlock()

	out := make(map[string]Descriptor, len(merged))
	for _, e := range merged {
		archivePath := nameToPath[e.Container()]
		out[e.Path()] = Descriptor{
			Path:        e.Path(),
			ArchivePath: archivePath,
			ArchiveName: e.Container(),
			Size:        e.SizeStored(),
			Compressed:  e.Compressed(),
			Encrypted:   e.Encryption().Present,
			Modified:    e.Modified(),
		}
	}
	return out, nil
}

// overlayDescriptors applies packlib's overlay priority rule to the
// already-open containers' entries directly, avoiding a second disk read.
// Unlike OpenMulti's merge, paths are compared case-sensitively here.
func overlayDescriptors(containers []*packlib.Container) []*packlib.Entry {
	type bucketed struct {
		pri int
		e   *packlib.Entry
	}
	byPath := make(map[string]*packlib.Entry)
	order := make([]string, 0)
	// Bucket by container type priority, matching packlib's overlay rule
	// (Boot < Release < Patch < Mod < Movie); within a bucket earlier read
	// wins, across buckets the later (higher-priority) bucket wins.
	buckets := make(map[int][]*packlib.Container)
	for _, c := range containers {
		buckets[overlayPriorityOf(c)] = append(buckets[overlayPriorityOf(c)], c)
	}
	for pri := 0; pri <= 5; pri++ {
		group := buckets[pri]
		seen := make(map[string]bool)
		for _, c := range group {
			for _, e := range c.Entries() {
				key := e.Path()
				if seen[key] {
					continue
				}
				seen[key] = true
				if _, existed := byPath[key]; !existed {
					order = append(order, key)
				}
				byPath[key] = e
			}
		}
	}
	out := make([]*packlib.Entry, 0, len(order))
	for _, k := range order {
		out = append(out, byPath[k])
	}
	return out
}

func overlayPriorityOf(c *packlib.Container) int {
	switch c.Type {
	case packlib.TypeBoot:
		return 0
	case packlib.TypeRelease:
		return 1
	case packlib.TypePatch:
		return 2
	case packlib.TypeMod:
		return 3
	case packlib.TypeMovie:
		return 4
	default:
		return 5
	}
}

// AddAssKitDefinitions registers auxiliary table definitions used only for
// reference-target discovery (spec §3 asskit_only).
func (idx *Index) AddAssKitDefinitions(defs []schema.Definition) {
	idx.assKitOnly = append(idx.assKitOnly, defs...)
	for _, d := range defs {
		idx.schema.AddAssKitDefinition(d)
	}
}

// BuildDate returns the wall-clock seconds at which the vanilla side was
// last built.
func (idx *Index) BuildDate() int64 { return idx.buildDate }
