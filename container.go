package packlib

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/modkit/packlib/corelog"
)

// OpenOptions configures Open/OpenMulti, mirroring the teacher's Options
// struct: an explicit, no-globals configuration value passed at every entry
// point rather than mutable package state (spec §9).
type OpenOptions struct {
	// Lazy, when true, keeps entry payloads as on-disk handles into the
	// memory-mapped file instead of copying them eagerly (spec §3, §4.C).
	Lazy bool

	// KeyTable supplies the encryption keystreams (spec §4.B). Defaults to
	// DefaultKeyTable when nil.
	KeyTable KeyTable

	// Logger receives parse-time diagnostics. Defaults to corelog.Nop.
	Logger corelog.Logger

	// AllowNonStandardType permits Write to emit containers whose type is
	// Boot/Release/Patch (spec §4.C "or {Boot, Release, Patch} when a
	// permissive flag is set").
	AllowNonStandardType bool
}

func (o *OpenOptions) logger() corelog.Logger {
	if o == nil || o.Logger == nil {
		return corelog.Nop
	}
	return o.Logger
}

func (o *OpenOptions) keys() KeyTable {
	if o == nil || o.KeyTable == nil {
		return DefaultKeyTable{}
	}
	return o.KeyTable
}

// Container is a parsed PackFile archive (spec §3).
type Container struct {
	Path     string
	Revision Revision
	Type     ContainerType
	Flags    Flag
	Saved    time.Time

	Dependencies []string

	entries []*Entry
	notes   []byte

	opts *OpenOptions
	mm   mmap.MMap
	f    *os.File
	log  corelog.Logger
}

// Open parses the container at path, per spec §4.C's header/manifest/index/
// payload walk. Grounded on file.go's New: mmap the file, stage the parse,
// keep going only where the spec allows a recoverable skip (it generally
// does not — container parsing is all-or-nothing unlike the PE directory
// walk it's modeled on).
func Open(path string, opts *OpenOptions) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrap(KindIO, "Open", err)
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, wrap(KindIO, "Open", err)
	}

	c := &Container{
		Path: path,
		opts: opts,
		mm:   data,
		f:    f,
		log:  opts.logger(),
	}
	if err := c.parse(data); err != nil {
		data.Unmap()
		f.Close()
		return nil, err
	}
	return c, nil
}

// NewContainer returns an empty, writable Container of the given revision
// and type, ready for AddEntry calls and a subsequent Write (spec §4.C
// "Operations", supplementing the original editor's PackFile::new /
// new_with_name constructors). It holds no open file descriptor or mapping;
// Write does not open one either. Unlike a container obtained from Open, the caller
// chose typ deliberately, so the Boot/Release/Patch writable-guard that
// protects an opened game archive from an accidental overwrite does not
// apply here.
func NewContainer(path string, rev Revision, typ ContainerType) *Container {
	opts := &OpenOptions{AllowNonStandardType: true}
	return &Container{
		Path:     path,
		Revision: rev,
		Type:     typ,
		opts:     opts,
		log:      opts.logger(),
	}
}

// Close releases the memory mapping and underlying file descriptor.
func (c *Container) Close() error {
	if c.mm != nil {
		_ = c.mm.Unmap()
	}
	if c.f != nil {
		return c.f.Close()
	}
	return nil
}

func (c *Container) parse(data []byte) error {
	h, bodyOffset, err := parseHeader(data)
	if err != nil {
		return err
	}
	c.Revision = h.revision
	c.Type = h.containerType()
	c.Flags = h.flags
	if h.hasTimestamp {
		c.Saved = time.Unix(h.timestampUnix, 0).UTC()
	}

	c.log.Debugf("parsed header: revision=%s type=%s flags=%x", c.Revision, c.Type, uint32(c.Flags))

	off := bodyOffset
	deps, off, err := parseDependencyManifest(data, off, h.depCount)
	if err != nil {
		return err
	}
	c.Dependencies = deps

	entries, off, err := c.parsePayloadIndex(data, off, h)
	if err != nil {
		return err
	}

	reader := newSharedReader(c.mm)
	kt := c.opts.keys()
	name := filepath.Base(c.Path)

	payloadStart := off
	if h.revision == RevisionR5 && h.flags.Has(FlagEncryptedPayload) && h.flags.Has(FlagExtendedHeader) {
		payloadStart = align8(payloadStart)
	}

	built := make([]*Entry, 0, len(entries))
	cursor := payloadStart
	for _, pe := range entries {
		size := int(pe.size)
		if cursor+size > len(data) {
			return wrap(KindFormat, "parse", ErrTruncatedIndex)
		}
		var enc EncryptionMarker
		if h.flags.Has(FlagEncryptedPayload) {
			enc = EncryptionMarker{Present: true, Revision: h.revision}
		}

		var p payload
		if c.opts != nil && c.opts.Lazy {
			p = diskPayload(reader, int64(cursor), int64(size))
		} else {
			raw := append([]byte(nil), data[cursor:cursor+size]...)
			p = memPayload(raw)
		}

		e := newEntry(pe.path, name, pe.timestamp, pe.compressed, enc, p, kt)
		if e.isReservedNotes() {
			notes, err := e.GetData()
			if err != nil {
				return wrap(KindFormat, "parse", err)
			}
			c.notes = notes
		} else {
			built = append(built, e)
		}

		cursor += size
		if h.revision == RevisionR5 && h.flags.Has(FlagEncryptedPayload) && h.flags.Has(FlagExtendedHeader) {
			cursor = align8(cursor)
		}
	}
	c.entries = built
	return nil
}

func align8(n int) int {
	if n%8 == 0 {
		return n
	}
	return n + (8 - n%8)
}

// parsedIndexEntry is the raw per-entry record from the payload index before
// its bytes have been sliced out of the payload region.
type parsedIndexEntry struct {
	size       uint32
	timestamp  int64
	compressed bool
	path       string
}

func parseDependencyManifest(data []byte, off int, count uint32) ([]string, int, error) {
	c := newCursor(data)
	c.off = off
	deps := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		s, err := c.cstring()
		if err != nil {
			return nil, 0, wrap(KindFormat, "parseDependencyManifest", ErrTruncatedIndex)
		}
		deps = append(deps, s)
	}
	return deps, c.off, nil
}

// parsePayloadIndex walks the per-entry records per spec §4.C's per-revision
// table, applying the §4.B masks when the index is flagged encrypted.
func (c *Container) parsePayloadIndex(data []byte, off int, h header) ([]parsedIndexEntry, int, error) {
	cur := newCursor(data)
	cur.off = off
	kt := c.opts.keys()
	encrypted := h.flags.Has(FlagEncryptedIndex)
	total := h.entryCount

	out := make([]parsedIndexEntry, 0, total)
	for i := uint32(0); i < total; i++ {
		reverseIndex := total - 1 - i

		rawSize, err := cur.u32()
		if err != nil {
			return nil, 0, wrap(KindFormat, "parsePayloadIndex", ErrTruncatedIndex)
		}
		size := rawSize
		if encrypted {
			size = unmaskIndexLength(kt, rawSize, reverseIndex)
		}

		var ts int64
		if h.flags.Has(FlagIndexHasTimestamps) {
			switch h.revision {
			case RevisionR3:
				ticks, err := cur.i64()
				if err != nil {
					return nil, 0, wrap(KindFormat, "parsePayloadIndex", ErrTruncatedIndex)
				}
				ts = ticks/10_000_000 - windowsEpochOffsetSeconds
			default:
				v, err := cur.u32()
				if err != nil {
					return nil, 0, wrap(KindFormat, "parsePayloadIndex", ErrTruncatedIndex)
				}
				ts = int64(v)
			}
		}

		var compressed bool
		if h.revision == RevisionR5 && !h.extendedHeader {
			b, err := cur.u8()
			if err != nil {
				return nil, 0, wrap(KindFormat, "parsePayloadIndex", ErrTruncatedIndex)
			}
			compressed = b != 0
		}

		var path string
		if encrypted {
			path, err = readMaskedCString(cur, kt, uint8(size), reverseIndex)
		} else {
			path, err = cur.cstring()
		}
		if err != nil {
			return nil, 0, wrap(KindFormat, "parsePayloadIndex", ErrTruncatedIndex)
		}

		out = append(out, parsedIndexEntry{size: size, timestamp: ts, compressed: compressed, path: path})
	}
	return out, cur.off, nil
}

// Entries returns the container's user-visible entries (the reserved notes
// entry, if any, is never included per spec §4.C).
func (c *Container) Entries() []*Entry { return c.entries }

// Notes returns the container's free-form notes blob, or nil if absent.
func (c *Container) Notes() []byte { return c.notes }

// SetNotes sets the free-form notes blob written on the next Write.
func (c *Container) SetNotes(b []byte) { c.notes = b }

// ByPath does a case-sensitive lookup of an entry by its slash path.
func (c *Container) ByPath(path string) (*Entry, bool) {
	want := strings.Join(splitPath(path), "/")
	for _, e := range c.entries {
		if e.Path() == want {
			return e, true
		}
	}
	return nil, false
}

// ByPathFold does a case-insensitive lookup of an entry by its slash path.
func (c *Container) ByPathFold(path string) (*Entry, bool) {
	want := strings.Join(splitPath(path), "/")
	for _, e := range c.entries {
		if strings.EqualFold(e.Path(), want) {
			return e, true
		}
	}
	return nil, false
}

// ByFolder returns every entry whose path starts with prefix (a folder, not
// necessarily slash-terminated).
func (c *Container) ByFolder(prefix string) []*Entry {
	p := strings.Join(splitPath(prefix), "/")
	if p != "" && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	var out []*Entry
	for _, e := range c.entries {
		if strings.HasPrefix(e.Path(), p) {
			out = append(out, e)
		}
	}
	return out
}

// sortedEntries returns entries ordered by case-insensitive backslash-joined
// path, the order Write requires just before serialization (spec §3, §4.C).
func (c *Container) sortedEntries() []*Entry {
	out := append([]*Entry(nil), c.entries...)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].DiskPath()) < strings.ToLower(out[j].DiskPath())
	})
	return out
}
