package packlib

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// stagedEntry is one entry's on-disk form accumulated during Write, before
// the sort-by-path and concatenation steps in spec §4.C.
type stagedEntry struct {
	path       string
	timestamp  int64
	compressed bool
	data       []byte
}

// writable checks the preconditions spec §4.C's "Write" lists before any
// bytes are produced: encryption or an extended header make a container
// permanently read-only in this implementation, and only a narrow set of
// type codes may be saved.
func (c *Container) writable() error {
	if c.Flags.Has(FlagEncryptedIndex) || c.Flags.Has(FlagEncryptedPayload) {
		return wrap(KindPolicy, "Container.Write", ErrNotEditable)
	}
	if c.Flags.Has(FlagExtendedHeader) {
		return wrap(KindPolicy, "Container.Write", ErrNotEditable)
	}
	switch c.Type {
	case TypeMod, TypeMovie:
		// always writable.
	case TypeBoot, TypeRelease, TypePatch:
		if c.opts == nil || !c.opts.AllowNonStandardType {
			return wrap(KindPolicy, "Container.Write", ErrNotEditable)
		}
	default:
		return wrap(KindPolicy, "Container.Write", ErrNotEditable)
	}
	// Spec §9: R0 never carries a writable bitmask; refuse to write any
	// flag bit for it.
	if c.Revision == RevisionR0 && c.Flags != 0 {
		return wrap(KindPolicy, "Container.Write", ErrNotEditable)
	}
	return nil
}

// Write serialises the container to dst per spec §4.C's ordered step list.
// Only revision R5 supports per-entry compression on write (spec §3);
// compress=true on any other revision returns a Policy-kind error.
func (c *Container) Write(dst string, compress bool) error {
	if err := c.writable(); err != nil {
		return err
	}
	if compress && c.Revision != RevisionR5 {
		return wrap(KindPolicy, "Container.Write", ErrNotEditable)
	}

	// (i) materialise every entry to memory; (iii) decrypt anything still
	// encrypted on read.
	live := append([]*Entry(nil), c.entries...)
	stagedEntries := make([]stagedEntry, 0, len(live))
	for _, e := range live {
		plain, err := e.GetData()
		if err != nil {
			return wrap(KindIO, "Container.Write", err)
		}
		stagedEntries = append(stagedEntries, stagedEntry{
			path:      e.DiskPath(),
			timestamp: e.Modified(),
			data:      plain,
		})
	}

	if len(c.notes) > 0 {
		stagedEntries = append(stagedEntries, stagedEntry{
			path:      reservedNotesPath,
			timestamp: 0,
			data:      c.notes,
		})
	}

	// (ii) transition per-entry compression state to match the target flag.
	for i := range stagedEntries {
		if compress {
			enc, err := compressBlock(stagedEntries[i].data)
			if err != nil {
				return wrap(KindCompression, "Container.Write", err)
			}
			stagedEntries[i].data = enc
			stagedEntries[i].compressed = true
		}
	}

	// (iv) sort entries by case-insensitive backslash-joined path.
	sort.SliceStable(stagedEntries, func(i, j int) bool {
		return diskPathLower(stagedEntries[i].path) < diskPathLower(stagedEntries[j].path)
	})

	now := time.Now()

	idxBuf := newWriter()
	payloadBuf := newWriter()
	for _, s := range stagedEntries {
		idxBuf.putU32(uint32(len(s.data)))
		if c.hasIndexTimestamps() {
			switch c.Revision {
			case RevisionR3:
				ticks := (s.timestamp + windowsEpochOffsetSeconds) * 10_000_000
				idxBuf.putI64(ticks)
			default:
				idxBuf.putU32(uint32(s.timestamp))
			}
		}
		if c.Revision == RevisionR5 {
			idxBuf.putBool(s.compressed)
		}
		idxBuf.putCString(s.path)
		payloadBuf.putRaw(s.data)
	}

	depBuf := newWriter()
	for _, d := range c.Dependencies {
		depBuf.putCString(d)
	}

	out := newWriter()
	// (v) emit header with a freshly stamped timestamp.
	encodeHeader(out, c.Revision, uint32(c.Type), c.Flags,
		uint32(len(c.Dependencies)), uint32(len(depBuf.bytes())),
		uint32(len(stagedEntries)), uint32(len(idxBuf.bytes())), now)
	// (vi) emit dependency manifest.
	out.putRaw(depBuf.bytes())
	// (vii) emit payload index.
	out.putRaw(idxBuf.bytes())
	// (viii) emit payload bytes in the same order.
	out.putRaw(payloadBuf.bytes())

	return atomicWriteFile(dst, out.bytes())
}

func (c *Container) hasIndexTimestamps() bool {
	return c.Flags.Has(FlagIndexHasTimestamps)
}

// atomicWriteFile writes data to a temp file in dst's directory, then
// renames it over dst, so a failed encode never leaves a half-written
// archive in place (spec §7 "Write errors are atomic at the file level").
func atomicWriteFile(dst string, data []byte) error {
	dir := filepath.Dir(dst)
	tmp, err := os.CreateTemp(dir, ".packlib-*.tmp")
	if err != nil {
		return wrap(KindIO, "atomicWriteFile", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return wrap(KindIO, "atomicWriteFile", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return wrap(KindIO, "atomicWriteFile", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return wrap(KindIO, "atomicWriteFile", err)
	}
	return nil
}

// diskPathLower is the case-folded path Write sorts entries by.
func diskPathLower(p string) string { return strings.ToLower(p) }
