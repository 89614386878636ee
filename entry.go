package packlib

import (
	"io"
	"strings"
	"sync"
)

// EncryptionMarker records, for an entry read from an encrypted container,
// which original revision performed the encryption (spec §3: "absent, or
// the original revision that encrypted it").
type EncryptionMarker struct {
	Present  bool
	Revision Revision
}

// sharedReader is the mutex-guarded handle multiple lazy entries seek into
// concurrently. Grounded on overlay.go's io.SectionReader-over-*os.File
// pattern, generalized from "one trailing overlay region" to "one handle
// per entry" per spec §3's on-disk-handle invariant: many entries share one
// underlying file, so reads must be serialized at the ReaderAt boundary
// (io.ReaderAt implementations backed by mmap are inherently concurrency
// safe; this wrapper also supports a plain *os.File fallback, which is not,
// hence the mutex).
type sharedReader struct {
	mu sync.Mutex
	ra io.ReaderAt
}

func newSharedReader(ra io.ReaderAt) *sharedReader {
	return &sharedReader{ra: ra}
}

func (s *sharedReader) readAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ra.ReadAt(p, off)
}

// onDiskPayload is the lazy-loading half of the Payload variant: a shared
// reader, an absolute offset and the stored (possibly compressed/encrypted)
// size.
type onDiskPayload struct {
	reader *sharedReader
	offset int64
	size   int64
}

// payload is the tagged-union storage for one entry's bytes, per spec §3:
// "owned bytes in memory" or "on-disk handle". Exactly one of the two
// fields is set.
type payload struct {
	mem  []byte
	disk *onDiskPayload
}

func memPayload(b []byte) payload { return payload{mem: b} }

func diskPayload(r *sharedReader, offset, size int64) payload {
	return payload{disk: &onDiskPayload{reader: r, offset: offset, size: size}}
}

func (p payload) isLazy() bool { return p.disk != nil }

// rawBytes returns the stored bytes exactly as found on disk: still
// compressed and/or encrypted if the entry says so. It materialises a lazy
// handle but does not decode it.
func (p *payload) rawBytes() ([]byte, error) {
	if p.mem != nil || p.disk == nil {
		return p.mem, nil
	}
	buf := make([]byte, p.disk.size)
	if p.disk.size > 0 {
		n, err := p.disk.reader.readAt(buf, p.disk.offset)
		if err != nil && int64(n) != p.disk.size {
			return nil, wrap(KindIO, "payload.rawBytes", err)
		}
	}
	// Memoize: once materialised it never reverts to a disk handle (spec
	// §5 "once a decoded entry is memoised it never vanishes").
	p.mem = buf
	p.disk = nil
	return buf, nil
}

// Entry is one payload stored inside a Container (spec §3).
type Entry struct {
	// path components, slash-separated in memory (backslash on disk, per
	// spec §3).
	segments []string

	container string
	modified  int64
	compressed bool
	encryption EncryptionMarker

	payload payload
	keys    KeyTable
}

func newEntry(path string, container string, modified int64, compressed bool, enc EncryptionMarker, p payload, kt KeyTable) *Entry {
	return &Entry{
		segments:   splitPath(path),
		container:  container,
		modified:   modified,
		compressed: compressed,
		encryption: enc,
		payload:    p,
		keys:       kt,
	}
}

// splitPath normalizes a disk (backslash) or in-memory (slash) path into
// slash-separated components.
func splitPath(p string) []string {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// Path returns the entry's logical path using '/' separators, the in-memory
// representation per spec §3.
func (e *Entry) Path() string { return strings.Join(e.segments, "/") }

// DiskPath returns the entry's path using '\' separators, the on-disk
// representation per spec §3/§4.C.
func (e *Entry) DiskPath() string { return strings.Join(e.segments, "\\") }

// Segments returns the path split on '/'.
func (e *Entry) Segments() []string { return append([]string(nil), e.segments...) }

// Container is the name of the container this entry originated from.
func (e *Entry) Container() string { return e.container }

// Modified is the per-entry last-modified timestamp, 0 when the owning
// revision lacks per-entry timestamps.
func (e *Entry) Modified() int64 { return e.modified }

// Compressed reports the entry's compression flag.
func (e *Entry) Compressed() bool { return e.compressed }

// Encryption reports whether, and from which revision, this entry was
// originally encrypted.
func (e *Entry) Encryption() EncryptionMarker { return e.encryption }

// IsLazy reports whether the entry's bytes are still an on-disk handle.
func (e *Entry) IsLazy() bool { return e.payload.isLazy() }

// GetData returns plaintext, uncompressed bytes regardless of how the
// payload is stored (spec §3 invariant). The first read through an on-disk
// handle decrypts then decompresses, in that order (spec §3).
func (e *Entry) GetData() ([]byte, error) {
	raw, err := e.payload.rawBytes()
	if err != nil {
		return nil, err
	}
	out := raw
	if e.encryption.Present {
		out = append([]byte(nil), out...)
		kt := e.keys
		if kt == nil {
			kt = DefaultKeyTable{}
		}
		unmaskPayload(kt, out)
	}
	if e.compressed {
		dec, err := decompressBlock(out)
		if err != nil {
			return nil, wrap(KindCompression, "Entry.GetData", err)
		}
		out = dec
	}
	return out, nil
}

// SetData replaces the entry's contents with plaintext bytes, clearing any
// lazy handle and encryption/compression markers (the entry is no longer
// encrypted once overwritten in memory; callers that Write with compression
// on will re-compress per the target container's flag).
func (e *Entry) SetData(b []byte) {
	e.payload = memPayload(b)
	e.encryption = EncryptionMarker{}
	e.compressed = false
}

// SizeStored reports the on-disk size of the payload as stored (compressed/
// encrypted), without materialising it, useful for index accounting.
func (e *Entry) SizeStored() int64 {
	if e.payload.disk != nil {
		return e.payload.disk.size
	}
	return int64(len(e.payload.mem))
}

// isReservedNotes reports whether this entry is the synthetic notes blob
// that must never appear in the user-visible entry list (spec §4.C).
func (e *Entry) isReservedNotes() bool {
	return e.DiskPath() == reservedNotesPath
}
