package packlib

import "time"

// header is the decoded, revision-independent form of the fixed-layout
// prefix described in spec §4.C; parseHeader also returns how many bytes it
// actually occupied on disk for the given revision/flag combination so the
// caller can find the dependency-manifest start.
type header struct {
	revision        Revision
	typeCode        uint32
	flags           Flag
	depCount        uint32
	depByteLen      uint32
	entryCount      uint32
	indexByteLen    uint32
	timestampUnix   int64
	hasTimestamp    bool
	extendedHeader  bool
}

// containerType decodes the header's low-nibble type code into a named
// ContainerType; values the format doesn't name are kept as the raw value.
func (h header) containerType() ContainerType {
	return ContainerType(h.typeCode)
}

// parseHeader decodes the fixed header per spec §4.C's per-revision table
// and returns the header plus the offset of the first byte after it (the
// start of the dependency manifest).
func parseHeader(buf []byte) (header, int, error) {
	rev, err := detectRevision(buf)
	if err != nil {
		return header{}, 0, err
	}
	if len(buf) < 24 {
		return header{}, 0, wrap(KindFormat, "parseHeader", ErrTruncatedHeader)
	}
	c := newCursor(buf)
	c.off = 4
	typeAndFlags, err := c.u32()
	if err != nil {
		return header{}, 0, wrap(KindFormat, "parseHeader", ErrTruncatedHeader)
	}
	h := header{revision: rev}
	h.typeCode = typeAndFlags & 0xF
	if rev == RevisionR0 {
		// spec §9: R0 has no on-disk bitmask; zero it regardless of what
		// the high bits happen to contain.
		h.flags = 0
	} else {
		h.flags = Flag(typeAndFlags &^ 0xF)
	}

	h.depCount, err = c.u32()
	if err != nil {
		return header{}, 0, wrap(KindFormat, "parseHeader", ErrTruncatedHeader)
	}
	h.depByteLen, err = c.u32()
	if err != nil {
		return header{}, 0, wrap(KindFormat, "parseHeader", ErrTruncatedHeader)
	}
	h.entryCount, err = c.u32()
	if err != nil {
		return header{}, 0, wrap(KindFormat, "parseHeader", ErrTruncatedHeader)
	}
	h.indexByteLen, err = c.u32()
	if err != nil {
		return header{}, 0, wrap(KindFormat, "parseHeader", ErrTruncatedHeader)
	}

	switch rev {
	case RevisionR0:
		h.hasTimestamp = false
	case RevisionR4, RevisionR5:
		ts, err := c.u32()
		if err != nil {
			return header{}, 0, wrap(KindFormat, "parseHeader", ErrTruncatedHeader)
		}
		h.timestampUnix = int64(ts)
		h.hasTimestamp = true
	case RevisionR3:
		ticks, err := c.i64()
		if err != nil {
			return header{}, 0, wrap(KindFormat, "parseHeader", ErrTruncatedHeader)
		}
		h.timestampUnix = ticks/10_000_000 - windowsEpochOffsetSeconds
		h.hasTimestamp = true
	}

	bodyOffset := c.off
	if rev == RevisionR5 && h.flags.Has(FlagExtendedHeader) {
		h.extendedHeader = true
		if bodyOffset < 48 {
			bodyOffset = 48
		}
	}
	if len(buf) < bodyOffset {
		return header{}, 0, wrap(KindFormat, "parseHeader", ErrTruncatedHeader)
	}
	return h, bodyOffset, nil
}

// encodeHeader writes the fixed header for rev. Callers must have already
// rejected revisions/flags that make the container non-writable (spec
// §4.C "Write").
func encodeHeader(w *writer, rev Revision, typeCode uint32, flags Flag, depCount, depByteLen, entryCount, indexByteLen uint32, ts time.Time) {
	w.putRaw([]byte(rev.String()))
	w.putU32(typeCode&0xF | uint32(flags))
	w.putU32(depCount)
	w.putU32(depByteLen)
	w.putU32(entryCount)
	w.putU32(indexByteLen)
	switch rev {
	case RevisionR0:
		// no timestamp field on disk.
	case RevisionR4, RevisionR5:
		w.putU32(uint32(ts.Unix()))
	case RevisionR3:
		ticks := (ts.Unix() + windowsEpochOffsetSeconds) * 10_000_000
		w.putI64(ticks)
	}
}
