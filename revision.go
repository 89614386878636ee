package packlib

// Revision identifies one of the four known on-disk container formats,
// selected by the file's 4-byte magic (spec §4.C, §6).
type Revision uint32

// Known revisions, named by their magic word.
const (
	RevisionUnknown Revision = iota
	RevisionR0
	RevisionR3
	RevisionR4
	RevisionR5
)

const (
	magicR0 = "PFH0"
	magicR3 = "PFH3"
	magicR4 = "PFH4"
	magicR5 = "PFH5"
)

// magicRevision maps the four recognised magic words to their Revision, the
// same map-keyed-dispatch idiom pe.go uses for ImageDirectoryEntry lookups.
var magicRevision = map[string]Revision{
	magicR0: RevisionR0,
	magicR3: RevisionR3,
	magicR4: RevisionR4,
	magicR5: RevisionR5,
}

var revisionMagic = map[Revision]string{
	RevisionR0: magicR0,
	RevisionR3: magicR3,
	RevisionR4: magicR4,
	RevisionR5: magicR5,
}

func (r Revision) String() string {
	if m, ok := revisionMagic[r]; ok {
		return m
	}
	return "unknown"
}

// detectRevision reads the first four bytes of buf and returns the matching
// Revision, or ErrBadMagic if none match.
func detectRevision(buf []byte) (Revision, error) {
	if len(buf) < 4 {
		return RevisionUnknown, wrap(KindFormat, "detectRevision", ErrBadMagic)
	}
	rev, ok := magicRevision[string(buf[:4])]
	if !ok {
		return RevisionUnknown, wrap(KindFormat, "detectRevision", ErrBadMagic)
	}
	return rev, nil
}

// ContainerType is the named family a container belongs to. Values 0..4 are
// named by the format; anything else is carried as Other.
type ContainerType uint32

// Named container types, per spec §3. The low nibble of header offset 4
// holds this value; raw values the format doesn't name are carried as-is and
// print as "Other".
const (
	TypeBoot ContainerType = iota
	TypeRelease
	TypePatch
	TypeMod
	TypeMovie
	// TypeSynthetic marks a virtual, non-editable container produced by
	// OpenMulti's overlay merge (spec §4.C "synthetic type code 200").
	TypeSynthetic ContainerType = 200
)

func (t ContainerType) String() string {
	switch t {
	case TypeBoot:
		return "Boot"
	case TypeRelease:
		return "Release"
	case TypePatch:
		return "Patch"
	case TypeMod:
		return "Mod"
	case TypeMovie:
		return "Movie"
	case TypeSynthetic:
		return "Synthetic"
	default:
		return "Other"
	}
}

// overlayPriority orders container types for the overlay-merge bucketing
// rule in spec §4.C: "Boot < Release < Patch < Mod < Movie". Types outside
// this named set sort after Movie, so they win an overlay over every named
// type.
func overlayPriority(t ContainerType) int {
	switch t {
	case TypeBoot:
		return 0
	case TypeRelease:
		return 1
	case TypePatch:
		return 2
	case TypeMod:
		return 3
	case TypeMovie:
		return 4
	default:
		return 5
	}
}

// Flag is one bit of the container's attribute bitmask (spec §3, §4.C).
type Flag uint32

// Named flag bits. The low nibble of header offset 4 is the type code; the
// remaining high bits are this bitmask. Values match rpfm_lib's PFHFlags
// (original_source/rpfm_lib/src/packfile/mod.rs): bit4 encrypted data, bit6
// index has timestamps, bit7 encrypted index, bit8 extended header.
const (
	FlagEncryptedPayload   Flag = 1 << 4
	FlagIndexHasTimestamps Flag = 1 << 6
	FlagEncryptedIndex     Flag = 1 << 7
	FlagExtendedHeader     Flag = 1 << 8
)

// Has reports whether bit is set in the bitmask.
func (m Flag) Has(bit Flag) bool { return m&bit != 0 }

// windowsEpochOffsetSeconds is the constant subtracted from an R3
// Windows-FILETIME-in-seconds timestamp to yield Unix seconds (spec §6).
const windowsEpochOffsetSeconds = 11644473600

// reservedNotesPath is the entry path synthesised to carry the container's
// notes blob and hidden from the user-visible entry list (spec §4.C).
const reservedNotesPath = "frodos_biggest_secret.rpfm-notes"
