package depindex

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"sync"

	"github.com/modkit/packlib/table"
)

// snapshotExt is the on-disk extension for a persisted vanilla snapshot
// (spec §3 "pak2", §6).
const snapshotExt = ".pak2"

// snapshotData is the gob-encoded payload of a snapshot file. No retrieved
// example library in the pack offers a binary snapshot-serialisation
// format that fits this shape (a flat path -> Descriptor map, one int64 and
// a list of archive paths), so this is the one place depindex reaches for the standard
// library's encoding/gob rather than a third-party codec (see DESIGN.md).
type snapshotData struct {
	BuildDate           int64
	Descriptors         map[string]Descriptor
	VanillaArchivePaths []string
}

// SnapshotPath returns the per-user, per-game snapshot file path under dir
// (a caller-supplied per-user configuration directory, spec §6).
func SnapshotPath(dir, gameID string) string {
	return filepath.Join(dir, gameID+snapshotExt)
}

// SaveSnapshot persists the vanilla side's cached descriptors and build
// date to path (spec §4.G "serialise the resulting map plus build_date to
// an on-disk snapshot").
func (idx *Index) SaveSnapshot(path string) error {
	idx.mu.RLock()
	data := snapshotData{
		BuildDate:           idx.buildDate,
		Descriptors:         cloneDescriptors(idx.vanillaCached),
		VanillaArchivePaths: append([]string(nil), idx.vanillaArchivePaths...),
	}
	idx.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(data)
}

// LoadSnapshot loads a previously saved vanilla snapshot from path,
// replacing the index's current vanilla side. Callers should check
// NeedsUpdating afterwards (spec §3, §4.G).
func (idx *Index) LoadSnapshot(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var data snapshotData
	if err := gob.NewDecoder(f).Decode(&data); err != nil {
		return err
	}

	idx.mu.Lock()
	idx.vanillaCached = data.Descriptors
	idx.vanillaDecoded = make(map[string]table.Payload)
	idx.buildDate = data.BuildDate
	idx.vanillaArchivePaths = data.VanillaArchivePaths
	idx.mu.Unlock()

	idx.vanillaOnce = sync.Once{}
	idx.vanillaSets = nil
	return nil
}

func cloneDescriptors(m map[string]Descriptor) map[string]Descriptor {
	out := make(map[string]Descriptor, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
