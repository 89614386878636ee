package packlib

import (
	"fmt"
	"path"
	"strings"
)

// collisionPolicy controls what AddEntry does when a path already exists.
type collisionPolicy int

const (
	// CollisionOverwrite replaces the existing entry's data in place.
	CollisionOverwrite collisionPolicy = iota
	// CollisionRename appends "_N" to the stem, preserving the extension,
	// until an unused path is found (spec §4.C "add-entry with
	// overwrite-or-rename-on-collision policy").
	CollisionRename
)

// AddEntry inserts data at path, resolving a collision with an existing
// entry according to policy. Returns the path actually used (unchanged
// unless CollisionRename picked a new one).
func (c *Container) AddEntry(p string, data []byte, policy collisionPolicy) (string, error) {
	norm := strings.Join(splitPath(p), "/")
	if idx := c.indexOfPath(norm); idx >= 0 {
		switch policy {
		case CollisionOverwrite:
			c.entries[idx].SetData(data)
			return norm, nil
		case CollisionRename:
			norm = c.nextAvailableName(norm)
		}
	}
	e := newEntry(norm, baseName(c.Path), 0, false, EncryptionMarker{}, memPayload(data), c.opts.keys())
	c.entries = append(c.entries, e)
	return norm, nil
}

// nextAvailableName appends "_N" to p's stem (preserving its extension)
// until the result is not already present.
func (c *Container) nextAvailableName(p string) string {
	ext := path.Ext(p)
	stem := strings.TrimSuffix(p, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if c.indexOfPath(candidate) < 0 {
			return candidate
		}
	}
}

func (c *Container) indexOfPath(norm string) int {
	for i, e := range c.entries {
		if e.Path() == norm {
			return i
		}
	}
	return -1
}

// RenameEntry moves the entry at oldPath to newPath, applying policy on
// collision exactly like AddEntry.
func (c *Container) RenameEntry(oldPath, newPath string, policy collisionPolicy) (string, error) {
	idx := c.indexOfPath(strings.Join(splitPath(oldPath), "/"))
	if idx < 0 {
		return "", wrap(KindNotFound, "Container.RenameEntry", fmt.Errorf("entry %q not found", oldPath))
	}
	norm := strings.Join(splitPath(newPath), "/")
	if existing := c.indexOfPath(norm); existing >= 0 && existing != idx {
		switch policy {
		case CollisionOverwrite:
			c.entries = append(c.entries[:existing], c.entries[existing+1:]...)
			if existing < idx {
				idx--
			}
		case CollisionRename:
			norm = c.nextAvailableName(norm)
		}
	}
	c.entries[idx].segments = splitPath(norm)
	return norm, nil
}

// RenameFolder renames every entry under oldPrefix to live under newPrefix,
// applying policy per moved entry on collision.
func (c *Container) RenameFolder(oldPrefix, newPrefix string, policy collisionPolicy) error {
	oldP := strings.Join(splitPath(oldPrefix), "/")
	newP := strings.Join(splitPath(newPrefix), "/")
	matches := c.ByFolder(oldP)
	for _, e := range matches {
		rest := strings.TrimPrefix(e.Path(), oldP+"/")
		target := newP + "/" + rest
		if _, err := c.RenameEntry(e.Path(), target, policy); err != nil {
			return err
		}
	}
	return nil
}

// ExtractKind selects what ExtractByType/RemoveByType operate on.
type ExtractKind int

const (
	ExtractFile ExtractKind = iota
	ExtractFolder
	ExtractWhole
)

// ExtractByType returns the bytes for matching entries. For ExtractFile,
// target is an exact path; for ExtractFolder, a prefix; ExtractWhole
// ignores target and returns every entry.
func (c *Container) ExtractByType(kind ExtractKind, target string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	var matches []*Entry
	switch kind {
	case ExtractFile:
		if e, ok := c.ByPath(target); ok {
			matches = []*Entry{e}
		}
	case ExtractFolder:
		matches = c.ByFolder(target)
	case ExtractWhole:
		matches = c.entries
	}
	for _, e := range matches {
		data, err := e.GetData()
		if err != nil {
			return nil, wrap(KindIO, "Container.ExtractByType", err)
		}
		out[e.Path()] = data
	}
	return out, nil
}

// RemoveByType deletes matching entries from the container in memory.
func (c *Container) RemoveByType(kind ExtractKind, target string) int {
	var keep []*Entry
	removed := 0
	norm := strings.Join(splitPath(target), "/")
	folder := norm
	if folder != "" && !strings.HasSuffix(folder, "/") {
		folder += "/"
	}
	for _, e := range c.entries {
		drop := false
		switch kind {
		case ExtractFile:
			drop = e.Path() == norm
		case ExtractFolder:
			drop = strings.HasPrefix(e.Path(), folder)
		case ExtractWhole:
			drop = true
		}
		if drop {
			removed++
			continue
		}
		keep = append(keep, e)
	}
	c.entries = keep
	return removed
}

// ToggleCompression flips every entry's compressed bytes to match on: it
// decompresses (leaving plaintext, compressed=false) or, for an R5
// container, recompresses (compressed=true). Matches "toggle compression
// globally" in spec §4.C.
func (c *Container) ToggleCompression(on bool) error {
	if on && c.Revision != RevisionR5 {
		return wrap(KindPolicy, "Container.ToggleCompression", ErrNotEditable)
	}
	for _, e := range c.entries {
		plain, err := e.GetData()
		if err != nil {
			return wrap(KindIO, "Container.ToggleCompression", err)
		}
		e.SetData(plain)
		if on {
			enc, err := compressBlock(plain)
			if err != nil {
				return wrap(KindCompression, "Container.ToggleCompression", err)
			}
			e.payload = memPayload(enc)
			e.compressed = true
		}
	}
	return nil
}

func baseName(p string) string {
	i := strings.LastIndexAny(p, "/\\")
	if i < 0 {
		return p
	}
	return p[i+1:]
}
