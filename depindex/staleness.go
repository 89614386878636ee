package depindex

import "os"

// NeedsUpdating reports whether the vanilla snapshot is stale: the newest
// mtime among the game's on-disk vanilla archive paths exceeds build_date
// (spec §3, §4.G "Staleness", §8 property 7).
func (idx *Index) NeedsUpdating() (bool, error) {
	var newest int64
	for _, p := range idx.vanillaArchivePaths {
		fi, err := os.Stat(p)
		if err != nil {
			return false, err
		}
		mtime := fi.ModTime().Unix()
		if mtime > newest {
			newest = mtime
		}
	}
	return newest > idx.buildDate, nil
}
