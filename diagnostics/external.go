package diagnostics

// GameCatalogue is the consumed interface spec §6 names: a per-game
// provider of the vanilla archive paths, the banned-table list, the
// vanilla-naming rule used for datacoring detection, and the default
// executable path. Out of scope per spec §1; only the interface is
// specified here, satisfied by the editor layer.
type GameCatalogue interface {
	VanillaArchivePaths() []string
	BannedTables() []string
	// DatacoringName returns the vanilla-naming rule for table: either a
	// fixed archive file name, or sameAsFolder=true meaning the archive
	// must be named after the table's containing folder (spec §4.H
	// TableIsDataCoring, glossary "Datacoring").
	DatacoringName(table string) (fixedName string, sameAsFolder bool)
	DefaultExecutablePath() string
}

// SettingsStore is the consumed interface returning whether vanilla
// archives may be edited (spec §6).
type SettingsStore interface {
	AllowEditingVanilla() bool
}
