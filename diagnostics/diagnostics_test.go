package diagnostics

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modkit/packlib"
	"github.com/modkit/packlib/depindex"
	"github.com/modkit/packlib/schema"
	"github.com/modkit/packlib/table"
)

func writeFixturePack(t *testing.T, dir, name string, typ packlib.ContainerType, entries map[string][]byte) string {
	t.Helper()
	dst := filepath.Join(dir, name)
	c := packlib.NewContainer(dst, packlib.RevisionR5, typ)
	for p, data := range entries {
		_, err := c.AddEntry(p, data, packlib.CollisionOverwrite)
		require.NoError(t, err)
	}
	require.NoError(t, c.Write(dst, false))
	return dst
}

func encodedUnitsTable(t *testing.T, def schema.Definition, rows []table.Row) []byte {
	t.Helper()
	buf, err := table.EncodeDB(def, table.Payload{Table: def.Table, Version: def.Version, Rows: rows})
	require.NoError(t, err)
	return buf
}

func encodedLoc(t *testing.T, rows []table.Row) []byte {
	t.Helper()
	buf, err := table.EncodeLoc(table.Payload{Table: "loc", Version: 1, Rows: rows})
	require.NoError(t, err)
	return buf
}

func unitsDef() schema.Definition {
	return schema.Definition{
		Table:   "units_tables",
		Version: 1,
		Fields: []schema.Field{
			{Name: "key", Type: schema.StringU8, IsKey: true},
			{Name: "speed", Type: schema.I32},
		},
	}
}

func okCfg() ConfigState {
	return ConfigState{CacheGenerated: true, GamePathCorrect: true}
}

// TestConfigChecksBlockTheRest covers two of the blocking config codes
// (NotGenerated and Outdated): each is the only diagnostic of its run
// (spec §4.H "Config checks").
func TestConfigChecksBlockTheRest(t *testing.T) {
	dir := t.TempDir()
	path := writeFixturePack(t, dir, "mymod.pack", packlib.TypeMod, map[string][]byte{
		"db/units_tables/x": encodedUnitsTable(t, unitsDef(), []table.Row{{table.StringU8Cell("spearman"), table.I32Cell(3)}}),
	})
	c, err := packlib.Open(path, &packlib.OpenOptions{})
	require.NoError(t, err)
	defer c.Close()

	sch := schema.New()
	sch.Add(unitsDef())
	idx := depindex.New(sch, &packlib.OpenOptions{})
	eng := New(sch, idx, Options{})

	ds := eng.Run(c, ConfigState{CacheGenerated: false, GamePathCorrect: true})
	require.Len(t, ds, 1)
	require.Equal(t, CodeDependenciesCacheNotGenerated, ds[0].Code)

	ds = eng.Run(c, ConfigState{CacheGenerated: true, CacheOutdated: true, GamePathCorrect: true})
	require.Len(t, ds, 1)
	require.Equal(t, CodeDependenciesCacheOutdated, ds[0].Code)
}

// TestInvalidPackFileNameOnSpacedName is scenario S5.
func TestInvalidPackFileNameOnSpacedName(t *testing.T) {
	dir := t.TempDir()
	spaced := writeFixturePack(t, dir, "my mod.pack", packlib.TypeMod, nil)
	underscored := writeFixturePack(t, dir, "my_mod.pack", packlib.TypeMod, nil)

	sch := schema.New()
	idx := depindex.New(sch, &packlib.OpenOptions{})
	eng := New(sch, idx, Options{})

	c, err := packlib.Open(spaced, &packlib.OpenOptions{})
	require.NoError(t, err)
	defer c.Close()
	ds := eng.Run(c, okCfg())
	require.Len(t, ds, 1)
	require.Equal(t, CodeInvalidPackFileName, ds[0].Code)
	require.Equal(t, "", ds[0].Path)

	c2, err := packlib.Open(underscored, &packlib.OpenOptions{})
	require.NoError(t, err)
	defer c2.Close()
	ds2 := eng.Run(c2, okCfg())
	require.Empty(t, ds2)
}

// TestLocDuplicatedRow is scenario S3: two Loc entries sharing the same
// (key, text) pair both get flagged, with no EmptyRow since the key is
// present.
func TestLocDuplicatedRow(t *testing.T) {
	dir := t.TempDir()
	row := []table.Row{{table.StringU16Cell("greeting"), table.StringU16Cell("Hello"), table.BoolCell(false)}}
	path := writeFixturePack(t, dir, "mymod.pack", packlib.TypeMod, map[string][]byte{
		"text/a.loc": encodedLoc(t, row),
		"text/b.loc": encodedLoc(t, row),
	})

	sch := schema.New()
	idx := depindex.New(sch, &packlib.OpenOptions{})
	eng := New(sch, idx, Options{})

	c, err := packlib.Open(path, &packlib.OpenOptions{})
	require.NoError(t, err)
	defer c.Close()

	ds := eng.Run(c, okCfg())
	var dupes []Diagnostic
	for _, d := range ds {
		if d.Code == CodeDuplicatedRow {
			dupes = append(dupes, d)
		}
		require.NotEqual(t, CodeLocEmptyRow, d.Code)
	}
	require.Len(t, dupes, 2)
}

// TestReferenceChecksNoReferenceTableFound exercises NoReferenceTableFound
// when the referenced table is unknown to the schema.
func TestReferenceChecksNoReferenceTableFound(t *testing.T) {
	def := schema.Definition{
		Table:   "units_tables",
		Version: 1,
		Fields: []schema.Field{
			{Name: "key", Type: schema.StringU8, IsKey: true},
			{Name: "unit_category", Type: schema.StringU8, Reference: &schema.Reference{Table: "unit_categories", Column: "key"}},
		},
	}
	dir := t.TempDir()
	path := writeFixturePack(t, dir, "mymod.pack", packlib.TypeMod, map[string][]byte{
		"db/units_tables/x": encodedUnitsTable(t, def, []table.Row{{table.StringU8Cell("spearman"), table.StringU8Cell("infantry")}}),
	})

	sch := schema.New()
	sch.Add(def)
	idx := depindex.New(sch, &packlib.OpenOptions{})
	eng := New(sch, idx, Options{})

	c, err := packlib.Open(path, &packlib.OpenOptions{})
	require.NoError(t, err)
	defer c.Close()

	ds := eng.Run(c, okCfg())
	found := false
	for _, d := range ds {
		if d.Code == CodeNoReferenceTableFound {
			found = true
		}
	}
	require.True(t, found)
}

// TestInvalidReferenceAgainstBuiltIndex exercises the InvalidReference
// pass/fail paths once the referenced table's rows are actually reachable
// through a built dependency index.
func TestInvalidReferenceAgainstBuiltIndex(t *testing.T) {
	targetDef := schema.Definition{
		Table:   "unit_categories",
		Version: 1,
		Fields:  []schema.Field{{Name: "key", Type: schema.StringU8, IsKey: true}},
	}
	sourceDef := schema.Definition{
		Table:   "units_tables",
		Version: 1,
		Fields: []schema.Field{
			{Name: "key", Type: schema.StringU8, IsKey: true},
			{Name: "unit_category", Type: schema.StringU8, Reference: &schema.Reference{Table: "unit_categories", Column: "key"}},
		},
	}

	dir := t.TempDir()
	vanilla := writeFixturePack(t, dir, "vanilla.pack", packlib.TypeRelease, map[string][]byte{
		"db/unit_categories/x": encodedUnitsTable(t, targetDef, []table.Row{
			{table.StringU8Cell("infantry")},
			{table.StringU8Cell("cavalry")},
		}),
	})
	mod := writeFixturePack(t, dir, "mymod.pack", packlib.TypeMod, map[string][]byte{
		"db/units_tables/x": encodedUnitsTable(t, sourceDef, []table.Row{
			{table.StringU8Cell("spearman"), table.StringU8Cell("infantry")},
			{table.StringU8Cell("catapult"), table.StringU8Cell("siege")},
		}),
	})

	sch := schema.New()
	sch.Add(sourceDef)
	sch.Add(targetDef)
	idx := depindex.New(sch, &packlib.OpenOptions{})
	require.NoError(t, idx.BuildVanilla([]string{vanilla}, &packlib.OpenOptions{}))
	eng := New(sch, idx, Options{})

	c, err := packlib.Open(mod, &packlib.OpenOptions{})
	require.NoError(t, err)
	defer c.Close()

	ds := eng.Run(c, okCfg())
	var bad []Diagnostic
	for _, d := range ds {
		if d.Code == CodeInvalidReference {
			bad = append(bad, d)
		}
	}
	require.Len(t, bad, 1)
}

// TestReferenceChecksNoReferenceTableNorColumnFoundVariants is scenario S4:
// the referenced table is known but lacks the referenced column; the
// emitted code depends on whether an assembly-kit definition is loaded.
func TestReferenceChecksNoReferenceTableNorColumnFoundVariants(t *testing.T) {
	targetDef := schema.Definition{
		Table:   "unit_categories",
		Version: 1,
		Fields:  []schema.Field{{Name: "name", Type: schema.StringU8, IsKey: true}},
	}
	sourceDef := schema.Definition{
		Table:   "units_tables",
		Version: 1,
		Fields: []schema.Field{
			{Name: "key", Type: schema.StringU8, IsKey: true},
			{Name: "unit_category", Type: schema.StringU8, Reference: &schema.Reference{Table: "unit_categories", Column: "key"}},
		},
	}
	dir := t.TempDir()
	path := writeFixturePack(t, dir, "mymod.pack", packlib.TypeMod, map[string][]byte{
		"db/units_tables/x": encodedUnitsTable(t, sourceDef, []table.Row{{table.StringU8Cell("spearman"), table.StringU8Cell("infantry")}}),
	})

	sch := schema.New()
	sch.Add(sourceDef)
	sch.Add(targetDef)
	idx := depindex.New(sch, &packlib.OpenOptions{})
	eng := New(sch, idx, Options{AssKitLoaded: false})

	c, err := packlib.Open(path, &packlib.OpenOptions{})
	require.NoError(t, err)
	defer c.Close()

	ds := eng.Run(c, okCfg())
	gotNoPak := false
	for _, d := range ds {
		if d.Code == CodeNoReferenceTableNorColumnFoundNoPak {
			gotNoPak = true
		}
		require.NotEqual(t, CodeNoReferenceTableNorColumnFoundPak, d.Code)
	}
	require.True(t, gotNoPak)

	engWithKit := New(sch, idx, Options{AssKitLoaded: true})
	ds2 := engWithKit.Run(c, okCfg())
	gotPak := false
	for _, d := range ds2 {
		if d.Code == CodeNoReferenceTableNorColumnFoundPak {
			gotPak = true
		}
		require.NotEqual(t, CodeNoReferenceTableNorColumnFoundNoPak, d.Code)
	}
	require.True(t, gotPak)
}

// TestFieldWithPathNotFoundWildcardAndSplit is scenario S6: a bare "*"
// always resolves; a ";"-split multi-path resolves if any candidate exists
// locally, in the parent index, or in the vanilla index.
func TestFieldWithPathNotFoundWildcardAndSplit(t *testing.T) {
	def := schema.Definition{
		Table:   "units_tables",
		Version: 1,
		Fields: []schema.Field{
			{Name: "key", Type: schema.StringU8, IsKey: true},
			{Name: "icon", Type: schema.StringU8, IsFilename: true},
		},
	}
	dir := t.TempDir()
	path := writeFixturePack(t, dir, "mymod.pack", packlib.TypeMod, map[string][]byte{
		"db/units_tables/x": encodedUnitsTable(t, def, []table.Row{
			{table.StringU8Cell("wild"), table.StringU8Cell("*")},
			{table.StringU8Cell("missing"), table.StringU8Cell("ui/nonexistent.png;ui/also_missing.png")},
			{table.StringU8Cell("present"), table.StringU8Cell("ui/also_missing.png;ui/icons/spearman.png")},
		}),
		"ui/icons/spearman.png": []byte("fake-png-bytes"),
	})

	sch := schema.New()
	sch.Add(def)
	idx := depindex.New(sch, &packlib.OpenOptions{})
	eng := New(sch, idx, Options{})

	c, err := packlib.Open(path, &packlib.OpenOptions{})
	require.NoError(t, err)
	defer c.Close()

	ds := eng.Run(c, okCfg())
	count := 0
	for _, d := range ds {
		if d.Code == CodeFieldWithPathNotFound {
			count++
		}
	}
	require.Equal(t, 1, count) // only the "missing" row fails to resolve
}

// TestEngineRunIsIdempotent is spec §8 property 8: running Run twice on the
// same inputs yields byte-identical output.
func TestEngineRunIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeFixturePack(t, dir, "mymod.pack", packlib.TypeMod, map[string][]byte{
		"db/units_tables/x": encodedUnitsTable(t, unitsDef(), []table.Row{
			{table.StringU8Cell("spearman"), table.I32Cell(3)},
			{table.StringU8Cell(""), table.I32Cell(0)},
		}),
	})

	sch := schema.New()
	sch.Add(unitsDef())
	idx := depindex.New(sch, &packlib.OpenOptions{})
	eng := New(sch, idx, Options{})

	c, err := packlib.Open(path, &packlib.OpenOptions{})
	require.NoError(t, err)
	defer c.Close()

	first := eng.Run(c, okCfg())
	second := eng.Run(c, okCfg())
	require.Equal(t, first, second)
}

// TestEngineUpdateIncrementalEquivalence is spec §8 property 9: Update with
// every entry listed as changed equals a full Run.
func TestEngineUpdateIncrementalEquivalence(t *testing.T) {
	dir := t.TempDir()
	path := writeFixturePack(t, dir, "mymod.pack", packlib.TypeMod, map[string][]byte{
		"db/units_tables/x": encodedUnitsTable(t, unitsDef(), []table.Row{
			{table.StringU8Cell("spearman"), table.I32Cell(3)},
		}),
		"text/a.loc": encodedLoc(t, []table.Row{{table.StringU16Cell("k"), table.StringU16Cell("v"), table.BoolCell(false)}}),
	})

	sch := schema.New()
	sch.Add(unitsDef())
	idx := depindex.New(sch, &packlib.OpenOptions{})

	eng := New(sch, idx, Options{})
	c, err := packlib.Open(path, &packlib.OpenOptions{})
	require.NoError(t, err)
	defer c.Close()

	full := eng.Run(c, okCfg())

	eng2 := New(sch, idx, Options{})
	baseline := eng2.Run(c, okCfg())
	updated := eng2.Update(c, okCfg(), baseline, []string{"db/units_tables/x", "text/a.loc"})

	require.ElementsMatch(t, full, updated)
}

// TestForPathReturnsLastRunDiagnostics exercises the incremental consumer
// path a UI would use to annotate a single open entry.
func TestForPathReturnsLastRunDiagnostics(t *testing.T) {
	dir := t.TempDir()
	path := writeFixturePack(t, dir, "mymod.pack", packlib.TypeMod, map[string][]byte{
		"db/units_tables/x": encodedUnitsTable(t, unitsDef(), []table.Row{
			{table.StringU8Cell(""), table.I32Cell(0)},
		}),
	})

	sch := schema.New()
	sch.Add(unitsDef())
	idx := depindex.New(sch, &packlib.OpenOptions{})
	eng := New(sch, idx, Options{})

	c, err := packlib.Open(path, &packlib.OpenOptions{})
	require.NoError(t, err)
	defer c.Close()

	eng.Run(c, okCfg())
	ds := eng.ForPath("db/units_tables/x")
	require.NotEmpty(t, ds)

	require.Empty(t, eng.ForPath("no/such/path"))
}
