package tsv

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modkit/packlib/schema"
	"github.com/modkit/packlib/table"
)

func unitsTablesDef() schema.Definition {
	return schema.Definition{
		Table:   "units_tables",
		Version: 3,
		Fields: []schema.Field{
			{Name: "key", Type: schema.StringU8, IsKey: true},
			{Name: "speed", Type: schema.F32},
			{Name: "is_artillery", Type: schema.Bool},
			{Name: "nickname", Type: schema.OptionalStringU8},
		},
	}
}

// TestExportImportRoundTrip is spec §8 property 3, modulo f32 rounding.
func TestExportImportRoundTrip(t *testing.T) {
	def := unitsTablesDef()
	payload := table.Payload{
		Table:   "units_tables",
		Version: 3,
		Rows: []table.Row{
			{table.StringU8Cell("spearman"), table.F32Cell(1.234), table.BoolCell(false), table.OptionalStringU8Cell("", false)},
			{table.StringU8Cell("cannon"), table.F32Cell(0.5), table.BoolCell(true), table.OptionalStringU8Cell("big gun", true)},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, def, payload))

	imported, err := Import(&buf, def)
	require.NoError(t, err)
	require.Len(t, imported.Rows, 2)

	require.Equal(t, "spearman", imported.Rows[0][0].String())
	require.InDelta(t, 1.234, imported.Rows[0][1].F32(), 1e-3)
	require.False(t, imported.Rows[0][2].Bool())
	require.False(t, imported.Rows[0][3].Present())

	require.Equal(t, "cannon", imported.Rows[1][0].String())
	require.True(t, imported.Rows[1][2].Bool())
	require.True(t, imported.Rows[1][3].Present())
	require.Equal(t, "big gun", imported.Rows[1][3].String())
}

func TestImportRejectsMismatchedTableName(t *testing.T) {
	def := unitsTablesDef()
	in := "wrong_table\t3\nkey\tspeed\tis_artillery\tnickname\n"
	_, err := Import(bytes.NewBufferString(in), def)
	require.Error(t, err)
}

func TestImportRejectsMismatchedVersion(t *testing.T) {
	def := unitsTablesDef()
	in := "units_tables\t99\nkey\tspeed\tis_artillery\tnickname\n"
	_, err := Import(bytes.NewBufferString(in), def)
	require.Error(t, err)
}

func TestImportRejectsFieldCountMismatch(t *testing.T) {
	def := unitsTablesDef()
	in := "units_tables\t3\nkey\tspeed\n" + "spearman\t1.0\n"
	_, err := Import(bytes.NewBufferString(in), def)
	require.Error(t, err)
}

func TestLocTableUsesReservedName(t *testing.T) {
	def := schema.LocDefinition
	payload := table.Payload{
		Table:   "loc",
		Version: 1,
		Rows: []table.Row{
			{table.StringU16Cell("greet"), table.StringU16Cell("Hello"), table.BoolCell(false)},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, def, payload))
	require.Contains(t, buf.String(), LocPackedFile)

	imported, err := Import(&buf, def)
	require.NoError(t, err)
	require.Equal(t, "greet", imported.Rows[0][0].String())
}

func TestManifestExportImportRoundTrip(t *testing.T) {
	deps := []string{"vanilla.pack", "parent_mod.pack"}
	var buf bytes.Buffer
	require.NoError(t, ExportManifest(&buf, deps))

	imported, err := ImportManifest(&buf)
	require.NoError(t, err)
	require.Equal(t, deps, imported)
}

func TestImportManifestRejectsWrongHeader(t *testing.T) {
	_, err := ImportManifest(bytes.NewBufferString("Not_A_Manifest\t1\nname\n"))
	require.Error(t, err)
}
