package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAssKitDefinitions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "asskit.tsv")
	content := "# comment line\n" +
		"units_tables\t3\tkey,name,speed\n" +
		"\n" +
		"campaign_map_playable_areas\t1\tname\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	defs, err := LoadAssKitDefinitions(path)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	require.Equal(t, "units_tables", defs[0].Table)
	require.Len(t, defs[0].Fields, 3)
	require.Equal(t, "key", defs[0].Fields[0].Name)
	require.Equal(t, StringU8, defs[0].Fields[0].Type)

	require.Equal(t, "campaign_map_playable_areas", defs[1].Table)
	require.Len(t, defs[1].Fields, 1)
}

func TestLoadAssKitDefinitionsMissingFile(t *testing.T) {
	_, err := LoadAssKitDefinitions(filepath.Join(t.TempDir(), "missing.tsv"))
	require.Error(t, err)
}
