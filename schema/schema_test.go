package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSchemaAddAndLookup(t *testing.T) {
	s := New()
	def := Definition{Table: "units_tables", Version: 3, Fields: []Field{{Name: "key", Type: StringU8, IsKey: true}}}
	s.Add(def)

	got, ok := s.Lookup("units_tables", 3)
	require.True(t, ok)
	require.Equal(t, def, got)

	_, ok = s.Lookup("units_tables", 4)
	require.False(t, ok)
}

func TestSchemaNewestVersion(t *testing.T) {
	s := New()
	s.Add(Definition{Table: "t", Version: 1})
	s.Add(Definition{Table: "t", Version: 3})
	s.Add(Definition{Table: "t", Version: 2})

	v, ok := s.NewestVersion("t")
	require.True(t, ok)
	require.EqualValues(t, 3, v)

	_, ok = s.NewestVersion("unknown")
	require.False(t, ok)
}

func TestSchemaHasTableAndColumn(t *testing.T) {
	s := New()
	require.False(t, s.HasTable("units_tables"))

	s.Add(Definition{
		Table:   "units_tables",
		Version: 1,
		Fields:  []Field{{Name: "key"}, {Name: "speed"}},
	})
	require.True(t, s.HasTable("units_tables"))
	require.True(t, s.HasColumn("units_tables", "speed"))
	require.False(t, s.HasColumn("units_tables", "nonexistent"))
}

func TestSchemaAssKitOnlyFallback(t *testing.T) {
	s := New()
	require.False(t, s.HasAssKitOnly("campaign_map_playable_areas"))

	s.AddAssKitDefinition(Definition{
		Table:  "campaign_map_playable_areas",
		Fields: []Field{{Name: "name"}},
	})
	require.True(t, s.HasAssKitOnly("campaign_map_playable_areas"))
	require.True(t, s.HasTable("campaign_map_playable_areas"))
	require.True(t, s.HasColumn("campaign_map_playable_areas", "name"))

	// Once a live definition is loaded, the table is no longer "asskit
	// only" even though the asskit definition is still present.
	s.Add(Definition{Table: "campaign_map_playable_areas", Version: 1})
	require.False(t, s.HasAssKitOnly("campaign_map_playable_areas"))
}

func TestKeyFieldIndexes(t *testing.T) {
	def := Definition{
		Fields: []Field{
			{Name: "a", IsKey: true},
			{Name: "b"},
			{Name: "c", IsKey: true},
		},
	}
	require.Equal(t, []int{0, 2}, def.KeyFieldIndexes())
}
