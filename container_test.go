package packlib

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modkit/packlib/corelog"
)

func newTestContainer(t *testing.T, path string) *Container {
	t.Helper()
	return &Container{
		Path:     path,
		Revision: RevisionR5,
		Type:     TypeMod,
		opts:     &OpenOptions{},
		log:      corelog.Nop,
	}
}

// TestContainerWriteThenOpenRoundTrip is scenario S1: build a minimal
// archive in memory, write it, reopen it and check the entry survives
// byte-for-byte.
func TestContainerWriteThenOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "test.pack")

	c := newTestContainer(t, dst)
	_, err := c.AddEntry("db/test_tables/data", []byte("row-bytes-here"), CollisionOverwrite)
	require.NoError(t, err)

	require.NoError(t, c.Write(dst, false))

	reopened, err := Open(dst, &OpenOptions{})
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, RevisionR5, reopened.Revision)
	require.Equal(t, TypeMod, reopened.Type)

	e, ok := reopened.ByPath("db/test_tables/data")
	require.True(t, ok)
	data, err := e.GetData()
	require.NoError(t, err)
	require.Equal(t, []byte("row-bytes-here"), data)
}

func TestContainerWriteThenOpenRoundTripCompressed(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "test_compressed.pack")

	c := newTestContainer(t, dst)
	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte(i % 7)
	}
	_, err := c.AddEntry("ui/campaign/banner.png", payload, CollisionOverwrite)
	require.NoError(t, err)

	require.NoError(t, c.Write(dst, true))

	reopened, err := Open(dst, &OpenOptions{})
	require.NoError(t, err)
	defer reopened.Close()

	e, ok := reopened.ByPath("ui/campaign/banner.png")
	require.True(t, ok)
	require.True(t, e.Compressed())
	data, err := e.GetData()
	require.NoError(t, err)
	require.Equal(t, payload, data)
}

func TestContainerAddEntryCollisionPolicies(t *testing.T) {
	c := newTestContainer(t, "in_memory.pack")
	_, err := c.AddEntry("db/units_tables/x", []byte("v1"), CollisionOverwrite)
	require.NoError(t, err)

	p, err := c.AddEntry("db/units_tables/x", []byte("v2"), CollisionRename)
	require.NoError(t, err)
	require.Equal(t, "db/units_tables/x_1", p)

	e, ok := c.ByPath("db/units_tables/x")
	require.True(t, ok)
	data, err := e.GetData()
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), data)

	_, err = c.AddEntry("db/units_tables/x", []byte("v3"), CollisionOverwrite)
	require.NoError(t, err)
	e, _ = c.ByPath("db/units_tables/x")
	data, _ = e.GetData()
	require.Equal(t, []byte("v3"), data)
}

func TestContainerWritableRejectsEncryptedOrNonStandardType(t *testing.T) {
	c := newTestContainer(t, "x.pack")
	c.Flags = FlagEncryptedPayload
	require.Error(t, c.writable())

	c2 := newTestContainer(t, "y.pack")
	c2.Type = TypeRelease
	require.Error(t, c2.writable())

	c2.opts.AllowNonStandardType = true
	require.NoError(t, c2.writable())
}
