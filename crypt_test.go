package packlib

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaskedCStringRoundTrip(t *testing.T) {
	kt := DefaultKeyTable{}
	w := newWriter()
	writeMaskedCString(w, kt, "units_tables.tsv", 16, 3)

	c := newCursor(w.bytes())
	got, err := readMaskedCString(c, kt, 16, 3)
	require.NoError(t, err)
	require.Equal(t, "units_tables.tsv", got)
}

func TestUnmaskPayloadRoundTrip(t *testing.T) {
	kt := DefaultKeyTable{}
	original := []byte("plaintext payload bytes")
	buf := append([]byte(nil), original...)

	unmaskPayload(kt, buf) // mask
	require.NotEqual(t, original, buf)

	unmaskPayload(kt, buf) // unmask: XOR is its own inverse
	require.Equal(t, original, buf)
}

func TestUnmaskIndexLength(t *testing.T) {
	kt := DefaultKeyTable{}
	const reverseIndex = 5
	plain := uint32(1234)
	masked := plain ^ kt.IndexLength(reverseIndex)
	require.Equal(t, plain, unmaskIndexLength(kt, masked, reverseIndex))
}
