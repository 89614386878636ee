package table

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modkit/packlib/schema"
)

func testTablesDef() schema.Definition {
	return schema.Definition{
		Table:   "test_tables",
		Version: 3,
		Fields: []schema.Field{
			{Name: "key", Type: schema.StringU8, IsKey: true},
			{Name: "value", Type: schema.I32},
		},
	}
}

// TestDBRoundTrip is spec §8 property 2: decode(encode(D, R)) == R.
func TestDBRoundTrip(t *testing.T) {
	def := testTablesDef()
	payload := Payload{
		Table:   "test_tables",
		Version: 3,
		Rows: []Row{
			{StringU8Cell("row_one"), I32Cell(7)},
			{StringU8Cell("row_two"), I32Cell(9)},
		},
	}

	buf, err := EncodeDB(def, payload)
	require.NoError(t, err)

	decoded, err := DecodeDB("test_tables", def, buf)
	require.NoError(t, err)
	require.Equal(t, payload.Rows, decoded.Rows)
	require.Equal(t, payload.Version, decoded.Version)
}

// TestDBMutateRowReencodeRedecode is scenario S1's table half: mutate one
// row's value and confirm the other rows and their positions are stable.
func TestDBMutateRowReencodeRedecode(t *testing.T) {
	def := testTablesDef()
	rows := []Row{
		{StringU8Cell("a"), I32Cell(1)},
		{StringU8Cell("b"), I32Cell(7)},
		{StringU8Cell("c"), I32Cell(3)},
		{StringU8Cell("d"), I32Cell(4)},
	}
	buf, err := EncodeDB(def, Payload{Table: "test_tables", Version: 3, Rows: rows})
	require.NoError(t, err)

	decoded, err := DecodeDB("test_tables", def, buf)
	require.NoError(t, err)
	decoded.Rows[1][1] = I32Cell(9)

	reencoded, err := EncodeDB(def, decoded)
	require.NoError(t, err)
	redecoded, err := DecodeDB("test_tables", def, reencoded)
	require.NoError(t, err)

	require.EqualValues(t, 9, redecoded.Rows[1][1].I32())
	require.Equal(t, "a", redecoded.Rows[0][0].String())
	require.Equal(t, "c", redecoded.Rows[2][0].String())
	require.Equal(t, "d", redecoded.Rows[3][0].String())
}

func TestDBDecodeRejectsUnknownVersion(t *testing.T) {
	def := testTablesDef()
	def.Version = 5
	buf, err := EncodeDB(schema.Definition{Table: "test_tables", Version: 3, Fields: def.Fields}, Payload{
		Table: "test_tables", Version: 3, Rows: []Row{{StringU8Cell("a"), I32Cell(1)}},
	})
	require.NoError(t, err)

	_, err = DecodeDB("test_tables", def, buf)
	require.ErrorIs(t, err, ErrUnknownVersion)
}

func TestDBEncodeRejectsFieldCountMismatch(t *testing.T) {
	def := testTablesDef()
	_, err := EncodeDB(def, Payload{Table: "test_tables", Version: 3, Rows: []Row{{StringU8Cell("a")}}})
	require.ErrorIs(t, err, ErrFieldCountMismatch)
}

func TestDBRoundTripWithGUID(t *testing.T) {
	def := testTablesDef()
	payload := Payload{
		Table:   "test_tables",
		Version: 3,
		GUID:    "abcd-1234",
		Rows:    []Row{{StringU8Cell("x"), I32Cell(0)}},
	}
	buf, err := EncodeDB(def, payload)
	require.NoError(t, err)

	decoded, err := DecodeDB("test_tables", def, buf)
	require.NoError(t, err)
	require.Equal(t, "abcd-1234", decoded.GUID)
}

func TestPeekDBVersionMatchesDecodedVersion(t *testing.T) {
	def := testTablesDef()
	buf, err := EncodeDB(def, Payload{
		Table: "test_tables", Version: 3, Rows: []Row{{StringU8Cell("a"), I32Cell(1)}},
	})
	require.NoError(t, err)

	v, err := PeekDBVersion(buf)
	require.NoError(t, err)
	require.EqualValues(t, 3, v)
}

// TestLocRoundTrip is spec §8 property 2 applied to Loc tables.
func TestLocRoundTrip(t *testing.T) {
	payload := Payload{
		Table:   "loc",
		Version: 1,
		Rows: []Row{
			{StringU16Cell("greet"), StringU16Cell("Hello"), BoolCell(false)},
			{StringU16Cell("bye"), StringU16Cell(""), BoolCell(false)},
		},
	}
	buf, err := EncodeLoc(payload)
	require.NoError(t, err)

	decoded, err := DecodeLoc(buf)
	require.NoError(t, err)
	require.Equal(t, payload.Rows, decoded.Rows)
}

func TestCombinedKeyTreatsZeroAsEmpty(t *testing.T) {
	def := schema.Definition{
		Table: "test_tables",
		Fields: []schema.Field{
			{Name: "id", Type: schema.I32, IsKey: true},
		},
	}
	key := CombinedKey(def, Row{I32Cell(0)})
	require.Equal(t, "\x1f", key)
}

func TestCombinedKeyForLocUsesKeyAndText(t *testing.T) {
	def := schema.LocDefinition
	row := Row{StringU16Cell("greet"), StringU16Cell("Hello"), BoolCell(false)}
	require.Equal(t, "greet\x00Hello", CombinedKey(def, row))
}
