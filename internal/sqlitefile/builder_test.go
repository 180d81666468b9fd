package sqlitefile

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

// rawText is a TEXT value written to the record byte for byte.
type rawText []byte

func appendVarint(b []byte, v uint64) []byte {
	if v <= 0x7f {
		return append(b, byte(v))
	}
	var groups []byte
	for v > 0 {
		groups = append(groups, byte(v&0x7f))
		v >>= 7
	}
	for i := len(groups) - 1; i >= 0; i-- {
		c := groups[i]
		if i > 0 {
			c |= 0x80
		}
		b = append(b, c)
	}
	return b
}

// encodeRecord builds a record from nil, int64, string and rawText values.
func encodeRecord(values ...any) []byte {
	var types, body []byte
	for _, v := range values {
		switch v := v.(type) {
		case nil:
			types = appendVarint(types, 0)
		case int64:
			types = appendVarint(types, 6)
			body = binary.BigEndian.AppendUint64(body, uint64(v))
		case string:
			types = appendVarint(types, uint64(13+2*len(v)))
			body = append(body, v...)
		case rawText:
			types = appendVarint(types, uint64(13+2*len(v)))
			body = append(body, v...)
		}
	}
	rec := appendVarint(nil, uint64(len(types)+1))
	rec = append(rec, types...)
	return append(rec, body...)
}

// buildSinglePageDB returns a one-page database whose schema leaf holds
// one cell per record.
func buildSinglePageDB(pageSize int, encoding uint32, records ...[]byte) []byte {
	data := make([]byte, pageSize)
	copy(data, buildHeader(uint16(pageSize), 1))
	binary.BigEndian.PutUint32(data[offsetTextEncoding:], encoding)

	leaf := data[HeaderSize:]
	leaf[0] = PageTypeLeafTable
	binary.BigEndian.PutUint16(leaf[3:], uint16(len(records)))

	end := pageSize
	for i, rec := range records {
		cell := appendVarint(nil, uint64(len(rec)))
		cell = appendVarint(cell, uint64(i+1))
		cell = append(cell, rec...)
		end -= len(cell)
		copy(data[end:], cell)
		binary.BigEndian.PutUint16(leaf[8+2*i:], uint16(end))
	}
	binary.BigEndian.PutUint16(leaf[5:], uint16(end))
	return data
}

func readCatalogBytes(data []byte) (*Catalog, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	return ReadCatalog(bytes.NewReader(data), h, int64(len(data)))
}

func TestReadCatalog_HandBuilt(t *testing.T) {
	t.Run("null sql is kept", func(t *testing.T) {
		t.Parallel()
		db := buildSinglePageDB(512, EncodingUTF8,
			encodeRecord("table", "t1", "t1", int64(2), "CREATE TABLE t1 (a)"),
			encodeRecord("table", "t2", "t2", int64(3), nil),
		)

		cat, err := readCatalogBytes(db)
		require.NoError(t, err)
		require.Len(t, cat.Entries, 2)

		assert.True(t, cat.Entries[0].HasSQL)
		assert.Equal(t, "CREATE TABLE t1 (a)", cat.Entries[0].SQL)
		assert.Equal(t, int64(2), cat.Entries[0].RootPage)
		assert.False(t, cat.Entries[1].HasSQL)
		assert.Empty(t, cat.Entries[1].SQL)
		assert.Equal(t, 1, cat.PagesRead)
	})

	t.Run("invalid utf-8 is replaced", func(t *testing.T) {
		t.Parallel()
		db := buildSinglePageDB(512, EncodingUTF8,
			encodeRecord("table", rawText("bad\xffname"), "x", int64(2), "CREATE TABLE x (a)"),
		)

		cat, err := readCatalogBytes(db)
		require.NoError(t, err)
		require.Len(t, cat.Entries, 1)
		assert.Equal(t, "bad\uFFFDname", cat.Entries[0].Name)
	})

	t.Run("utf-16le text is decoded", func(t *testing.T) {
		t.Parallel()
		enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
		utf16 := func(s string) rawText {
			b, err := enc.Bytes([]byte(s))
			require.NoError(t, err)
			return rawText(b)
		}
		db := buildSinglePageDB(1024, EncodingUTF16LE,
			encodeRecord(utf16("table"), utf16("férfi"), utf16("férfi"), int64(2), utf16("CREATE TABLE férfi (név TEXT)")),
		)

		cat, err := readCatalogBytes(db)
		require.NoError(t, err)
		require.Len(t, cat.Entries, 1)
		assert.Equal(t, "table", cat.Entries[0].Type)
		assert.Equal(t, "férfi", cat.Entries[0].Name)
		assert.Equal(t, "CREATE TABLE férfi (név TEXT)", cat.Entries[0].SQL)
	})

	t.Run("empty schema", func(t *testing.T) {
		t.Parallel()
		cat, err := readCatalogBytes(buildSinglePageDB(512, EncodingUTF8))
		require.NoError(t, err)
		assert.Empty(t, cat.Entries)
		assert.Empty(t, cat.Tables(true))
	})
}

func TestReadCatalog_HandBuiltCorruption(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(db []byte)
	}{
		{
			name:    "unexpected page type",
			corrupt: func(db []byte) { db[HeaderSize] = PageTypeLeafIndex },
		},
		{
			name: "cell pointer outside the page",
			corrupt: func(db []byte) {
				binary.BigEndian.PutUint16(db[HeaderSize+8:], 0xffff)
			},
		},
		{
			name: "cell count overruns the page",
			corrupt: func(db []byte) {
				binary.BigEndian.PutUint16(db[HeaderSize+3:], 1000)
			},
		},
		{
			name: "interior child beyond the page bound",
			corrupt: func(db []byte) {
				db[HeaderSize] = PageTypeInteriorTable
				binary.BigEndian.PutUint32(db[HeaderSize+8:], 9)
				binary.BigEndian.PutUint16(db[HeaderSize+3:], 0)
			},
		},
		{
			name: "interior page points back to itself",
			corrupt: func(db []byte) {
				db[HeaderSize] = PageTypeInteriorTable
				binary.BigEndian.PutUint32(db[HeaderSize+8:], 1)
				binary.BigEndian.PutUint16(db[HeaderSize+3:], 0)
			},
		},
		{
			name: "record header larger than payload",
			corrupt: func(db []byte) {
				ptr := binary.BigEndian.Uint16(db[HeaderSize+8:])
				// cell = payload size, rowid, record header size
				db[int(ptr)+2] = 0x7f
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			db := buildSinglePageDB(512, EncodingUTF8,
				encodeRecord("table", "t", "t", int64(2), "CREATE TABLE t (a)"),
			)
			tt.corrupt(db)

			_, err := readCatalogBytes(db)
			require.ErrorIs(t, err, ErrMalformedCatalog)
		})
	}
}

func TestCatalog_Tables(t *testing.T) {
	cat := &Catalog{Entries: []CatalogEntry{
		{Type: "table", Name: "users"},
		{Type: "index", Name: "idx_users"},
		{Type: "table", Name: "sqlite_sequence"},
		{Type: "view", Name: "v"},
		{Type: "table", Name: "SQLITE_STAT1"},
		{Type: "table", Name: "orders"},
	}}

	names := func(entries []CatalogEntry) []string {
		var out []string
		for _, e := range entries {
			out = append(out, e.Name)
		}
		return out
	}

	assert.Equal(t, []string{"users", "orders"}, names(cat.Tables(false)))
	assert.Equal(t, []string{"users", "sqlite_sequence", "SQLITE_STAT1", "orders"}, names(cat.Tables(true)))
}
