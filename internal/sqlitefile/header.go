// Package sqlitefile decodes the on-disk structures of an SQLite database
// file that are needed to describe it: the 100-byte file header and the
// schema catalog stored in the b-tree rooted at page 1.
//
// Nothing here executes SQL or writes to the file. All input is treated as
// untrusted; malformed structures are reported through ErrMalformedHeader
// and ErrMalformedCatalog.
package sqlitefile

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderString is the required 16-byte string at the beginning of a valid SQLite file.
	HeaderString = "SQLite format 3\x00"
	// HeaderSize is the size of the SQLite database header in bytes.
	HeaderSize = 100

	// MinPageSize is the smallest page size SQLite allows.
	MinPageSize = 512
	// MaxPageSize is the largest page size, stored in the header as the value 1.
	MaxPageSize = 65536

	// minUsableSize is the smallest page area, after reserved bytes, that
	// SQLite accepts.
	minUsableSize = 480
)

// Header field offsets.
const (
	offsetPageSize        = 16
	offsetReservedSpace   = 20
	offsetChangeCounter   = 24
	offsetPageCount       = 28
	offsetSchemaFormat    = 44
	offsetTextEncoding    = 56
	offsetUserVersion     = 60
	offsetApplicationID   = 68
	offsetVersionValidFor = 92
	offsetSQLiteVersion   = 96
)

// Text encodings stored at offset 56.
const (
	EncodingUTF8    uint32 = 1
	EncodingUTF16LE uint32 = 2
	EncodingUTF16BE uint32 = 3
)

// ErrMalformedHeader is returned when the first 100 bytes are not a valid SQLite header.
var ErrMalformedHeader = errors.New("malformed sqlite header")

// Header represents the parsed 100-byte header of an SQLite database file.
type Header struct {
	// PageSize is the resolved page size in bytes. The raw value 1 is
	// already translated to 65536.
	PageSize uint32
	// PageCount is the "in-header database size" in pages.
	PageCount uint32
	// ReservedSpace is the number of unused bytes at the end of each page.
	ReservedSpace uint8
	// ChangeCounter is the file change counter.
	ChangeCounter uint32
	// SchemaFormat is the schema format number (1 to 4).
	SchemaFormat uint32
	// TextEncoding is 1 for UTF-8, 2 for UTF-16le and 3 for UTF-16be.
	TextEncoding uint32
	// UserVersion is the value of PRAGMA user_version.
	UserVersion uint32
	// ApplicationID is the value of PRAGMA application_id.
	ApplicationID uint32
	// VersionValidFor is the change counter value for which PageCount is valid.
	VersionValidFor uint32
	// SQLiteVersion is SQLITE_VERSION_NUMBER of the library that last wrote the file.
	SQLiteVersion uint32
}

// ParseHeader decodes the file header from data. Only the first HeaderSize
// bytes are looked at; shorter input is malformed.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedHeader, HeaderSize, len(data))
	}
	data = data[:HeaderSize]

	if string(data[:len(HeaderString)]) != HeaderString {
		return nil, fmt.Errorf("%w: invalid header string", ErrMalformedHeader)
	}

	pageSize, err := resolvePageSize(binary.BigEndian.Uint16(data[offsetPageSize:]))
	if err != nil {
		return nil, err
	}

	h := &Header{
		PageSize:        pageSize,
		PageCount:       binary.BigEndian.Uint32(data[offsetPageCount:]),
		ReservedSpace:   data[offsetReservedSpace],
		ChangeCounter:   binary.BigEndian.Uint32(data[offsetChangeCounter:]),
		SchemaFormat:    binary.BigEndian.Uint32(data[offsetSchemaFormat:]),
		TextEncoding:    binary.BigEndian.Uint32(data[offsetTextEncoding:]),
		UserVersion:     binary.BigEndian.Uint32(data[offsetUserVersion:]),
		ApplicationID:   binary.BigEndian.Uint32(data[offsetApplicationID:]),
		VersionValidFor: binary.BigEndian.Uint32(data[offsetVersionValidFor:]),
		SQLiteVersion:   binary.BigEndian.Uint32(data[offsetSQLiteVersion:]),
	}

	if h.UsableSize() < minUsableSize {
		return nil, fmt.Errorf("%w: reserved space %d leaves no usable page area", ErrMalformedHeader, h.ReservedSpace)
	}

	return h, nil
}

// resolvePageSize applies SQLite's escape for 65536 and rejects anything
// that is not a power of two in range.
func resolvePageSize(raw uint16) (uint32, error) {
	if raw == 1 {
		return MaxPageSize, nil
	}
	size := uint32(raw)
	if size < MinPageSize || size&(size-1) != 0 {
		return 0, fmt.Errorf("%w: invalid page size %d", ErrMalformedHeader, raw)
	}
	return size, nil
}

// FileSize returns the size claimed by the header, page size times page count.
func (h *Header) FileSize() uint64 {
	return uint64(h.PageSize) * uint64(h.PageCount)
}

// UsableSize is the number of bytes of each page available to b-tree content.
func (h *Header) UsableSize() uint32 {
	return h.PageSize - uint32(h.ReservedSpace)
}

// CheckFileSize compares the header's claimed size with the actual file
// length. A mismatch is returned as an error for the caller to record; the
// header itself is still usable.
func (h *Header) CheckFileSize(actual int64) error {
	if actual < 0 || uint64(actual) != h.FileSize() {
		return fmt.Errorf("header claims %d pages of %d bytes (%d bytes), file has %d bytes",
			h.PageCount, h.PageSize, h.FileSize(), actual)
	}
	return nil
}

// pageBound is the highest page number the catalog walk may visit. The
// header count is trusted only when it is set and fits in the file.
func (h *Header) pageBound(actual int64) uint32 {
	filePages := uint32(0)
	if actual > 0 {
		n := uint64(actual) / uint64(h.PageSize)
		if n > uint64(^uint32(0)) {
			n = uint64(^uint32(0))
		}
		filePages = uint32(n)
	}
	if h.PageCount == 0 || h.PageCount > filePages {
		return filePages
	}
	return h.PageCount
}
