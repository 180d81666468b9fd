package sqlitefile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// ErrMalformedCatalog is returned when the schema table cannot be walked or decoded.
var ErrMalformedCatalog = errors.New("malformed sqlite catalog")

// schemaRootPage is the page holding the root of the schema table.
const schemaRootPage = 1

// systemTablePrefix marks tables reserved for SQLite's own use.
const systemTablePrefix = "sqlite_"

// CatalogEntry is one row of the schema table:
//
//	CREATE TABLE sqlite_schema(type text, name text, tbl_name text, rootpage integer, sql text)
type CatalogEntry struct {
	Type      string // "table", "index", "view" or "trigger"
	Name      string
	TableName string
	RootPage  int64
	SQL       string
	// HasSQL is false when the sql column is NULL, as for automatic indexes
	// and some internal tables.
	HasSQL bool
}

// IsSystem reports whether the entry names one of SQLite's internal objects.
func (e CatalogEntry) IsSystem() bool {
	return strings.HasPrefix(strings.ToLower(e.Name), systemTablePrefix)
}

// Catalog holds the rows of the schema table in b-tree order.
type Catalog struct {
	Entries []CatalogEntry
	// PagesRead counts b-tree and overflow pages visited during the walk.
	PagesRead int
}

// Tables returns the entries of type "table". Internal sqlite_ tables are
// only included when includeSystem is set.
func (c *Catalog) Tables(includeSystem bool) []CatalogEntry {
	tables := make([]CatalogEntry, 0, len(c.Entries))
	for _, e := range c.Entries {
		if e.Type != "table" || e.Name == "" {
			continue
		}
		if e.IsSystem() && !includeSystem {
			continue
		}
		tables = append(tables, e)
	}
	return tables
}

// ReadCatalog walks the schema b-tree of the database behind r. size is the
// actual file length; together with the header's page count it bounds the
// number of pages the walk may touch.
func ReadCatalog(r io.ReaderAt, h *Header, size int64) (*Catalog, error) {
	cr := &catalogReader{
		r:       r,
		header:  h,
		usable:  h.UsableSize(),
		bound:   h.pageBound(size),
		visited: make(map[uint32]bool),
	}
	switch h.TextEncoding {
	case EncodingUTF16LE:
		cr.decoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	case EncodingUTF16BE:
		cr.decoder = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	}

	entries, err := cr.walk()
	if err != nil {
		return nil, err
	}
	return &Catalog{Entries: entries, PagesRead: len(cr.visited)}, nil
}

type catalogReader struct {
	r       io.ReaderAt
	header  *Header
	usable  uint32
	bound   uint32
	visited map[uint32]bool
	decoder *encoding.Decoder
}

// walk visits the schema b-tree depth first, left to right, using an
// explicit stack of page numbers.
func (cr *catalogReader) walk() ([]CatalogEntry, error) {
	var entries []CatalogEntry
	stack := []uint32{schemaRootPage}

	for len(stack) > 0 {
		pageNum := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		data, err := cr.readPage(pageNum)
		if err != nil {
			return nil, err
		}
		p, err := parsePage(data, pageNum)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCatalog, err)
		}

		if p.typ == PageTypeInteriorTable {
			// Push right to left so the leftmost child is visited first.
			stack = append(stack, p.rightMostPtr)
			for i := len(p.cellPointers) - 1; i >= 0; i-- {
				child, err := p.interiorCell(i)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrMalformedCatalog, err)
				}
				stack = append(stack, child)
			}
			continue
		}

		for i := range p.cellPointers {
			entry, err := cr.readEntry(p, i)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// readPage loads one page, refusing page numbers that are out of bounds or
// already visited.
func (cr *catalogReader) readPage(pageNum uint32) ([]byte, error) {
	if pageNum == 0 || pageNum > cr.bound {
		return nil, fmt.Errorf("%w: page %d outside 1..%d", ErrMalformedCatalog, pageNum, cr.bound)
	}
	if cr.visited[pageNum] {
		return nil, fmt.Errorf("%w: page %d visited twice", ErrMalformedCatalog, pageNum)
	}
	cr.visited[pageNum] = true

	data := make([]byte, cr.header.PageSize)
	offset := int64(pageNum-1) * int64(cr.header.PageSize)
	if n, err := cr.r.ReadAt(data, offset); n < len(data) {
		return nil, fmt.Errorf("%w: reading page %d: %v", ErrMalformedCatalog, pageNum, err)
	}
	return data, nil
}

// readEntry decodes cell i of a leaf page into a catalog row, following
// the overflow chain when the row does not fit on the page.
func (cr *catalogReader) readEntry(p *page, i int) (CatalogEntry, error) {
	cell, err := p.leafCell(i, cr.usable)
	if err != nil {
		return CatalogEntry{}, fmt.Errorf("%w: %v", ErrMalformedCatalog, err)
	}

	payload := cell.payload
	if cell.overflow != 0 {
		payload, err = cr.readOverflow(cell)
		if err != nil {
			return CatalogEntry{}, err
		}
	}

	rec, err := parseRecord(payload)
	if err != nil {
		return CatalogEntry{}, fmt.Errorf("%w: page %d cell %d: %v", ErrMalformedCatalog, p.number, i, err)
	}
	entry, err := cr.toEntry(rec)
	if err != nil {
		return CatalogEntry{}, fmt.Errorf("%w: page %d cell %d: %v", ErrMalformedCatalog, p.number, i, err)
	}
	return entry, nil
}

// readOverflow reassembles a spilled payload. Each overflow page starts
// with the next page number followed by usable-4 bytes of content.
func (cr *catalogReader) readOverflow(cell leafCell) ([]byte, error) {
	maxPayload := int64(cr.bound) * int64(cr.usable)
	if cell.payloadSize > maxPayload {
		return nil, fmt.Errorf("%w: payload of %d bytes exceeds the file", ErrMalformedCatalog, cell.payloadSize)
	}

	payload := append([]byte(nil), cell.payload...)
	remaining := cell.payloadSize - int64(len(cell.payload))
	next := cell.overflow

	for remaining > 0 {
		if next == 0 {
			return nil, fmt.Errorf("%w: overflow chain ends with %d bytes missing", ErrMalformedCatalog, remaining)
		}
		data, err := cr.readPage(next)
		if err != nil {
			return nil, err
		}
		next = binary.BigEndian.Uint32(data[:4])

		chunk := min(remaining, int64(cr.usable)-4)
		payload = append(payload, data[4:4+chunk]...)
		remaining -= chunk
	}
	return payload, nil
}

// toEntry maps a schema table record onto a CatalogEntry.
func (cr *catalogReader) toEntry(rec record) (CatalogEntry, error) {
	if len(rec) < 5 {
		return CatalogEntry{}, fmt.Errorf("schema row has %d columns, want 5", len(rec))
	}

	var e CatalogEntry
	var err error
	if e.Type, err = cr.textColumn(rec[0], "type"); err != nil {
		return CatalogEntry{}, err
	}
	if e.Name, err = cr.textColumn(rec[1], "name"); err != nil {
		return CatalogEntry{}, err
	}
	if e.TableName, err = cr.textColumn(rec[2], "tbl_name"); err != nil {
		return CatalogEntry{}, err
	}

	switch v := rec[3].(type) {
	case int64:
		e.RootPage = v
	case nil:
	default:
		return CatalogEntry{}, fmt.Errorf("rootpage has type %T", v)
	}

	if rec[4] != nil {
		if e.SQL, err = cr.textColumn(rec[4], "sql"); err != nil {
			return CatalogEntry{}, err
		}
		e.HasSQL = true
	}
	return e, nil
}

func (cr *catalogReader) textColumn(v any, column string) (string, error) {
	switch t := v.(type) {
	case text:
		return cr.decodeText(t), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("%s has type %T, want text", column, v)
	}
}

// decodeText converts a TEXT value from the database encoding to a valid
// UTF-8 string. Undecodable bytes become U+FFFD.
func (cr *catalogReader) decodeText(t text) string {
	if cr.decoder != nil {
		if b, err := cr.decoder.Bytes(t); err == nil {
			return strings.ToValidUTF8(string(b), "\uFFFD")
		}
	}
	return strings.ToValidUTF8(string(t), "\uFFFD")
}
