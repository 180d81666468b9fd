package sqlitefile

import (
	"encoding/binary"
	"fmt"
)

const (
	// PageTypeInteriorIndex is a b-tree interior index page.
	PageTypeInteriorIndex byte = 0x02
	// PageTypeInteriorTable is a b-tree interior table page.
	PageTypeInteriorTable byte = 0x05
	// PageTypeLeafIndex is a b-tree leaf index page.
	PageTypeLeafIndex byte = 0x0a
	// PageTypeLeafTable is a b-tree leaf table page.
	PageTypeLeafTable byte = 0x0d
)

// page is a single b-tree page of the schema table.
type page struct {
	number       uint32
	typ          byte
	rightMostPtr uint32
	cellPointers []int
	data         []byte
}

// leafCell is a cell of a leaf table page. payload holds only the bytes
// stored on the page; overflow is the first overflow page, or 0.
type leafCell struct {
	rowID       int64
	payloadSize int64
	payload     []byte
	overflow    uint32
}

// parsePage decodes the b-tree page header and cell pointer array of data.
// pageNum is 1-based; page 1 starts after the file header.
func parsePage(data []byte, pageNum uint32) (*page, error) {
	offset := 0
	if pageNum == 1 {
		offset = HeaderSize
	}
	if len(data) < offset+8 {
		return nil, fmt.Errorf("page %d: too short for a b-tree header", pageNum)
	}
	header := data[offset:]

	p := &page{
		number: pageNum,
		typ:    header[0],
		data:   data,
	}

	headerSize := 8
	switch p.typ {
	case PageTypeInteriorTable:
		headerSize = 12
		if len(header) < headerSize {
			return nil, fmt.Errorf("page %d: truncated interior header", pageNum)
		}
		p.rightMostPtr = binary.BigEndian.Uint32(header[8:12])
	case PageTypeLeafTable:
	default:
		return nil, fmt.Errorf("page %d: unexpected page type 0x%02x in table b-tree", pageNum, p.typ)
	}

	cellCount := int(binary.BigEndian.Uint16(header[3:5]))
	start := offset + headerSize
	if start+cellCount*2 > len(data) {
		return nil, fmt.Errorf("page %d: cell pointer array of %d entries overruns page", pageNum, cellCount)
	}

	p.cellPointers = make([]int, cellCount)
	for i := 0; i < cellCount; i++ {
		ptr := int(binary.BigEndian.Uint16(data[start+i*2:]))
		if ptr < start+cellCount*2 || ptr >= len(data) {
			return nil, fmt.Errorf("page %d: cell %d points outside the content area (%d)", pageNum, i, ptr)
		}
		p.cellPointers[i] = ptr
	}

	return p, nil
}

// interiorCell returns the left child page number of cell i of an interior page.
func (p *page) interiorCell(i int) (uint32, error) {
	cell := p.data[p.cellPointers[i]:]
	if len(cell) < 4 {
		return 0, fmt.Errorf("page %d: interior cell %d truncated", p.number, i)
	}
	return binary.BigEndian.Uint32(cell[:4]), nil
}

// leafCell decodes cell i of a leaf table page. usable is the page's usable size.
func (p *page) leafCell(i int, usable uint32) (leafCell, error) {
	cell := p.data[p.cellPointers[i]:]

	payloadSize, n := readVarint(cell)
	if n == 0 || payloadSize < 0 {
		return leafCell{}, fmt.Errorf("page %d: cell %d has a bad payload size", p.number, i)
	}
	rowID, m := readVarint(cell[n:])
	if m == 0 {
		return leafCell{}, fmt.Errorf("page %d: cell %d has a bad rowid", p.number, i)
	}
	cell = cell[n+m:]

	local := localPayload(payloadSize, usable)
	if int64(len(cell)) < local {
		return leafCell{}, fmt.Errorf("page %d: cell %d payload truncated", p.number, i)
	}

	c := leafCell{
		rowID:       rowID,
		payloadSize: payloadSize,
		payload:     cell[:local],
	}
	if local < payloadSize {
		if int64(len(cell)) < local+4 {
			return leafCell{}, fmt.Errorf("page %d: cell %d overflow pointer truncated", p.number, i)
		}
		c.overflow = binary.BigEndian.Uint32(cell[local : local+4])
	}
	return c, nil
}

// localPayload is the number of payload bytes a table leaf cell keeps on
// its own page, following the file format's spill rules.
func localPayload(payloadSize int64, usable uint32) int64 {
	u := int64(usable)
	maxLocal := u - 35
	if payloadSize <= maxLocal {
		return payloadSize
	}
	minLocal := ((u-12)*32)/255 - 23
	k := minLocal + (payloadSize-minLocal)%(u-4)
	if k <= maxLocal {
		return k
	}
	return minLocal
}
