package sqlitefile

import (
	"encoding/binary"
	"fmt"
	"math"
)

// text is a TEXT value in the database encoding, not yet decoded.
type text []byte

// record is a decoded row. Values are nil (NULL), int64, float64, text or
// []byte (BLOB).
type record []any

// parseRecord decodes a complete record payload.
func parseRecord(data []byte) (record, error) {
	headerSize, n := readVarint(data)
	if n == 0 || headerSize < int64(n) || headerSize > int64(len(data)) {
		return nil, fmt.Errorf("invalid record: header size %d does not fit payload of %d bytes", headerSize, len(data))
	}

	header := data[n:headerSize]
	body := data[headerSize:]

	var serialTypes []int64
	for len(header) > 0 {
		st, m := readVarint(header)
		if m == 0 {
			return nil, fmt.Errorf("invalid record: truncated serial type")
		}
		serialTypes = append(serialTypes, st)
		header = header[m:]
	}

	rec := make(record, 0, len(serialTypes))
	for i, st := range serialTypes {
		v, size, err := decodeValue(st, body)
		if err != nil {
			return nil, fmt.Errorf("invalid record: column %d: %w", i, err)
		}
		rec = append(rec, v)
		body = body[size:]
	}
	return rec, nil
}

// decodeValue decodes one value of the given serial type from the front of
// body and reports how many bytes it used.
func decodeValue(serialType int64, body []byte) (any, int, error) {
	switch {
	case serialType >= 12 && serialType%2 == 0:
		length := (serialType - 12) / 2
		if int64(len(body)) < length {
			return nil, 0, fmt.Errorf("insufficient data for BLOB of length %d", length)
		}
		return body[:length], int(length), nil
	case serialType >= 13:
		length := (serialType - 13) / 2
		if int64(len(body)) < length {
			return nil, 0, fmt.Errorf("insufficient data for TEXT of length %d", length)
		}
		return text(body[:length]), int(length), nil
	}

	var size int
	switch serialType {
	case 0, 8, 9:
		size = 0
	case 1, 2, 3, 4:
		size = int(serialType)
	case 5:
		size = 6
	case 6, 7:
		size = 8
	default:
		return nil, 0, fmt.Errorf("unsupported serial type %d", serialType)
	}
	if len(body) < size {
		return nil, 0, fmt.Errorf("insufficient data for serial type %d", serialType)
	}

	switch serialType {
	case 0:
		return nil, 0, nil
	case 7:
		return math.Float64frombits(binary.BigEndian.Uint64(body[:8])), 8, nil
	case 8:
		return int64(0), 0, nil
	case 9:
		return int64(1), 0, nil
	}

	// Big-endian two's complement integer of 1 to 8 bytes.
	v := int64(int8(body[0]))
	for _, b := range body[1:size] {
		v = v<<8 | int64(b)
	}
	return v, size, nil
}
