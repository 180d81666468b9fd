package sqlitefile

// readVarint reads a variable-length integer from data. It returns the value
// and the number of bytes consumed; n is 0 when data ends before the varint
// is complete.
func readVarint(data []byte) (v int64, n int) {
	for i := 0; i < 9; i++ {
		if i >= len(data) {
			return 0, 0
		}
		b := data[i]
		if i == 8 {
			return (v << 8) | int64(b), 9
		}
		v = (v << 7) | int64(b&0x7f)
		if b&0x80 == 0 {
			return v, i + 1
		}
	}
	return v, 9
}
