package compress

import (
	"fmt"

	"mobiparse/common"
)

// DecompressPalmDOC expands PalmDOC LZ77 compressed record.
func DecompressPalmDOC(data []byte) ([]byte, error) {
	// Start off assuming that decompressing a buffer makes the result
	// larger. This is mostly but not always true.
	out := make([]byte, 0, len(data)*2)
	for i := 0; i < len(data); i++ {
		b := data[i]
		switch {
		case b == 0:
			out = append(out, b)
		case b <= 8:
			// copy next 1-8 bytes
			if i+int(b) >= len(data) {
				return nil, fmt.Errorf("%w: palmdoc literal run of %d at %d past end of record (%d)", common.ErrCorruptRecord, b, i, len(data))
			}
			out = append(out, data[i+1:i+1+int(b)]...)
			i += int(b)
		case b <= 0x7F:
			out = append(out, b)
		case b <= 0xBF:
			// length-distance pair
			if i+1 >= len(data) {
				return nil, fmt.Errorf("%w: palmdoc back reference at %d truncated", common.ErrCorruptRecord, i)
			}
			i++
			pair := int(b)<<8 | int(data[i])
			dist := (pair & 0x3FFF) >> 3
			length := pair&0x07 + 3
			if dist < 1 || dist > len(out) {
				return nil, fmt.Errorf("%w: palmdoc distance %d with only %d bytes decoded", common.ErrCorruptRecord, dist, len(out))
			}
			// runs may overlap the bytes being written, copy one at a time
			for j := 0; j < length; j++ {
				out = append(out, out[len(out)-dist])
			}
		default:
			// space plus char
			out = append(out, ' ', b^0x80)
		}
	}
	return out, nil
}
