// Package testbook synthesizes MOBI and KF8 books in memory for tests.
package testbook

import (
	"bytes"
)

// PalmDOC compresses data with PalmDOC LZ77 scheme. It is a reference
// encoder for tests, compression is done in 4096 byte blocks.
func PalmDOC(data []byte) []byte {
	ret := make([]byte, 0, len(data))
	for start := 0; start < len(data); start += 4096 {
		end := min(start+4096, len(data))
		ret = append(ret, compressBlock(data[start:end])...)
	}
	return ret
}

// compressBlock compresses a single up-to-4096 byte block of the input.
func compressBlock(data []byte) []byte {
	ret := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		// Have we seen a run already? If so then encode it.
		if l, dist := findRun(data[i:], data[:i]); l >= 3 {
			word := uint16(dist<<3+(l-3)) | 0x8000
			ret = append(ret, byte(word>>8), byte(word&0xff))
			i += l - 1
			continue
		}

		// space + printable folds into a single byte
		if data[i] == ' ' && i+1 < len(data) && data[i+1] >= 0x40 && data[i+1] <= 0x7f {
			ret = append(ret, 0x80^data[i+1])
			i++
			continue
		}

		if (data[i] >= 0x09 && data[i] <= 0x7f) || data[i] == 0 {
			ret = append(ret, data[i])
			continue
		}

		// Not a literal, send out a chunk of raw bytes as big as we can,
		// stopping at the first byte which could be encoded on its own.
		n := 1
		for n < 8 && i+n < len(data) {
			b := data[i+n]
			if (b >= 0x09 && b <= 0x7f) || b == 0 {
				break
			}
			n++
		}
		ret = append(ret, byte(n))
		ret = append(ret, data[i:i+n]...)
		i += n - 1
	}
	return ret
}

// findRun looks back in the data already seen for the longest match of 3..10 bytes.
func findRun(data []byte, seen []byte) (int, int) {
	if len(data) < 3 {
		return -1, -1
	}
	// offset has to be encoded in 11 bits
	if len(seen) > 2047 {
		seen = seen[len(seen)-2047:]
	}
	l, dist := -1, -1
	for n := 3; n <= 10 && n <= len(data); n++ {
		ofs := bytes.LastIndex(seen, data[:n])
		if ofs == -1 {
			break
		}
		l, dist = n, len(seen)-ofs
	}
	return l, dist
}
