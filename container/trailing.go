package container

import (
	"math/bits"

	"mobiparse/varint"
)

// TrailingStripper removes extra data appended to text records, as declared
// by MOBI extra data flags: bit 0 is multibyte character overlap, every other
// set bit is a trailing entry which ends with its own backward encoded size.
type TrailingStripper struct {
	multibyte bool
	entries   int
}

// NewTrailingStripper returns stripper for extra data flags.
func NewTrailingStripper(flags uint32) TrailingStripper {
	return TrailingStripper{
		multibyte: flags&1 != 0,
		entries:   bits.OnesCount32(flags >> 1),
	}
}

// Strip returns record without trailing entries, result shares memory with rec.
func (s TrailingStripper) Strip(rec []byte) []byte {
	for i := 0; i < s.entries && len(rec) > 0; i++ {
		size := int(varint.DecodeBackward(rec))
		rec = rec[:len(rec)-min(size, len(rec))]
	}
	if s.multibyte && len(rec) > 0 {
		size := int(rec[len(rec)-1]&3) + 1
		rec = rec[:len(rec)-min(size, len(rec))]
	}
	return rec
}
