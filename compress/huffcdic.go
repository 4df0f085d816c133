package compress

import (
	"fmt"

	"mobiparse/binstruct"
	"mobiparse/common"
)

const (
	huffMagic = "HUFF"
	cdicMagic = "CDIC"

	huffTable1Offset = 8
	huffTable2Offset = 12

	cdicHeaderLength = 4
	cdicNumEntries   = 8
	cdicCodeLength   = 12
)

type codeEntry struct {
	found   bool
	codeLen int
	maxCode uint32
}

type slotState uint8

const (
	slotCompressed slotState = iota
	slotExpanding
	slotExpanded
)

type slot struct {
	data  []byte
	state slotState
}

// Huff decompresses HUFF/CDIC coded records. Dictionary slots which are
// themselves compressed are expanded on first use and overwritten in place,
// so a Huff value belongs to a single document and must not be used from
// several goroutines at once.
type Huff struct {
	table1     [256]codeEntry
	minCode    [33]uint32
	maxCode    [33]uint32
	dictionary []slot

	expansions int
}

// NewHuff builds decompression tables from HUFF record and chained CDIC records.
func NewHuff(huff []byte, cdics [][]byte) (*Huff, error) {
	r := binstruct.New("HUFF record", huff)
	if magic := r.Magic(0); magic != huffMagic {
		return nil, fmt.Errorf("%w: bad HUFF magic %q", common.ErrInvalidCompressionTable, magic)
	}
	off1, off2 := int(r.Uint32(huffTable1Offset)), int(r.Uint32(huffTable2Offset))

	h := &Huff{}
	// table1 is indexed by top byte of the code window
	for i := range h.table1 {
		x := r.Uint32(off1 + i*4)
		h.table1[i] = codeEntry{found: x&0x80 != 0, codeLen: int(x & 0x1F), maxCode: x >> 8}
	}
	// table2 is indexed by code length, entry 0 is unused
	for i := 1; i <= 32; i++ {
		h.minCode[i] = r.Uint32(off2 + (i-1)*8)
		h.maxCode[i] = r.Uint32(off2 + (i-1)*8 + 4)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidCompressionTable, err)
	}

	for n, rec := range cdics {
		c := binstruct.New("CDIC record", rec)
		if magic := c.Magic(0); magic != cdicMagic {
			return nil, fmt.Errorf("%w: bad CDIC magic %q in record %d", common.ErrInvalidCompressionTable, magic, n)
		}
		length := int(c.Uint32(cdicHeaderLength))
		total := int(c.Uint32(cdicNumEntries))
		codeLen := int(c.Uint32(cdicCodeLength))
		if err := c.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrInvalidCompressionTable, err)
		}
		if length > len(rec) || codeLen > 31 {
			return nil, fmt.Errorf("%w: CDIC record %d header is inconsistent", common.ErrInvalidCompressionTable, n)
		}
		// total is declared across all CDIC records, only what remains belongs here
		count := min(1<<codeLen, total-len(h.dictionary))
		if count > (len(rec)-length)/2 {
			return nil, fmt.Errorf("%w: CDIC record %d declares %d entries, has room for %d offsets", common.ErrCorruptRecord, n, count, (len(rec)-length)/2)
		}
		buf := binstruct.New("CDIC entries", rec[length:])
		for i := 0; i < count; i++ {
			ofs := int(buf.Uint16(i * 2))
			x := buf.Uint16(ofs)
			data := buf.Bytes(ofs+2, int(x&0x7FFF))
			if err := buf.Err(); err != nil {
				return nil, fmt.Errorf("%w: CDIC record %d entry %d: %w", common.ErrInvalidCompressionTable, n, i, err)
			}
			state := slotCompressed
			if x&0x8000 != 0 {
				state = slotExpanded
			}
			h.dictionary = append(h.dictionary, slot{data: data, state: state})
		}
	}
	return h, nil
}

// window returns 32 bits of data starting at bit position pos, bits past the end read as zero.
func window(data []byte, pos int) uint32 {
	end := pos + 32
	var bits uint64
	for i := pos >> 3; i <= end>>3; i++ {
		bits <<= 8
		if i < len(data) {
			bits |= uint64(data[i])
		}
	}
	return uint32(bits >> (8 - uint(end&7)))
}

// Decompress implements Decompressor.
func (h *Huff) Decompress(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)*3)
	bitLen := len(data) * 8
	for pos := 0; pos < bitLen; {
		bits := window(data, pos)
		e := h.table1[bits>>24]
		codeLen, maxCode := e.codeLen, e.maxCode
		if codeLen == 0 {
			return nil, fmt.Errorf("%w: zero code length", common.ErrInvalidCompressionTable)
		}
		if !e.found {
			for codeLen <= 32 && bits>>(32-codeLen) < h.minCode[codeLen] {
				codeLen++
			}
			if codeLen > 32 {
				return nil, fmt.Errorf("%w: code at bit %d does not fit any length", common.ErrInvalidCompressionTable, pos)
			}
			maxCode = h.maxCode[codeLen]
		}
		pos += codeLen
		if pos > bitLen {
			break
		}

		code := int(maxCode) - int(bits>>(32-codeLen))
		if code < 0 || code >= len(h.dictionary) {
			return nil, fmt.Errorf("%w: dictionary index %d out of range [0, %d)", common.ErrCorruptRecord, code, len(h.dictionary))
		}
		s := &h.dictionary[code]
		switch s.state {
		case slotExpanding:
			return nil, fmt.Errorf("%w: dictionary entry %d refers to itself", common.ErrInvalidCompressionTable, code)
		case slotCompressed:
			s.state = slotExpanding
			expanded, err := h.Decompress(s.data)
			if err != nil {
				s.state = slotCompressed
				return nil, err
			}
			// memoize, each entry is expanded at most once
			h.dictionary[code] = slot{data: expanded, state: slotExpanded}
			h.expansions++
		}
		out = append(out, h.dictionary[code].data...)
	}
	return out, nil
}
