// Package index decodes INDX tables used for navigation, skeleton, fragment
// and guide data.
package index

import (
	"fmt"
	"math/bits"

	"mobiparse/binstruct"
	"mobiparse/common"
	"mobiparse/varint"
)

// Loader gives access to book records.
type Loader interface {
	LoadRecord(i int) ([]byte, error)
}

// Entry is a single table row: entry name and values for every tag present.
type Entry struct {
	Name string
	Tags map[uint32][]uint32
}

// First returns first value of the tag.
func (e Entry) First(tag uint32) (uint32, bool) {
	if v := e.Tags[tag]; len(v) > 0 {
		return v[0], true
	}
	return 0, false
}

// Table is decoded index with its string table.
type Table struct {
	Entries []Entry
	// CNCX strings keyed by offset within record plus 0x10000 per record.
	CNCX map[uint32]string
}

// Label returns CNCX string or empty string when key is unknown.
func (t *Table) Label(key uint32) string {
	return t.CNCX[key]
}

type header struct {
	magic      string
	length     uint32
	idxt       uint32
	numRecords uint32
	encoding   uint32
	numCncx    uint32
}

func parseHeader(rec []byte, at int) (header, error) {
	r := binstruct.New(fmt.Sprintf("INDX record %d", at), rec)
	h := header{
		magic:      r.Magic(0),
		length:     r.Uint32(4),
		idxt:       r.Uint32(20),
		numRecords: r.Uint32(24),
		encoding:   r.Uint32(28),
		numCncx:    r.Uint32(52),
	}
	if err := r.Err(); err != nil {
		return h, fmt.Errorf("%w: %w", common.ErrMalformedIndex, err)
	}
	if h.magic != "INDX" {
		return h, fmt.Errorf("%w: record %d has magic %q, expected INDX", common.ErrInvalidHeader, at, h.magic)
	}
	return h, nil
}

type tag struct {
	id, numValues, mask, eof uint32
}

func parseTagx(rec []byte, ofs uint32) ([]tag, int, error) {
	if int(ofs) > len(rec) {
		return nil, 0, fmt.Errorf("%w: TAGX offset %d is out of range", common.ErrMalformedIndex, ofs)
	}
	r := binstruct.New("TAGX", rec[ofs:])
	magic, length, numControlBytes := r.Magic(0), r.Uint32(4), r.Uint32(8)
	if err := r.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", common.ErrMalformedIndex, err)
	}
	if magic != "TAGX" {
		return nil, 0, fmt.Errorf("%w: magic %q, expected TAGX", common.ErrInvalidHeader, magic)
	}
	if length < 12 {
		return nil, 0, fmt.Errorf("%w: TAGX length %d", common.ErrMalformedIndex, length)
	}
	if int(ofs)+int(length) > len(rec) {
		return nil, 0, fmt.Errorf("%w: TAGX length %d at %d is out of range [0, %d)", common.ErrCorruptRecord, length, ofs, len(rec))
	}
	tags := make([]tag, 0, (length-12)/4)
	for i := 12; i+4 <= int(length); i += 4 {
		tags = append(tags, tag{r.Uint8(i), r.Uint8(i + 1), r.Uint8(i + 2), r.Uint8(i + 3)})
	}
	if err := r.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", common.ErrMalformedIndex, err)
	}
	return tags, int(numControlBytes), nil
}

func readCNCX(rec []byte, base uint32, encoding uint32, out map[uint32]string) error {
	for pos := 0; pos < len(rec); {
		key := base + uint32(pos)
		size, n, err := varint.DecodeForward(rec[pos:])
		if err != nil {
			return fmt.Errorf("%w: CNCX entry at %d: %w", common.ErrMalformedIndex, pos, err)
		}
		pos += n
		end := min(pos+int(size), len(rec))
		out[key] = common.DecodeString(encoding, rec[pos:end])
		pos = end
	}
	return nil
}

// Read decodes index starting with header record at.
func Read(l Loader, at int) (*Table, error) {
	rec, err := l.LoadRecord(at)
	if err != nil {
		return nil, err
	}
	h, err := parseHeader(rec, at)
	if err != nil {
		return nil, err
	}

	t := &Table{CNCX: make(map[uint32]string)}
	for i := 0; i < int(h.numCncx); i++ {
		cncx, err := l.LoadRecord(at + int(h.numRecords) + i + 1)
		if err != nil {
			return nil, fmt.Errorf("%w: CNCX record %d: %w", common.ErrMalformedIndex, i, err)
		}
		if err := readCNCX(cncx, uint32(i)*0x10000, h.encoding, t.CNCX); err != nil {
			return nil, err
		}
	}

	tags, numControlBytes, err := parseTagx(rec, h.length)
	if err != nil {
		return nil, err
	}

	for i := 0; i < int(h.numRecords); i++ {
		data, err := l.LoadRecord(at + 1 + i)
		if err != nil {
			return nil, fmt.Errorf("%w: data record %d: %w", common.ErrMalformedIndex, i, err)
		}
		dh, err := parseHeader(data, at+1+i)
		if err != nil {
			return nil, err
		}
		r := binstruct.New(fmt.Sprintf("INDX data record %d", at+1+i), data)
		for j := 0; j < int(dh.numRecords); j++ {
			ofs := int(r.Uint16(int(dh.idxt) + 4 + 2*j))
			if err := r.Err(); err != nil {
				return nil, fmt.Errorf("%w: %w", common.ErrMalformedIndex, err)
			}
			e, err := readEntry(data, ofs, tags, numControlBytes)
			if err != nil {
				return nil, fmt.Errorf("entry %d of record %d: %w", j, at+1+i, err)
			}
			t.Entries = append(t.Entries, e)
		}
	}
	return t, nil
}

type tagHeader struct {
	id, valueCount, valueBytes, numValues uint32
}

func readEntry(data []byte, ofs int, tags []tag, numControlBytes int) (Entry, error) {
	r := binstruct.New("INDX entry", data)
	size := int(r.Uint8(ofs))
	e := Entry{Name: r.String(ofs+1, size), Tags: make(map[uint32][]uint32)}
	if err := r.Err(); err != nil {
		return e, fmt.Errorf("%w: %w", common.ErrMalformedIndex, err)
	}

	start := ofs + 1 + size
	pos := start + numControlBytes
	next := func() (uint32, error) {
		if pos >= len(data) {
			return 0, fmt.Errorf("%w: tag values run past record end", common.ErrMalformedIndex)
		}
		v, n, err := varint.DecodeForward(data[pos:])
		if err != nil {
			return 0, fmt.Errorf("%w: %w", common.ErrMalformedIndex, err)
		}
		pos += n
		return v, nil
	}

	var (
		headers     []tagHeader
		controlByte int
	)
	for _, t := range tags {
		if t.eof&1 != 0 {
			controlByte++
			continue
		}
		value := r.Uint8(start+controlByte) & t.mask
		switch {
		case value == 0 && t.mask != 0:
			// tag not present in this entry
			continue
		case value == t.mask && bits.OnesCount32(t.mask) > 1:
			// byte length of all values follows
			n, err := next()
			if err != nil {
				return e, err
			}
			headers = append(headers, tagHeader{t.id, 0, n, t.numValues})
		case value == t.mask:
			headers = append(headers, tagHeader{t.id, 1, 0, t.numValues})
		default:
			headers = append(headers, tagHeader{t.id, value >> bits.TrailingZeros32(t.mask), 0, t.numValues})
		}
	}
	if err := r.Err(); err != nil {
		return e, fmt.Errorf("%w: %w", common.ErrMalformedIndex, err)
	}

	for _, h := range headers {
		var values []uint32
		if h.valueCount != 0 {
			for i := uint32(0); i < h.valueCount*h.numValues; i++ {
				v, err := next()
				if err != nil {
					return e, err
				}
				values = append(values, v)
			}
		} else {
			for consumed := 0; consumed < int(h.valueBytes); {
				before := pos
				v, err := next()
				if err != nil {
					return e, err
				}
				values = append(values, v)
				consumed += pos - before
			}
		}
		e.Tags[h.id] = values
	}
	return e, nil
}
