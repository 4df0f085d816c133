package testbook

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"mobiparse/varint"
)

// NoIndex marks absent record pointer.
const NoIndex = 0xFFFFFFFF

// Exth is a single EXTH record.
type Exth struct {
	Type uint32
	Data []byte
}

// ExthString returns EXTH record with string payload.
func ExthString(t uint32, s string) Exth {
	return Exth{Type: t, Data: []byte(s)}
}

// ExthUint returns EXTH record with 4 byte payload.
func ExthUint(t, v uint32) Exth {
	return Exth{Type: t, Data: binary.BigEndian.AppendUint32(nil, v)}
}

// Header describes first book record.
type Header struct {
	Compression    uint16
	TextLength     uint32
	NumTextRecords uint16
	RecordSize     uint16
	Encryption     uint16
	Encoding       uint32
	UID            uint32
	Version        uint32
	Title          string
	LocaleLanguage byte
	LocaleRegion   byte
	ResourceStart  uint32
	HuffStart      uint32
	HuffCount      uint32
	TrailingFlags  uint32
	Indx           uint32
	FDST           uint32
	FDSTCount      uint32
	Frag           uint32
	Skel           uint32
	Guide          uint32
	Magic          string // "MOBI" when empty
	Exth           []Exth // EXTH flag is set when not nil
}

// NewHeader returns header with all pointers absent.
func NewHeader() Header {
	return Header{
		Compression:   1,
		RecordSize:    4096,
		Encoding:      65001,
		Version:       6,
		ResourceStart: NoIndex,
		HuffStart:     0,
		HuffCount:     0,
		Indx:          NoIndex,
		FDST:          NoIndex,
		Frag:          NoIndex,
		Skel:          NoIndex,
		Guide:         NoIndex,
	}
}

const mobiHeaderLength = 264

// Record0 serializes header into the first book record.
func Record0(h Header) []byte {
	rec := make([]byte, 16+mobiHeaderLength)
	be := binary.BigEndian
	be.PutUint16(rec[0:], h.Compression)
	be.PutUint32(rec[4:], h.TextLength)
	be.PutUint16(rec[8:], h.NumTextRecords)
	be.PutUint16(rec[10:], h.RecordSize)
	be.PutUint16(rec[12:], h.Encryption)

	// everything unknown is absent
	for i := 40; i < len(rec); i += 4 {
		be.PutUint32(rec[i:], NoIndex)
	}
	magic := h.Magic
	if magic == "" {
		magic = "MOBI"
	}
	copy(rec[16:], magic)
	be.PutUint32(rec[20:], mobiHeaderLength)
	be.PutUint32(rec[24:], 2)
	be.PutUint32(rec[28:], h.Encoding)
	be.PutUint32(rec[32:], h.UID)
	be.PutUint32(rec[36:], h.Version)
	be.PutUint32(rec[92:], 0)
	rec[94] = h.LocaleRegion
	rec[95] = h.LocaleLanguage
	be.PutUint32(rec[108:], h.ResourceStart)
	be.PutUint32(rec[112:], h.HuffStart)
	be.PutUint32(rec[116:], h.HuffCount)
	be.PutUint32(rec[128:], 0)
	be.PutUint32(rec[192:], h.FDST)
	be.PutUint32(rec[196:], h.FDSTCount)
	be.PutUint32(rec[240:], h.TrailingFlags)
	be.PutUint32(rec[244:], h.Indx)
	be.PutUint32(rec[248:], h.Frag)
	be.PutUint32(rec[252:], h.Skel)
	be.PutUint32(rec[260:], h.Guide)

	if h.Exth != nil {
		be.PutUint32(rec[128:], 0x40)
		rec = append(rec, exthBlock(h.Exth)...)
	}
	be.PutUint32(rec[84:], uint32(len(rec)))
	be.PutUint32(rec[88:], uint32(len(h.Title)))
	rec = append(rec, h.Title...)
	rec = append(rec, 0, 0)
	return pad4(rec)
}

func exthBlock(records []Exth) []byte {
	var body []byte
	for _, r := range records {
		body = binary.BigEndian.AppendUint32(body, r.Type)
		body = binary.BigEndian.AppendUint32(body, uint32(len(r.Data)+8))
		body = append(body, r.Data...)
	}
	block := []byte("EXTH")
	block = binary.BigEndian.AppendUint32(block, uint32(len(body)+12))
	block = binary.BigEndian.AppendUint32(block, uint32(len(records)))
	return pad4(append(block, body...))
}

func pad4(b []byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

// PDB assembles records into Palm database.
func PDB(name string, records [][]byte) []byte {
	return pdb(name, "BOOKMOBI", records)
}

func pdb(name, typeCreator string, records [][]byte) []byte {
	hdr := make([]byte, 78)
	copy(hdr, name)
	copy(hdr[60:], typeCreator)
	binary.BigEndian.PutUint16(hdr[76:], uint16(len(records)))

	ofs := 78 + len(records)*8 + 2
	var dir []byte
	for i, r := range records {
		dir = binary.BigEndian.AppendUint32(dir, uint32(ofs))
		dir = binary.BigEndian.AppendUint32(dir, uint32(i*2))
		ofs += len(r)
	}
	out := append(hdr, dir...)
	out = append(out, 0, 0)
	for _, r := range records {
		out = append(out, r...)
	}
	return out
}

// TextReadPDB assembles records into legacy TEXtREAd database.
func TextReadPDB(name string, records [][]byte) []byte {
	return pdb(name, "TEXtREAd", records)
}

// TextRecords splits text into records of size bytes, compresses each one
// and appends trailing entries described by flags.
func TextRecords(text []byte, size int, compression uint16, flags uint32) [][]byte {
	var recs [][]byte
	for start := 0; start < len(text); start += size {
		chunk := text[start:min(start+size, len(text))]
		var rec []byte
		switch compression {
		case 2:
			rec = PalmDOC(chunk)
		default:
			rec = append([]byte(nil), chunk...)
		}
		recs = append(recs, appendTrailing(rec, flags))
	}
	return recs
}

// appendTrailing adds multibyte marker and one small entry per extra flag bit.
func appendTrailing(rec []byte, flags uint32) []byte {
	if flags&1 != 0 {
		// no continuation bytes, marker strips itself
		rec = append(rec, 0x00)
	}
	for f := flags >> 1; f > 0; f >>= 1 {
		if f&1 == 0 {
			continue
		}
		payload := []byte{0xAA, 0xBB, 0xCC}
		rec = append(rec, payload...)
		rec = append(rec, varint.EncodeBackward(uint32(len(payload)+1))...)
	}
	return rec
}

// Resource stores payload wrapped the way MOBI stores media.
func Resource(magic string, payload []byte) []byte {
	if magic == "" {
		return append([]byte(nil), payload...)
	}
	rec := []byte(magic)
	rec = binary.BigEndian.AppendUint32(rec, 12)
	rec = binary.BigEndian.AppendUint32(rec, 0)
	return append(rec, payload...)
}

// Font produces FONT record, obfuscating first bytes with key when key is set.
func Font(data []byte, key []byte, zlibbed []byte) []byte {
	payload := append([]byte(nil), data...)
	flags := uint32(0)
	if zlibbed != nil {
		payload = append([]byte(nil), zlibbed...)
		flags |= 1
	}
	if len(key) > 0 {
		flags |= 2
		n := 1040
		if len(key) == 16 {
			n = 1024
		}
		for i := 0; i < min(n, len(payload)); i++ {
			payload[i] ^= key[i%len(key)]
		}
	}
	const hdr = 24
	rec := []byte("FONT")
	rec = binary.BigEndian.AppendUint32(rec, uint32(len(data)))
	rec = binary.BigEndian.AppendUint32(rec, flags)
	rec = binary.BigEndian.AppendUint32(rec, uint32(hdr+len(key)))
	rec = binary.BigEndian.AppendUint32(rec, uint32(len(key)))
	rec = binary.BigEndian.AppendUint32(rec, hdr)
	rec = append(rec, key...)
	return append(rec, payload...)
}

// FDST builds flow table record.
func FDST(flows [][2]uint32) []byte {
	rec := []byte("FDST")
	rec = binary.BigEndian.AppendUint32(rec, 12)
	rec = binary.BigEndian.AppendUint32(rec, uint32(len(flows)))
	for _, f := range flows {
		rec = binary.BigEndian.AppendUint32(rec, f[0])
		rec = binary.BigEndian.AppendUint32(rec, f[1])
	}
	return rec
}

// JPEG and PNG are tiny payloads carrying proper magic.
var (
	JPEG = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	PNG  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
)

// Repeat returns s repeated until it is at least n bytes long.
func Repeat(s string, n int) []byte {
	return bytes.Repeat([]byte(s), n/len(s)+1)[:n]
}

// Records serves records from memory the way book file does.
type Records [][]byte

// LoadRecord returns record i.
func (r Records) LoadRecord(i int) ([]byte, error) {
	if i < 0 || i >= len(r) {
		return nil, fmt.Errorf("record %d is out of range [0, %d)", i, len(r))
	}
	return r[i], nil
}
