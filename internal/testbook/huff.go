package testbook

import (
	"encoding/binary"
)

// HuffSlot is a dictionary entry, Compressed entries hold HUFF coded data themselves.
type HuffSlot struct {
	Data       []byte
	Compressed bool
}

// HuffCDIC returns HUFF and CDIC records for a flat 8 bit code where byte
// value b selects dictionary slot 255-b. Up to 256 slots are supported.
func HuffCDIC(slots []HuffSlot) ([]byte, []byte) {
	const off1, off2 = 24, 24 + 256*4
	huff := make([]byte, off2+32*8)
	copy(huff, "HUFF")
	binary.BigEndian.PutUint32(huff[4:], 24)
	binary.BigEndian.PutUint32(huff[8:], off1)
	binary.BigEndian.PutUint32(huff[12:], off2)
	for i := 0; i < 256; i++ {
		binary.BigEndian.PutUint32(huff[off1+i*4:], 0x80|8|255<<8)
	}

	cdic := make([]byte, 16)
	copy(cdic, "CDIC")
	binary.BigEndian.PutUint32(cdic[4:], 16)
	binary.BigEndian.PutUint32(cdic[8:], uint32(len(slots)))
	binary.BigEndian.PutUint32(cdic[12:], 8)

	body := make([]byte, len(slots)*2)
	for i, s := range slots {
		binary.BigEndian.PutUint16(body[i*2:], uint16(len(body)))
		x := uint16(len(s.Data))
		if !s.Compressed {
			x |= 0x8000
		}
		body = binary.BigEndian.AppendUint16(body, x)
		body = append(body, s.Data...)
	}
	return huff, append(cdic, body...)
}

// HuffEncode produces input selecting passed slots in order.
func HuffEncode(slots ...int) []byte {
	out := make([]byte, len(slots))
	for i, s := range slots {
		out[i] = byte(255 - s)
	}
	return out
}
