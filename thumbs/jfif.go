package thumbs

import (
	"bytes"
	"encoding/binary"
)

// Go jpeg encoder does not write JFIF APP0 segment, some readers (Kindle
// among them) insist on having it.

// JpegDPIType specifies type of the DPI units
type JpegDPIType uint8

// DPI units type values
const (
	DpiNoUnits JpegDPIType = iota
	DpiPxPerInch
	DpiPxPerSm
)

var (
	app0 = []byte{0xFF, 0xE0}
	jfif = []byte{'J', 'F', 'I', 'F', 0x00, 0x01, 0x02}
)

// SetJpegDPI inserts JFIF APP0 segment with provided density right after
// SOI marker unless image already has one.
func SetJpegDPI(data []byte, units JpegDPIType, xdensity, ydensity uint16) []byte {
	if len(data) < 4 || bytes.Equal(data[2:4], app0) {
		return data
	}

	be := binary.BigEndian
	out := make([]byte, 0, len(data)+18)
	out = append(out, data[:2]...)
	out = append(out, app0...)
	out = be.AppendUint16(out, 16)
	out = append(out, jfif...)
	out = append(out, byte(units))
	out = be.AppendUint16(out, xdensity)
	out = be.AppendUint16(out, ydensity)
	// no embedded thumbnail
	out = append(out, 0, 0)
	return append(out, data[2:]...)
}
