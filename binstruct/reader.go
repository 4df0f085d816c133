// Package binstruct extracts fixed-offset big-endian fields from record buffers.
package binstruct

import (
	"encoding/binary"
	"fmt"

	"mobiparse/common"
)

// Reader reads fields at fixed offsets of a single buffer. The first out of
// range access is remembered and every following read returns zero, so a
// whole header can be read and checked once with Err.
type Reader struct {
	name string
	data []byte
	err  error
}

// New returns Reader over data, name is used in error messages.
func New(name string, data []byte) *Reader {
	return &Reader{name: name, data: data}
}

func (r *Reader) check(ofs, size int) bool {
	if r.err != nil {
		return false
	}
	if ofs < 0 || size < 0 || ofs+size > len(r.data) {
		r.err = fmt.Errorf("%w: %s field at %d (size %d) is out of range [0, %d)", common.ErrCorruptRecord, r.name, ofs, size, len(r.data))
		return false
	}
	return true
}

// Uint8 returns byte at ofs.
func (r *Reader) Uint8(ofs int) uint32 {
	if !r.check(ofs, 1) {
		return 0
	}
	return uint32(r.data[ofs])
}

// Uint16 returns big-endian uint16 at ofs.
func (r *Reader) Uint16(ofs int) uint32 {
	if !r.check(ofs, 2) {
		return 0
	}
	return uint32(binary.BigEndian.Uint16(r.data[ofs:]))
}

// Uint32 returns big-endian uint32 at ofs.
func (r *Reader) Uint32(ofs int) uint32 {
	if !r.check(ofs, 4) {
		return 0
	}
	return binary.BigEndian.Uint32(r.data[ofs:])
}

// String returns size bytes at ofs as a string.
func (r *Reader) String(ofs, size int) string {
	if !r.check(ofs, size) {
		return ""
	}
	return string(r.data[ofs : ofs+size])
}

// Bytes returns sub-slice [ofs, ofs+size) without copying.
func (r *Reader) Bytes(ofs, size int) []byte {
	if !r.check(ofs, size) {
		return nil
	}
	return r.data[ofs : ofs+size]
}

// Magic is a shortcut for 4 byte tag.
func (r *Reader) Magic(ofs int) string {
	return r.String(ofs, 4)
}

// Len returns size of the underlying buffer.
func (r *Reader) Len() int {
	return len(r.data)
}

// Err returns first out of range error if any.
func (r *Reader) Err() error {
	return r.err
}

// Uint interprets a 1, 2 or 4 byte slice as big-endian unsigned value.
// Longer slices are truncated to the nearest of those sizes.
func Uint(data []byte) uint32 {
	switch len(data) {
	case 0:
		return 0
	case 1:
		return uint32(data[0])
	case 2, 3:
		return uint32(binary.BigEndian.Uint16(data))
	default:
		return binary.BigEndian.Uint32(data)
	}
}

// Magic returns the first 4 bytes of data as a string, shorter data is returned whole.
func Magic(data []byte) string {
	if len(data) < 4 {
		return string(data)
	}
	return string(data[:4])
}
