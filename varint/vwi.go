// Package varint implements Variable Width Integer encoding/decoding.
//
// Varint encoding uses 7 bits per byte in big-endian format.
// The most significant bit (bit 8) indicates termination.
//
// Forward encoding: MSB is set on the last byte of a value read left to right
// (index entries, CNCX lengths).
// Backward encoding: MSB is set on the first byte, value is read from the
// end of a buffer (trailing entries of text records).
package varint

import (
	"errors"
)

// MaxLen is the longest encoding decoders look at.
const MaxLen = 4

var (
	ErrUnderflow = errors.New("varint: data underflow")
)

// EncodeForward encodes a value using forward varint encoding.
// Example: value 0x11111 -> []byte{0x04, 0x22, 0x91}
func EncodeForward(value uint32) []byte {
	chunks := chunksOf(value)
	chunks[0] |= 0x80
	return reverse(chunks)
}

// EncodeBackward encodes a value using backward varint encoding.
// Example: value 0x11111 -> []byte{0x84, 0x22, 0x11}
func EncodeBackward(value uint32) []byte {
	chunks := chunksOf(value)
	chunks[len(chunks)-1] |= 0x80
	return reverse(chunks)
}

// chunksOf extracts 7-bit chunks, LSB first.
func chunksOf(value uint32) []byte {
	if value == 0 {
		return []byte{0}
	}
	var chunks []byte
	for value > 0 {
		chunks = append(chunks, byte(value&0x7F))
		value >>= 7
	}
	return chunks
}

func reverse(chunks []byte) []byte {
	result := make([]byte, len(chunks))
	for i := range chunks {
		result[i] = chunks[len(chunks)-1-i]
	}
	return result
}

// DecodeForward decodes a forward encoded value from the start of data.
// At most MaxLen bytes are consumed even if no terminating byte is found.
// Returns the decoded value and the number of bytes consumed.
func DecodeForward(data []byte) (uint32, int, error) {
	if len(data) == 0 {
		return 0, 0, ErrUnderflow
	}
	var (
		value uint32
		n     int
	)
	for _, b := range data[:min(len(data), MaxLen)] {
		value = value<<7 | uint32(b&0x7F)
		n++
		if b&0x80 != 0 {
			break
		}
	}
	return value, n, nil
}

// DecodeBackward decodes a backward encoded value ending at the last byte of data.
// Only the last MaxLen bytes are examined, a byte with MSB set restarts the value.
func DecodeBackward(data []byte) uint32 {
	var value uint32
	for _, b := range data[max(0, len(data)-MaxLen):] {
		if b&0x80 != 0 {
			value = 0
		}
		value = value<<7 | uint32(b&0x7F)
	}
	return value
}
