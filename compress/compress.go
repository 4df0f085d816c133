// Package compress implements decompressors for MOBI text records.
package compress

import (
	"fmt"

	"mobiparse/common"
)

// Compression codes from PalmDOC header.
const (
	None     = 1
	PalmDOC  = 2
	HuffCDIC = 17480 // "DH"
)

// Decompressor expands a single text record.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Func adapts plain function to Decompressor.
type Func func(data []byte) ([]byte, error)

// Decompress implements Decompressor.
func (f Func) Decompress(data []byte) ([]byte, error) {
	return f(data)
}

// Passthrough returns data as is, used for uncompressed books.
var Passthrough = Func(func(data []byte) ([]byte, error) {
	return data, nil
})

// Name returns human readable compression name.
func Name(code int) string {
	switch code {
	case None:
		return "none"
	case PalmDOC:
		return "palmdoc"
	case HuffCDIC:
		return "huff/cdic"
	default:
		return fmt.Sprintf("unknown(%d)", code)
	}
}

// CheckCode fails for compression codes we do not know how to handle.
func CheckCode(code int) error {
	switch code {
	case None, PalmDOC, HuffCDIC:
		return nil
	}
	return fmt.Errorf("%w: %s", common.ErrUnsupportedCompression, Name(code))
}
