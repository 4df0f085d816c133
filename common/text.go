package common

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Text encodings declared in MOBI and INDX headers.
const (
	CP1252 = 1252
	UTF8   = 65001
)

// EncodingName returns encoding label for MOBI encoding code, unknown codes are treated as utf-8.
func EncodingName(code uint32) string {
	switch code {
	case CP1252:
		return "windows-1252"
	default:
		return "utf-8"
	}
}

// TextEncoding returns x/text encoding for MOBI encoding code.
// Invalid UTF-8 sequences are replaced with U+FFFD on decoding.
func TextEncoding(code uint32) encoding.Encoding {
	switch code {
	case CP1252:
		return charmap.Windows1252
	default:
		return unicode.UTF8
	}
}

// DecodeString converts bytes in MOBI encoding code to Go string.
func DecodeString(code uint32, data []byte) string {
	if len(data) == 0 {
		return ""
	}
	out, err := TextEncoding(code).NewDecoder().Bytes(data)
	if err != nil {
		// decoders in use replace bad input and never fail
		return string(data)
	}
	return string(out)
}
