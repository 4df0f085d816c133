package resources

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"go.uber.org/zap"

	"mobiparse/binstruct"
	"mobiparse/common"
)

const mediaHeaderLength = 12

// Resource is decoded content of a resource record.
type Resource struct {
	Type string
	Data []byte
	// Warning is set when resource could only be partially decoded and Data
	// holds what was available.
	Warning error
}

// Decode converts resource record into resource content. FONT records are
// deobfuscated and inflated, VIDE and AUDI records lose their header, other
// records are used as is.
func Decode(rec []byte, log *zap.Logger) *Resource {
	var (
		data = rec
		warn error
	)
	switch binstruct.Magic(rec) {
	case "FONT":
		if data, warn = decodeFont(rec); warn != nil && log != nil {
			log.Warn("Unable to decompress font, using raw data", zap.Error(warn))
		}
	case "VIDE", "AUDI":
		data = rec[min(mediaHeaderLength, len(rec)):]
	}
	return &Resource{Type: SniffType(data), Data: data, Warning: warn}
}

func decodeFont(rec []byte) ([]byte, error) {
	r := binstruct.New("FONT header", rec)
	flags, dataStart, keyLength, keyStart := r.Uint32(8), int(r.Uint32(12)), int(r.Uint32(16)), int(r.Uint32(20))
	if err := r.Err(); err != nil {
		return rec, fmt.Errorf("%w: %w", common.ErrResourceDecode, err)
	}
	if dataStart > len(rec) {
		return rec, fmt.Errorf("%w: font data offset %d is out of range", common.ErrResourceDecode, dataStart)
	}
	data := append([]byte(nil), rec[dataStart:]...)

	if flags&2 != 0 {
		key := r.Bytes(keyStart, keyLength)
		if err := r.Err(); err != nil {
			return data, fmt.Errorf("%w: font key: %w", common.ErrResourceDecode, err)
		}
		size := 1040
		if len(key) == 16 {
			size = 1024
		}
		if len(key) > 0 {
			for i := 0; i < min(size, len(data)); i++ {
				data[i] ^= key[i%len(key)]
			}
		}
	}

	if flags&1 != 0 {
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return data, fmt.Errorf("%w: %w", common.ErrResourceDecode, err)
		}
		defer zr.Close()
		inflated, err := io.ReadAll(zr)
		if err != nil {
			return data, fmt.Errorf("%w: %w", common.ErrResourceDecode, err)
		}
		return inflated, nil
	}
	return data, nil
}
