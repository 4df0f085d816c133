package resources

import (
	"bytes"
	"compress/zlib"
	"errors"
	"testing"

	"go.uber.org/zap"

	"mobiparse/common"
	"mobiparse/internal/testbook"
)

func TestSniffType(t *testing.T) {
	tests := []struct {
		data []byte
		want string
		ext  string
	}{
		{testbook.JPEG, "image/jpeg", "jpg"},
		{testbook.PNG, "image/png", "png"},
		{[]byte("GIF89a"), "image/gif", "gif"},
		{[]byte("<svg xmlns"), SVG, "svg"},
		{[]byte("OTTO\x00\x01"), "font/otf", "otf"},
		{[]byte{0x00, 0x01, 0x00, 0x00, 0x00}, "font/ttf", "ttf"},
		{[]byte("wOF2"), "font/woff2", "woff2"},
		{[]byte("hello"), Unknown, "bin"},
		{nil, Unknown, "bin"},
	}
	for _, tt := range tests {
		got := SniffType(tt.data)
		if got != tt.want {
			t.Errorf("SniffType(%q) = %q, want %q", tt.data, got, tt.want)
		}
		if ext := Ext(got); ext != tt.ext {
			t.Errorf("Ext(%q) = %q, want %q", got, ext, tt.ext)
		}
	}
	if Ext("application/x-whatever") != "bin" {
		t.Error("Unknown MIME type should map to bin")
	}
}

func zlibbed(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeFont(t *testing.T) {
	font := append([]byte("OTTO"), testbook.Repeat("glyph data ", 3000)...)
	key16 := []byte("0123456789abcdef")
	key := []byte("a longer key, not 16 bytes")

	tests := []struct {
		name    string
		rec     []byte
		warning bool
	}{
		{"plain", testbook.Font(font, nil, nil), false},
		{"obfuscated 16", testbook.Font(font, key16, nil), false},
		{"obfuscated 1040", testbook.Font(font, key, nil), false},
		{"compressed", testbook.Font(font, nil, zlibbed(t, font)), false},
		{"compressed and obfuscated", testbook.Font(font, key16, zlibbed(t, font)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Decode(tt.rec, zap.NewNop())
			if res.Warning != nil {
				t.Fatal("Unexpected warning:", res.Warning)
			}
			if !bytes.Equal(res.Data, font) {
				t.Fatalf("Decoded font mismatch: got %d bytes, want %d", len(res.Data), len(font))
			}
			if res.Type != "font/otf" {
				t.Errorf("Type = %q", res.Type)
			}
		})
	}
}

func TestDecodeFontBadZlib(t *testing.T) {
	garbage := []byte("this is not zlib stream at all")
	res := Decode(testbook.Font(garbage, nil, garbage), zap.NewNop())
	if !errors.Is(res.Warning, common.ErrResourceDecode) {
		t.Fatalf("Expected ErrResourceDecode warning, got %v", res.Warning)
	}
	if !bytes.Equal(res.Data, garbage) {
		t.Errorf("Raw data not kept: %q", res.Data)
	}
}

func TestDecodeMedia(t *testing.T) {
	for _, magic := range []string{"VIDE", "AUDI"} {
		res := Decode(testbook.Resource(magic, []byte("OggS payload")), nil)
		if string(res.Data) != "OggS payload" || res.Type != "audio/ogg" {
			t.Errorf("%s: got %q of type %q", magic, res.Data, res.Type)
		}
	}
	res := Decode(testbook.JPEG, nil)
	if !bytes.Equal(res.Data, testbook.JPEG) || res.Type != "image/jpeg" {
		t.Errorf("Image record changed: %v %q", res.Data, res.Type)
	}
}

func TestMemorySink(t *testing.T) {
	s := NewMemorySink()
	loc, err := s.Save("cover", "image/jpeg", testbook.JPEG)
	if err != nil {
		t.Fatal(err)
	}
	if loc != "memory:cover.jpg" {
		t.Errorf("Location = %q", loc)
	}
	if it, ok := s.Get(loc); !ok || it.Type != "image/jpeg" {
		t.Errorf("Saved item not found: %+v", it)
	}
	if err := s.Release(loc); err != nil {
		t.Fatal(err)
	}
	if err := s.Release(loc); err == nil {
		t.Error("Expected error releasing unknown location")
	}
	if s.Len() != 0 {
		t.Error("Sink is not empty")
	}
}
