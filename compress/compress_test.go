package compress

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"mobiparse/common"
	"mobiparse/internal/testbook"
)

func TestPalmDOCRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	noise := make([]byte, 3000)
	rnd.Read(noise)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", []byte("abc")},
		{"repeats", testbook.Repeat("<p>Hello world, hello again. </p>", 4096)},
		{"overlapping run", bytes.Repeat([]byte{'a'}, 100)},
		{"spaces", []byte(" a b c d e f g h i j k l m n o p")},
		{"high bytes", []byte("\xe4\xbd\xa0\xe5\xa5\xbd \xe4\xb8\x96\xe7\x95\x8c, \x01\x02\x03\x80\xff")},
		{"random", noise},
		{"several blocks", testbook.Repeat("chapter text 0123456789 ", 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecompressPalmDOC(testbook.PalmDOC(tt.data))
			if err != nil {
				t.Fatal("Unexpected error:", err)
			}
			if !bytes.Equal(got, tt.data) {
				t.Fatalf("Round trip mismatch: got %d bytes, want %d", len(got), len(tt.data))
			}
		})
	}
}

func TestPalmDOCCodes(t *testing.T) {
	// literal, 3 raw bytes, space+char, back reference (distance 4, length 3)
	in := []byte{'a', 'b', 'c', 'd', 0x03, 0x01, 0x02, 0x03, 0xE5}
	pair := uint16(0x8000 | 4<<3 | 0)
	in = binary.BigEndian.AppendUint16(in, pair)
	want := []byte{'a', 'b', 'c', 'd', 0x01, 0x02, 0x03, ' ', 'e', 0x02, 0x03, ' '}

	got, err := DecompressPalmDOC(in)
	if err != nil {
		t.Fatal("Unexpected error:", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("DecompressPalmDOC = %v, want %v", got, want)
	}
}

func TestPalmDOCCorrupt(t *testing.T) {
	for name, in := range map[string][]byte{
		"distance past output": {'a', 0x80, 0x50},
		"truncated pair":       {'a', 0x81},
		"literal past end":     {0x05, 'a'},
	} {
		if _, err := DecompressPalmDOC(in); !errors.Is(err, common.ErrCorruptRecord) {
			t.Errorf("%s: expected ErrCorruptRecord, got %v", name, err)
		}
	}
}

func TestHuffDirectTable(t *testing.T) {
	huff, cdic := testbook.HuffCDIC([]testbook.HuffSlot{
		{Data: []byte("Hello")},
		{Data: []byte(" ")},
		{Data: []byte("World")},
		{Data: testbook.HuffEncode(0, 1, 2), Compressed: true},
	})
	h, err := NewHuff(huff, [][]byte{cdic})
	if err != nil {
		t.Fatal("Unable to build tables:", err)
	}

	in := testbook.HuffEncode(3, 1, 3)
	want := []byte("Hello World Hello World")
	for i := 0; i < 2; i++ {
		got, err := h.Decompress(in)
		if err != nil {
			t.Fatal("Unexpected error:", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Decompress pass %d = %q, want %q", i, got, want)
		}
	}
	if h.expansions != 1 {
		t.Errorf("Compressed slot expanded %d times, want 1", h.expansions)
	}
}

// canonical code: a=11 b=10 c=01 d=001 e=000, all lengths resolved through table2
func escalatingTables(t *testing.T) ([]byte, []byte) {
	t.Helper()

	const off1, off2 = 24, 24 + 256*4
	huff := make([]byte, off2+32*8)
	copy(huff, "HUFF")
	binary.BigEndian.PutUint32(huff[8:], off1)
	binary.BigEndian.PutUint32(huff[12:], off2)
	for i := 0; i < 256; i++ {
		binary.BigEndian.PutUint32(huff[off1+i*4:], 1)
	}
	put := func(codeLen int, minCode, maxCode uint32) {
		binary.BigEndian.PutUint32(huff[off2+(codeLen-1)*8:], minCode)
		binary.BigEndian.PutUint32(huff[off2+(codeLen-1)*8+4:], maxCode)
	}
	put(1, 2, 0)
	put(2, 1, 3)
	put(3, 0, 4)

	_, cdic := testbook.HuffCDIC([]testbook.HuffSlot{
		{Data: []byte("a")}, {Data: []byte("b")}, {Data: []byte("c")}, {Data: []byte("d")}, {Data: []byte("e")},
	})
	return huff, cdic
}

func TestHuffEscalation(t *testing.T) {
	huff, cdic := escalatingTables(t)
	h, err := NewHuff(huff, [][]byte{cdic})
	if err != nil {
		t.Fatal("Unable to build tables:", err)
	}
	// 11 10 01 001 000 11 10
	got, err := h.Decompress([]byte{0xE4, 0x8E})
	if err != nil {
		t.Fatal("Unexpected error:", err)
	}
	if string(got) != "abcdeab" {
		t.Errorf("Decompress = %q, want %q", got, "abcdeab")
	}
}

func TestHuffCDICLimit(t *testing.T) {
	// declared total is smaller than what the record carries
	_, cdic := testbook.HuffCDIC([]testbook.HuffSlot{{Data: []byte("x")}, {Data: []byte("y")}, {Data: []byte("z")}})
	binary.BigEndian.PutUint32(cdic[8:], 2)
	huff, _ := testbook.HuffCDIC(nil)

	h, err := NewHuff(huff, [][]byte{cdic})
	if err != nil {
		t.Fatal("Unable to build tables:", err)
	}
	if len(h.dictionary) != 2 {
		t.Errorf("Dictionary size = %d, want 2", len(h.dictionary))
	}
	if _, err := h.Decompress(testbook.HuffEncode(2)); !errors.Is(err, common.ErrCorruptRecord) {
		t.Errorf("Expected ErrCorruptRecord for slot past dictionary, got %v", err)
	}
}

func TestHuffBadMagic(t *testing.T) {
	huff, cdic := testbook.HuffCDIC(nil)
	copy(huff, "HUFX")
	if _, err := NewHuff(huff, [][]byte{cdic}); !errors.Is(err, common.ErrInvalidCompressionTable) {
		t.Errorf("Expected ErrInvalidCompressionTable for HUFF magic, got %v", err)
	}
	huff, _ = testbook.HuffCDIC(nil)
	copy(cdic, "CDIX")
	if _, err := NewHuff(huff, [][]byte{cdic}); !errors.Is(err, common.ErrInvalidCompressionTable) {
		t.Errorf("Expected ErrInvalidCompressionTable for CDIC magic, got %v", err)
	}
}

func TestCheckCode(t *testing.T) {
	for _, code := range []int{None, PalmDOC, HuffCDIC} {
		if err := CheckCode(code); err != nil {
			t.Errorf("CheckCode(%d) = %v", code, err)
		}
	}
	if err := CheckCode(3); !errors.Is(err, common.ErrUnsupportedCompression) {
		t.Errorf("CheckCode(3) = %v, want ErrUnsupportedCompression", err)
	} else if !strings.Contains(err.Error(), "unknown(3)") {
		t.Errorf("CheckCode(3) message %q does not name the code", err)
	}
	if Name(PalmDOC) != "palmdoc" || Name(HuffCDIC) != "huff/cdic" || Name(None) != "none" {
		t.Errorf("Unexpected compression names %q, %q, %q", Name(PalmDOC), Name(HuffCDIC), Name(None))
	}
}

func TestHuffHostileCDIC(t *testing.T) {
	huff, _ := testbook.HuffCDIC(nil)

	headerOnly := func(total, codeLen uint32) []byte {
		cdic := make([]byte, 16)
		copy(cdic, "CDIC")
		binary.BigEndian.PutUint32(cdic[4:], 16)
		binary.BigEndian.PutUint32(cdic[8:], total)
		binary.BigEndian.PutUint32(cdic[12:], codeLen)
		return cdic
	}
	_, farOffset := testbook.HuffCDIC([]testbook.HuffSlot{{Data: []byte("x")}})
	binary.BigEndian.PutUint16(farOffset[16:], 0xFFFF)
	_, longEntry := testbook.HuffCDIC([]testbook.HuffSlot{{Data: []byte("x")}})
	binary.BigEndian.PutUint16(longEntry[18:], 0x8000|0x7FFF)

	tests := []struct {
		name string
		cdic []byte
		want error
	}{
		{"huge declared count", headerOnly(0x7FFFFFFF, 31), common.ErrCorruptRecord},
		{"count past offsets", headerOnly(2, 8), common.ErrCorruptRecord},
		{"offset past record", farOffset, common.ErrCorruptRecord},
		{"entry past record", longEntry, common.ErrCorruptRecord},
		{"code length", headerOnly(1, 32), common.ErrInvalidCompressionTable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewHuff(huff, [][]byte{tt.cdic}); !errors.Is(err, tt.want) {
				t.Errorf("NewHuff = %v, want %v", err, tt.want)
			}
		})
	}
}
