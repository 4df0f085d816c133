package binstruct

import (
	"errors"
	"testing"

	"mobiparse/common"
)

func TestReaderFields(t *testing.T) {
	data := []byte{'M', 'O', 'B', 'I', 0x00, 0x00, 0x00, 0xE8, 0x12, 0x34, 0xFF}
	r := New("test", data)

	if got := r.Magic(0); got != "MOBI" {
		t.Errorf("Magic = %q, want MOBI", got)
	}
	if got := r.Uint32(4); got != 0xE8 {
		t.Errorf("Uint32 = %#x, want 0xe8", got)
	}
	if got := r.Uint16(8); got != 0x1234 {
		t.Errorf("Uint16 = %#x, want 0x1234", got)
	}
	if got := r.Uint8(10); got != 0xFF {
		t.Errorf("Uint8 = %#x, want 0xff", got)
	}
	if err := r.Err(); err != nil {
		t.Fatal("Unexpected error:", err)
	}
}

func TestReaderOutOfRange(t *testing.T) {
	r := New("short", []byte{1, 2, 3})

	if got := r.Uint32(0); got != 0 {
		t.Errorf("Uint32 on short buffer = %d, want 0", got)
	}
	// sticky - valid reads after the first failure still return zero
	if got := r.Uint8(0); got != 0 {
		t.Errorf("Uint8 after failure = %d, want 0", got)
	}
	if !errors.Is(r.Err(), common.ErrCorruptRecord) {
		t.Fatal("Expected ErrCorruptRecord, got:", r.Err())
	}
	if New("neg", []byte{1}).Bytes(-1, 1) != nil {
		t.Error("Negative offset must not produce data")
	}
}

func TestUint(t *testing.T) {
	tests := []struct {
		data []byte
		want uint32
	}{
		{nil, 0},
		{[]byte{0x7F}, 0x7F},
		{[]byte{0x01, 0x02}, 0x0102},
		{[]byte{0x00, 0x00, 0x01, 0x00}, 0x100},
		{[]byte{0xFF, 0xFF, 0xFF, 0xFF}, 0xFFFFFFFF},
	}
	for _, tt := range tests {
		if got := Uint(tt.data); got != tt.want {
			t.Errorf("Uint(%v) = %#x, want %#x", tt.data, got, tt.want)
		}
	}
}
