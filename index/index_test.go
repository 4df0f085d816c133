package index

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"mobiparse/common"
	"mobiparse/internal/testbook"
	"mobiparse/varint"
)

func TestReadTable(t *testing.T) {
	cncx, offs := testbook.CNCX("Table of Contents", "Cover")
	recs := testbook.Records(testbook.Index(testbook.GuideTags, []testbook.Entry{
		{Name: "toc", Tags: map[byte][]uint32{1: {offs[0]}, 6: {12}}},
		{Name: "cover", Tags: map[byte][]uint32{1: {offs[1]}}},
	}, cncx))

	tbl, err := Read(recs, 0)
	if err != nil {
		t.Fatal("Unable to read index:", err)
	}
	if len(tbl.Entries) != 2 {
		t.Fatal("Entries not 2:", len(tbl.Entries))
	}
	want := []Entry{
		{Name: "toc", Tags: map[uint32][]uint32{1: {offs[0]}, 6: {12}}},
		{Name: "cover", Tags: map[uint32][]uint32{1: {offs[1]}}},
	}
	if !reflect.DeepEqual(tbl.Entries, want) {
		t.Errorf("Entries = %+v, want %+v", tbl.Entries, want)
	}
	if got := tbl.Label(offs[0]); got != "Table of Contents" {
		t.Errorf("Label = %q", got)
	}
	if _, ok := tbl.Entries[1].First(6); ok {
		t.Error("Absent tag reported as present")
	}
}

func TestReadSeveralCNCX(t *testing.T) {
	first, _ := testbook.CNCX("one")
	second, offs := testbook.CNCX("two", "three")
	recs := testbook.Records(testbook.Index(testbook.GuideTags, []testbook.Entry{
		{Name: "x", Tags: map[byte][]uint32{1: {0x10000 + offs[1]}}},
	}, first, second))

	tbl, err := Read(recs, 0)
	if err != nil {
		t.Fatal("Unable to read index:", err)
	}
	key, _ := tbl.Entries[0].First(1)
	if got := tbl.Label(key); got != "three" {
		t.Errorf("Label from second CNCX record = %q, want %q", got, "three")
	}
	if got := tbl.Label(0); got != "one" {
		t.Errorf("Label from first CNCX record = %q, want %q", got, "one")
	}
}

// multiBitIndex has two tags sharing single control byte: tag 1 counts
// occurrences in two bits, tag 2 carries byte length of its values.
func multiBitIndex(t *testing.T, values []byte) testbook.Records {
	t.Helper()

	be := binary.BigEndian
	head := make([]byte, 192)
	copy(head, "INDX")
	be.PutUint32(head[4:], 192)
	be.PutUint32(head[24:], 1)
	be.PutUint32(head[28:], common.UTF8)
	head = append(head, "TAGX"...)
	head = be.AppendUint32(head, 24)
	head = be.AppendUint32(head, 1)
	head = append(head, 1, 1, 0x03, 0, 2, 2, 0x0C, 0, 0, 0, 0, 1)

	data := make([]byte, 192)
	copy(data, "INDX")
	be.PutUint32(data[4:], 192)
	be.PutUint32(data[24:], 1)
	data = append(data, 2, 'e', '0', 0x0E)
	data = append(data, values...)
	for len(data)%4 != 0 {
		data = append(data, 0)
	}
	be.PutUint32(data[20:], uint32(len(data)))
	data = append(data, "IDXT"...)
	data = be.AppendUint16(data, 192)
	return testbook.Records{head, data}
}

func TestMultiBitMask(t *testing.T) {
	var values []byte
	values = append(values, varint.EncodeForward(4)...)
	values = append(values, varint.EncodeForward(5)...)
	values = append(values, varint.EncodeForward(300)...)
	values = append(values, varint.EncodeForward(7)...)
	values = append(values, varint.EncodeForward(0x4000)...)

	tbl, err := Read(multiBitIndex(t, values), 0)
	if err != nil {
		t.Fatal("Unable to read index:", err)
	}
	want := map[uint32][]uint32{1: {5, 300}, 2: {7, 0x4000}}
	if !reflect.DeepEqual(tbl.Entries[0].Tags, want) {
		t.Errorf("Tags = %v, want %v", tbl.Entries[0].Tags, want)
	}
}

func TestMalformed(t *testing.T) {
	recs := testbook.Records(testbook.Index(testbook.GuideTags, nil))
	recs[0] = append([]byte("XNDX"), recs[0][4:]...)
	if _, err := Read(recs, 0); !errors.Is(err, common.ErrInvalidHeader) {
		t.Errorf("Expected ErrInvalidHeader for bad INDX magic, got %v", err)
	}

	recs = testbook.Records(testbook.Index(testbook.GuideTags, nil))
	copy(recs[0][192:], "TAGY")
	if _, err := Read(recs, 0); !errors.Is(err, common.ErrInvalidHeader) {
		t.Errorf("Expected ErrInvalidHeader for bad TAGX magic, got %v", err)
	}

	// values declared but record ends right after control byte
	if _, err := Read(multiBitIndex(t, nil), 0); !errors.Is(err, common.ErrMalformedIndex) {
		t.Errorf("Expected ErrMalformedIndex for truncated entry, got %v", err)
	}

	if _, err := Read(testbook.Records{}, 0); err == nil {
		t.Error("Expected error for missing record")
	}
}

func TestHostileCounts(t *testing.T) {
	be := binary.BigEndian
	tests := []struct {
		name   string
		mutate func(recs testbook.Records)
		want   error
	}{
		{"TAGX length", func(recs testbook.Records) { be.PutUint32(recs[0][196:], 0xFFFFFFF0) }, common.ErrCorruptRecord},
		{"data record count", func(recs testbook.Records) { be.PutUint32(recs[0][24:], 0xFFFFFFFF) }, common.ErrMalformedIndex},
		{"CNCX record count", func(recs testbook.Records) { be.PutUint32(recs[0][52:], 0xFFFFFFFF) }, common.ErrMalformedIndex},
		{"entry count", func(recs testbook.Records) { be.PutUint32(recs[1][24:], 0xFFFFFFFF) }, common.ErrMalformedIndex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cncx, offs := testbook.CNCX("Table of Contents")
			recs := testbook.Records(testbook.Index(testbook.GuideTags, []testbook.Entry{
				{Name: "toc", Tags: map[byte][]uint32{1: {offs[0]}, 6: {12}}},
			}, cncx))
			tt.mutate(recs)
			if _, err := Read(recs, 0); !errors.Is(err, tt.want) {
				t.Errorf("Read = %v, want %v", err, tt.want)
			}
		})
	}
}
