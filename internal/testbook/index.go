package testbook

import (
	"encoding/binary"
	"fmt"

	"mobiparse/varint"
)

// Tag declares index tag with number of values per occurrence.
type Tag struct {
	ID        byte
	NumValues byte
}

// Entry is a single index entry, tags not present in the map are omitted.
type Entry struct {
	Name string
	Tags map[byte][]uint32
}

// CNCX builds string table record and returns offset of every string.
func CNCX(strs ...string) ([]byte, []uint32) {
	var (
		rec  []byte
		offs []uint32
	)
	for _, s := range strs {
		offs = append(offs, uint32(len(rec)))
		rec = append(rec, varint.EncodeForward(uint32(len(s)))...)
		rec = append(rec, s...)
	}
	return rec, offs
}

const indxHeaderLength = 192

func indxHeader(idxt, count, encoding, numCncx uint32) []byte {
	rec := make([]byte, indxHeaderLength)
	be := binary.BigEndian
	copy(rec, "INDX")
	be.PutUint32(rec[4:], indxHeaderLength)
	be.PutUint32(rec[20:], idxt)
	be.PutUint32(rec[24:], count)
	be.PutUint32(rec[28:], encoding)
	be.PutUint32(rec[32:], NoIndex)
	be.PutUint32(rec[52:], numCncx)
	return rec
}

// Index builds INDX header record, single data record and passed CNCX records.
// Every tag gets its own control bit so up to 8 tags are supported.
func Index(tags []Tag, entries []Entry, cncx ...[]byte) [][]byte {
	if len(tags) > 8 {
		panic("too many tags for a single control byte")
	}

	tagx := []byte("TAGX")
	tagx = binary.BigEndian.AppendUint32(tagx, uint32(12+4*(len(tags)+1)))
	tagx = binary.BigEndian.AppendUint32(tagx, 1)
	for i, t := range tags {
		tagx = append(tagx, t.ID, t.NumValues, 1<<i, 0)
	}
	tagx = append(tagx, 0, 0, 0, 1)

	head := indxHeader(0, 1, 65001, uint32(len(cncx)))
	binary.BigEndian.PutUint32(head[36:], uint32(len(entries)))
	head = append(head, tagx...)

	data := indxHeader(0, uint32(len(entries)), 65001, 0)
	var offsets []uint16
	for _, e := range entries {
		offsets = append(offsets, uint16(len(data)))
		data = append(data, byte(len(e.Name)))
		data = append(data, e.Name...)
		var (
			ctrl   byte
			values []byte
		)
		for i, t := range tags {
			vals, ok := e.Tags[t.ID]
			if !ok {
				continue
			}
			if len(vals) != int(t.NumValues) {
				panic(fmt.Sprintf("tag %d of %q needs %d values, got %d", t.ID, e.Name, t.NumValues, len(vals)))
			}
			ctrl |= 1 << i
			for _, v := range vals {
				values = append(values, varint.EncodeForward(v)...)
			}
		}
		data = append(data, ctrl)
		data = append(data, values...)
	}
	data = pad4(data)
	binary.BigEndian.PutUint32(data[20:], uint32(len(data)))
	data = append(data, "IDXT"...)
	for _, o := range offsets {
		data = binary.BigEndian.AppendUint16(data, o)
	}

	return append([][]byte{head, data}, cncx...)
}

// Skeleton and fragment index tags as written by Kindle tooling.
var (
	SkeletonTags = []Tag{{ID: 1, NumValues: 1}, {ID: 6, NumValues: 2}}
	FragmentTags = []Tag{{ID: 2, NumValues: 1}, {ID: 3, NumValues: 1}, {ID: 4, NumValues: 1}, {ID: 6, NumValues: 2}}
	NCXTags      = []Tag{
		{ID: 1, NumValues: 1}, {ID: 2, NumValues: 1}, {ID: 3, NumValues: 1}, {ID: 4, NumValues: 1},
		{ID: 6, NumValues: 2}, {ID: 21, NumValues: 1}, {ID: 22, NumValues: 1}, {ID: 23, NumValues: 1},
	}
	GuideTags = []Tag{{ID: 1, NumValues: 1}, {ID: 6, NumValues: 1}}
)
