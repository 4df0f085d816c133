// Package kf8 rebuilds chapters of version 8 books out of skeleton and
// fragment tables.
package kf8

import (
	"fmt"
	"strconv"

	"mobiparse/binstruct"
	"mobiparse/common"
	"mobiparse/container"
	"mobiparse/index"
)

// Flow is a byte range of raw text, flow 0 is the book markup.
type Flow struct {
	Start, End int
}

func readFDST(f *container.File, hdr *container.KF8Header) ([]Flow, error) {
	if hdr.FDST == container.NoIndex {
		// single flow books may omit the table
		return []Flow{{0, f.TextLength()}}, nil
	}
	rec, err := f.LoadRecord(int(hdr.FDST))
	if err != nil {
		return nil, fmt.Errorf("%w: FDST record: %w", common.ErrInvalidHeader, err)
	}
	r := binstruct.New("FDST record", rec)
	magic, count := r.Magic(0), int(r.Uint32(8))
	if magic != "FDST" {
		return nil, fmt.Errorf("%w: missing FDST record, got magic %q", common.ErrInvalidHeader, magic)
	}
	if 12+count*8 > len(rec) {
		return nil, fmt.Errorf("%w: FDST declares %d flows in %d bytes", common.ErrCorruptRecord, count, len(rec))
	}
	flows := make([]Flow, 0, count)
	for i := 0; i < count; i++ {
		fl := Flow{int(r.Uint32(12 + i*8)), int(r.Uint32(12 + i*8 + 4))}
		if fl.Start > fl.End {
			return nil, fmt.Errorf("%w: flow %d [%d, %d) is inverted", common.ErrInvalidHeader, i, fl.Start, fl.End)
		}
		flows = append(flows, fl)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidHeader, err)
	}
	if len(flows) == 0 {
		return nil, fmt.Errorf("%w: empty FDST table", common.ErrInvalidHeader)
	}
	return flows, nil
}

// Skeleton is markup shell of a single chapter.
type Skeleton struct {
	Index   int
	Name    string
	NumFrag int
	Offset  int
	Length  int
}

func readSkeletons(f *container.File, at uint32) ([]Skeleton, error) {
	if at == container.NoIndex {
		return nil, fmt.Errorf("%w: book has no skeleton index", common.ErrInvalidHeader)
	}
	t, err := index.Read(f, int(at))
	if err != nil {
		return nil, fmt.Errorf("skeleton index: %w", err)
	}
	skels := make([]Skeleton, 0, len(t.Entries))
	for i, e := range t.Entries {
		numFrag, ok := e.First(1)
		pos := e.Tags[6]
		if !ok || len(pos) < 2 {
			return nil, fmt.Errorf("%w: skeleton %d (%s) lacks fragment count or position", common.ErrMalformedIndex, i, e.Name)
		}
		skels = append(skels, Skeleton{Index: i, Name: e.Name, NumFrag: int(numFrag), Offset: int(pos[0]), Length: int(pos[1])})
	}
	return skels, nil
}

// Fragment is a piece of markup inserted into skeleton.
type Fragment struct {
	// InsertOffset is absolute position in the raw text stream at which the
	// fragment goes, chapter markup starts at skeleton Offset.
	InsertOffset int
	Selector     string
	FileNumber   int
	// Index is the fragment id referenced by positions.
	Index  int
	Offset int
	Length int
}

func readFragments(f *container.File, at uint32) ([]Fragment, error) {
	if at == container.NoIndex {
		return nil, nil
	}
	t, err := index.Read(f, int(at))
	if err != nil {
		return nil, fmt.Errorf("fragment index: %w", err)
	}
	frags := make([]Fragment, 0, len(t.Entries))
	for i, e := range t.Entries {
		insert, err := strconv.Atoi(e.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: fragment %d has bad name %q", common.ErrMalformedIndex, i, e.Name)
		}
		fid, ok := e.First(4)
		pos := e.Tags[6]
		if !ok || len(pos) < 2 {
			return nil, fmt.Errorf("%w: fragment %d lacks id or position", common.ErrMalformedIndex, i)
		}
		fr := Fragment{InsertOffset: insert, Index: int(fid), Offset: int(pos[0]), Length: int(pos[1])}
		if key, ok := e.First(2); ok {
			fr.Selector = t.Label(key)
		}
		if file, ok := e.First(3); ok {
			fr.FileNumber = int(file)
		}
		frags = append(frags, fr)
	}
	return frags, nil
}

// Chapter is a skeleton with fragments belonging to it.
type Chapter struct {
	ID    string
	Skel  Skeleton
	Frags []Fragment
	// FragEnd is index past the last chapter fragment in book fragment table.
	FragEnd int
	// Length is size of skeleton and all fragments.
	Length int
	// TotalLength is Length of this and all preceding chapters.
	TotalLength int
}

// buildChapters assigns consecutive runs of fragments to skeletons.
func buildChapters(skels []Skeleton, frags []Fragment) ([]Chapter, error) {
	chapters := make([]Chapter, 0, len(skels))
	var fragStart, total int
	for i, skel := range skels {
		fragEnd := fragStart + skel.NumFrag
		if fragEnd > len(frags) {
			return nil, fmt.Errorf("%w: skeleton %d needs fragments [%d, %d), only %d available", common.ErrMalformedIndex, i, fragStart, fragEnd, len(frags))
		}
		ch := Chapter{
			ID:      strconv.Itoa(i),
			Skel:    skel,
			Frags:   frags[fragStart:fragEnd:fragEnd],
			FragEnd: fragEnd,
			Length:  skel.Length,
		}
		for _, fr := range ch.Frags {
			ch.Length += fr.Length
		}
		total += ch.Length
		ch.TotalLength = total
		chapters = append(chapters, ch)
		fragStart = fragEnd
	}
	return chapters, nil
}
