package testbook

import (
	"fmt"
)

// Classic describes version 6 book with a single text stream.
type Classic struct {
	Header    Header
	HTML      string
	Resources [][]byte
}

// Records returns all records of the book, starting with record 0.
func (c Classic) Records() [][]byte {
	h := c.Header
	text := TextRecords([]byte(c.HTML), int(h.RecordSize), h.Compression, h.TrailingFlags)
	h.TextLength = uint32(len(c.HTML))
	h.NumTextRecords = uint16(len(text))
	if len(c.Resources) > 0 {
		h.ResourceStart = uint32(len(text) + 1)
	}
	recs := append([][]byte{Record0(h)}, text...)
	return append(recs, c.Resources...)
}

// Build returns complete PDB file.
func (c Classic) Build() []byte {
	return PDB("classic", c.Records())
}

// Fragment is a piece of markup spliced into chapter skeleton.
type Fragment struct {
	InsertAt int // position in chapter markup assembled so far
	Text     string
	Selector string
}

// Chapter is a skeleton with its fragments.
type Chapter struct {
	Skeleton  string
	Fragments []Fragment
}

// NCXEntry is a navigation point, negative indexes are absent.
type NCXEntry struct {
	Label      string
	Level      uint32
	Fid, Off   uint32
	Parent     int
	FirstChild int
	LastChild  int
}

// GuideEntry is a guide reference pointing to the start of a fragment.
type GuideEntry struct {
	Label string
	Type  string
	Fid   uint32
}

// KF8 describes version 8 book.
type KF8 struct {
	Header    Header
	Chapters  []Chapter
	Flows     []string // additional flows after main text, usually styles
	Resources [][]byte
	NCX       []NCXEntry
	Guide     []GuideEntry
}

// Raw returns assembled raw text stream and flow table.
func (k KF8) Raw() ([]byte, [][2]uint32) {
	var raw []byte
	for _, ch := range k.Chapters {
		raw = append(raw, ch.Skeleton...)
		for _, f := range ch.Fragments {
			raw = append(raw, f.Text...)
		}
	}
	flows := [][2]uint32{{0, uint32(len(raw))}}
	for _, f := range k.Flows {
		start := uint32(len(raw))
		raw = append(raw, f...)
		flows = append(flows, [2]uint32{start, uint32(len(raw))})
	}
	return raw, flows
}

// Records returns all records of the book, starting with record 0.
func (k KF8) Records() [][]byte {
	h := k.Header
	h.Version = 8
	raw, flows := k.Raw()
	text := TextRecords(raw, int(h.RecordSize), h.Compression, h.TrailingFlags)
	h.TextLength = uint32(len(raw))
	h.NumTextRecords = uint16(len(text))

	recs := append([][]byte{nil}, text...)

	var (
		skels, frags []Entry
		selectors    []string
		pos          uint32
		fragIndex    uint32
	)
	for _, ch := range k.Chapters {
		for _, f := range ch.Fragments {
			selectors = append(selectors, f.Selector)
		}
	}
	cncx, selOffs := CNCX(selectors...)
	var fragCncx [][]byte
	if len(cncx) > 0 {
		fragCncx = append(fragCncx, cncx)
	}
	for i, ch := range k.Chapters {
		skelOffset := pos
		skels = append(skels, Entry{
			Name: fmt.Sprintf("SKEL%010d", i),
			Tags: map[byte][]uint32{1: {uint32(len(ch.Fragments))}, 6: {skelOffset, uint32(len(ch.Skeleton))}},
		})
		pos += uint32(len(ch.Skeleton))
		var local uint32
		for _, f := range ch.Fragments {
			frags = append(frags, Entry{
				Name: fmt.Sprintf("%010d", skelOffset+uint32(f.InsertAt)),
				Tags: map[byte][]uint32{
					2: {selOffs[fragIndex]},
					3: {uint32(i)},
					4: {fragIndex},
					6: {local, uint32(len(f.Text))},
				},
			})
			local += uint32(len(f.Text))
			pos += uint32(len(f.Text))
			fragIndex++
		}
	}

	h.Skel = uint32(len(recs))
	recs = append(recs, Index(SkeletonTags, skels)...)
	h.Frag = uint32(len(recs))
	recs = append(recs, Index(FragmentTags, frags, fragCncx...)...)

	if len(k.NCX) > 0 {
		labels := make([]string, 0, len(k.NCX))
		for _, n := range k.NCX {
			labels = append(labels, n.Label)
		}
		ncxCncx, labelOffs := CNCX(labels...)
		entries := make([]Entry, 0, len(k.NCX))
		for i, n := range k.NCX {
			tags := map[byte][]uint32{
				1: {0},
				2: {0},
				3: {labelOffs[i]},
				4: {n.Level},
				6: {n.Fid, n.Off},
			}
			if n.Parent >= 0 {
				tags[21] = []uint32{uint32(n.Parent)}
			}
			if n.FirstChild >= 0 {
				tags[22] = []uint32{uint32(n.FirstChild)}
				tags[23] = []uint32{uint32(n.LastChild)}
			}
			entries = append(entries, Entry{Name: fmt.Sprintf("%d", i), Tags: tags})
		}
		h.Indx = uint32(len(recs))
		recs = append(recs, Index(NCXTags, entries, ncxCncx)...)
	}

	if len(k.Guide) > 0 {
		labels := make([]string, 0, len(k.Guide))
		for _, g := range k.Guide {
			labels = append(labels, g.Label)
		}
		guideCncx, labelOffs := CNCX(labels...)
		entries := make([]Entry, 0, len(k.Guide))
		for i, g := range k.Guide {
			entries = append(entries, Entry{Name: g.Type, Tags: map[byte][]uint32{1: {labelOffs[i]}, 6: {g.Fid}}})
		}
		h.Guide = uint32(len(recs))
		recs = append(recs, Index(GuideTags, entries, guideCncx)...)
	}

	h.FDST = uint32(len(recs))
	h.FDSTCount = uint32(len(flows))
	recs = append(recs, FDST(flows))

	h.ResourceStart = uint32(len(recs))
	recs = append(recs, k.Resources...)

	recs[0] = Record0(h)
	return recs
}

// Build returns complete PDB file.
func (k KF8) Build() []byte {
	return PDB("kf8", k.Records())
}

// Hybrid joins classic and KF8 parts in a single file separated by BOUNDARY record.
func Hybrid(c Classic, k KF8) []byte {
	c.Header.Exth = append(c.Header.Exth, ExthUint(121, 0))
	classic := c.Records()
	boundary := uint32(len(classic) + 1)

	c.Header.Exth[len(c.Header.Exth)-1] = ExthUint(121, boundary)
	classic = c.Records()

	recs := append(classic, []byte("BOUNDARY"))
	recs = append(recs, k.Records()...)
	return PDB("hybrid", recs)
}
