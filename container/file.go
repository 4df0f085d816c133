package container

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"mobiparse/common"
	"mobiparse/compress"
	"mobiparse/index"
	"mobiparse/objects"
	"mobiparse/resources"
)

// headerSet is everything parsed out of the first book record.
type headerSet struct {
	palmdoc PalmDOCHeader
	mobi    MOBIHeader
	kf8     *KF8Header
	exth    *Exth
}

func parseFirstRecord(rec []byte) (*headerSet, error) {
	var (
		hs  = &headerSet{}
		err error
	)
	if hs.palmdoc, err = parsePalmDOC(rec); err != nil {
		return nil, err
	}
	if hs.mobi, err = parseMOBI(rec); err != nil {
		return nil, err
	}
	if hs.mobi.Version >= 8 {
		kf8, err := parseKF8(rec)
		if err != nil {
			return nil, err
		}
		hs.kf8 = &kf8
	}
	if hs.mobi.HasExth() {
		ofs := mobiHeaderBase + int(hs.mobi.Length)
		if ofs > len(rec) {
			return nil, fmt.Errorf("%w: EXTH offset %d is out of range", common.ErrInvalidHeader, ofs)
		}
		if hs.exth, err = parseExth(rec[ofs:], hs.mobi.Encoding); err != nil {
			return nil, err
		}
	}
	return hs, nil
}

// File is opened MOBI container. All record indexes are relative to the
// first record of the active payload, which for hybrid files is the KF8 one.
type File struct {
	data    []byte
	records []Record
	start   int

	PDB     PDBHeader
	PalmDOC PalmDOCHeader
	Exth    *Exth

	format        Format
	resourceStart int
	stripper      TrailingStripper
	decompressor  compress.Decompressor

	log *zap.Logger
}

// Open parses container headers and prepares text decompression. Data is
// referenced, not copied.
func Open(data []byte, log *zap.Logger) (*File, error) {
	if log == nil {
		log = zap.NewNop()
	}
	f := &File{data: data, log: log.Named("container")}

	f.log.Debug("MOBI parse starting", zap.String("size", humanize.IBytes(uint64(len(data)))))
	defer func(start time.Time) {
		f.log.Debug("MOBI parse finished",
			zap.Stringer("format", f.format),
			zap.String("compression", compress.Name(f.PalmDOC.Compression)),
			zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	var err error
	if f.PDB, f.records, err = parsePDB(data); err != nil {
		return nil, err
	}

	rec0, err := f.LoadRecord(0)
	if err != nil {
		return nil, err
	}
	hs, err := parseFirstRecord(rec0)
	if err != nil {
		return nil, err
	}

	hybrid := false
	if hs.kf8 == nil {
		if boundary, ok := hs.exth.Uint(ExthBoundary); ok && boundary != NoIndex {
			if khs, err := f.parseBoundary(int(boundary)); err != nil {
				// hybrid file with damaged KF8 part still has usable classic part
				f.log.Debug("Unable to use KF8 part of hybrid file, falling back to classic", zap.Uint32("boundary", boundary), zap.Error(err))
			} else {
				hs, hybrid, f.start = khs, true, int(boundary)
			}
		}
	}

	f.PalmDOC, f.Exth = hs.palmdoc, hs.exth
	f.resourceStart = int(hs.mobi.ResourceStart)
	if hs.kf8 != nil {
		f.resourceStart = int(hs.kf8.ResourceStart)
		f.format = &KF8Format{Header: hs.mobi, KF8: *hs.kf8, Hybrid: hybrid}
	} else {
		f.format = &ClassicFormat{Header: hs.mobi}
	}

	if f.PalmDOC.Encryption != 0 {
		return nil, fmt.Errorf("%w: encrypted book (method %d)", common.ErrNotSupported, f.PalmDOC.Encryption)
	}
	if err := compress.CheckCode(f.PalmDOC.Compression); err != nil {
		return nil, err
	}
	if f.decompressor, err = f.newDecompressor(); err != nil {
		return nil, err
	}
	f.stripper = NewTrailingStripper(hs.mobi.TrailingFlags)
	return f, nil
}

func (f *File) parseBoundary(boundary int) (*headerSet, error) {
	if boundary <= 0 || boundary >= len(f.records) {
		return nil, fmt.Errorf("%w: boundary record %d is out of range", common.ErrInvalidHeader, boundary)
	}
	r := f.records[boundary]
	hs, err := parseFirstRecord(f.data[r.Start:r.End])
	if err != nil {
		return nil, err
	}
	if hs.kf8 == nil {
		return nil, fmt.Errorf("%w: boundary record has version %d", common.ErrInvalidHeader, hs.mobi.Version)
	}
	return hs, nil
}

func (f *File) newDecompressor() (compress.Decompressor, error) {
	switch f.PalmDOC.Compression {
	case compress.PalmDOC:
		return compress.Func(compress.DecompressPalmDOC), nil
	case compress.HuffCDIC:
		mobi := f.MOBI()
		huff, err := f.LoadRecord(int(mobi.HuffStart))
		if err != nil {
			return nil, fmt.Errorf("%w: HUFF record: %w", common.ErrInvalidCompressionTable, err)
		}
		var cdics [][]byte
		for i := 1; i < int(mobi.HuffCount); i++ {
			cdic, err := f.LoadRecord(int(mobi.HuffStart) + i)
			if err != nil {
				return nil, fmt.Errorf("%w: CDIC record %d: %w", common.ErrInvalidCompressionTable, i, err)
			}
			cdics = append(cdics, cdic)
		}
		return compress.NewHuff(huff, cdics)
	default:
		return compress.Passthrough, nil
	}
}

// Format returns active payload kind.
func (f *File) Format() Format {
	return f.format
}

// MOBI returns active MOBI header.
func (f *File) MOBI() *MOBIHeader {
	return f.format.MOBI()
}

// Records returns byte ranges of all PDB records, including those before
// the active payload.
func (f *File) Records() []Record {
	return append([]Record(nil), f.records...)
}

// Start returns index of the first record of the active payload.
func (f *File) Start() int {
	return f.start
}

// NumRecords returns number of records available to LoadRecord.
func (f *File) NumRecords() int {
	return len(f.records) - f.start
}

// LoadRecord returns record i of the active payload, data is not copied.
func (f *File) LoadRecord(i int) ([]byte, error) {
	if i < 0 || f.start+i >= len(f.records) {
		return nil, fmt.Errorf("%w: record %d is out of range [0, %d)", common.ErrCorruptRecord, i, f.NumRecords())
	}
	r := f.records[f.start+i]
	return f.data[r.Start:r.End], nil
}

// Magic returns the first 4 bytes of record i.
func (f *File) Magic(i int) string {
	if i < 0 || f.start+i >= len(f.records) {
		return ""
	}
	return f.records[f.start+i].Magic
}

// NumTextRecords returns number of text records.
func (f *File) NumTextRecords() int {
	return f.PalmDOC.NumTextRecords
}

// TextLength returns declared size of uncompressed text.
func (f *File) TextLength() int {
	return int(f.PalmDOC.TextLength)
}

// LoadText returns decompressed text record i, counting from 0.
func (f *File) LoadText(i int) ([]byte, error) {
	if i < 0 || i >= f.NumTextRecords() {
		return nil, fmt.Errorf("%w: text record %d is out of range [0, %d)", common.ErrCorruptRecord, i, f.NumTextRecords())
	}
	rec, err := f.LoadRecord(i + 1)
	if err != nil {
		return nil, err
	}
	text, err := f.decompressor.Decompress(f.stripper.Strip(rec))
	if err != nil {
		return nil, fmt.Errorf("text record %d: %w", i, err)
	}
	return text, nil
}

// Decode converts text in book encoding to string.
func (f *File) Decode(data []byte) string {
	return common.DecodeString(f.MOBI().Encoding, data)
}

// LoadResource returns resource i, counting from the first resource record.
func (f *File) LoadResource(i int) (*resources.Resource, error) {
	if i < 0 {
		return nil, fmt.Errorf("%w: resource %d is out of range", common.ErrCorruptRecord, i)
	}
	rec, err := f.LoadRecord(f.resourceStart + i)
	if err != nil {
		return nil, fmt.Errorf("resource %d: %w", i, err)
	}
	return resources.Decode(rec, f.log), nil
}

// NCX returns navigation points, nil when book has no NCX.
func (f *File) NCX() ([]index.NCXNode, error) {
	indx := f.MOBI().Indx
	if indx == NoIndex {
		return nil, nil
	}
	return index.ReadNCX(f, int(indx))
}

// Metadata assembles book description preferring EXTH values.
func (f *File) Metadata() objects.Metadata {
	mobi, exth := f.MOBI(), f.Exth

	title := exth.String(ExthTitle)
	if title == "" {
		title = mobi.Title
	}
	language := exth.String(ExthLanguage)
	if language == "" {
		language = mobi.Language
	}
	return objects.Metadata{
		Identifier:  fmt.Sprintf("%d", mobi.UID),
		Title:       title,
		Author:      unescapeAll(exth.List(ExthCreator)),
		Publisher:   exth.String(ExthPublisher),
		Language:    language,
		Published:   exth.String(ExthDate),
		Description: exth.String(ExthDescription),
		Subject:     unescapeAll(exth.List(ExthSubject)),
		Rights:      exth.String(ExthRights),
		Contributor: nonNil(exth.List(ExthContributor)),
	}
}

func unescapeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, html.UnescapeString(s))
	}
	return out
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// CoverIndex returns resource index of the cover image, falling back to
// thumbnail when cover is not declared.
func (f *File) CoverIndex() (int, bool) {
	for _, key := range []ExthKey{ExthCoverOffset, ExthThumbnailOffset} {
		if ofs, ok := f.Exth.Uint(key); ok && ofs != NoIndex {
			return int(ofs), true
		}
	}
	return 0, false
}

// Cover returns cover image resource.
func (f *File) Cover() (*resources.Resource, error) {
	i, ok := f.CoverIndex()
	if !ok {
		return nil, common.ErrNoCover
	}
	return f.LoadResource(i)
}

// Thumbnail returns thumbnail image resource, ErrNoCover when book does not
// declare one.
func (f *File) Thumbnail() (*resources.Resource, error) {
	ofs, ok := f.Exth.Uint(ExthThumbnailOffset)
	if !ok || ofs == NoIndex {
		return nil, common.ErrNoCover
	}
	return f.LoadResource(int(ofs))
}
