package container

import (
	"fmt"

	"mobiparse/binstruct"
	"mobiparse/common"
)

const (
	// important rec0 offsets
	compressionType = 0
	textLength      = 4
	textRecordCount = 8
	textRecordSize  = 10
	cryptoType      = 12
	mobiHeaderBase  = 16
	mobiHeaderLen   = 20
	mobiType        = 24
	textEncoding    = 28
	uniqueID        = 32
	mobiVersion     = 36
	titleOffset     = 84
	titleLength     = 88
	localeRegion    = 94
	localeLanguage  = 95
	firstRescRecord = 108
	huffOffset      = 112
	huffCount       = 116
	exthFlags       = 128
	kf8FdstIndex    = 192
	kf8FdstCount    = 196
	extraDataFlags  = 240
	primaryIndex    = 244
	kf8FragIndex    = 248
	kf8SkelIndex    = 252
	kf8GuideIndex   = 260

	exthPresent = 0x40
)

// PalmDOCHeader is the first 16 bytes of record 0.
type PalmDOCHeader struct {
	Compression    int
	TextLength     uint32
	NumTextRecords int
	RecordSize     int
	Encryption     int
}

// MOBIHeader is fixed part of MOBI header.
type MOBIHeader struct {
	Magic          string
	Length         uint32
	Type           uint32
	Encoding       uint32
	UID            uint32
	Version        uint32
	Title          string
	Language       string
	LocaleLanguage uint32
	LocaleRegion   uint32
	ResourceStart  uint32
	HuffStart      uint32
	HuffCount      uint32
	ExthFlags      uint32
	TrailingFlags  uint32
	Indx           uint32
}

// HasExth reports if EXTH block follows the header.
func (h *MOBIHeader) HasExth() bool {
	return h.ExthFlags&exthPresent != 0
}

// KF8Header is KF8 part of the MOBI header, present for version 8 and later.
type KF8Header struct {
	ResourceStart uint32
	FDST          uint32
	FDSTCount     uint32
	Frag          uint32
	Skel          uint32
	Guide         uint32
}

func parsePalmDOC(rec []byte) (PalmDOCHeader, error) {
	r := binstruct.New("PalmDOC header", rec)
	h := PalmDOCHeader{
		Compression:    int(r.Uint16(compressionType)),
		TextLength:     r.Uint32(textLength),
		NumTextRecords: int(r.Uint16(textRecordCount)),
		RecordSize:     int(r.Uint16(textRecordSize)),
		Encryption:     int(r.Uint16(cryptoType)),
	}
	if err := r.Err(); err != nil {
		return h, fmt.Errorf("%w: %w", common.ErrInvalidHeader, err)
	}
	return h, nil
}

func parseMOBI(rec []byte) (MOBIHeader, error) {
	r := binstruct.New("MOBI header", rec)
	h := MOBIHeader{
		Magic:          r.Magic(mobiHeaderBase),
		Length:         r.Uint32(mobiHeaderLen),
		Type:           r.Uint32(mobiType),
		Encoding:       r.Uint32(textEncoding),
		UID:            r.Uint32(uniqueID),
		Version:        r.Uint32(mobiVersion),
		LocaleRegion:   r.Uint8(localeRegion),
		LocaleLanguage: r.Uint8(localeLanguage),
		ResourceStart:  r.Uint32(firstRescRecord),
		HuffStart:      r.Uint32(huffOffset),
		HuffCount:      r.Uint32(huffCount),
		ExthFlags:      r.Uint32(exthFlags),
		TrailingFlags:  r.Uint32(extraDataFlags),
		Indx:           r.Uint32(primaryIndex),
	}
	if err := r.Err(); err != nil {
		return h, fmt.Errorf("%w: %w", common.ErrInvalidHeader, err)
	}
	if h.Magic != "MOBI" {
		return h, fmt.Errorf("%w: missing MOBI header, got magic %q", common.ErrInvalidHeader, h.Magic)
	}

	// title may be missing in damaged books, this is not fatal
	ofs, size := int(r.Uint32(titleOffset)), int(r.Uint32(titleLength))
	if ofs >= 0 && size >= 0 && ofs+size <= len(rec) {
		h.Title = common.DecodeString(h.Encoding, rec[ofs:ofs+size])
	}
	h.Language = LocaleLanguage(h.LocaleLanguage, h.LocaleRegion)
	return h, nil
}

func parseKF8(rec []byte) (KF8Header, error) {
	r := binstruct.New("KF8 header", rec)
	h := KF8Header{
		ResourceStart: r.Uint32(firstRescRecord),
		FDST:          r.Uint32(kf8FdstIndex),
		FDSTCount:     r.Uint32(kf8FdstCount),
		Frag:          r.Uint32(kf8FragIndex),
		Skel:          r.Uint32(kf8SkelIndex),
		Guide:         r.Uint32(kf8GuideIndex),
	}
	if err := r.Err(); err != nil {
		return h, fmt.Errorf("%w: %w", common.ErrInvalidHeader, err)
	}
	return h, nil
}

// Format is book payload kind decided when file is opened: either
// *ClassicFormat or *KF8Format.
type Format interface {
	fmt.Stringer
	// MOBI returns header active for the payload.
	MOBI() *MOBIHeader
	isFormat()
}

// ClassicFormat is version 6 book with a single text stream.
type ClassicFormat struct {
	Header MOBIHeader
}

func (f *ClassicFormat) MOBI() *MOBIHeader { return &f.Header }
func (f *ClassicFormat) String() string    { return "mobi" }
func (f *ClassicFormat) isFormat()         {}

// KF8Format is version 8 book, standalone or KF8 half of a hybrid file.
type KF8Format struct {
	Header MOBIHeader
	KF8    KF8Header
	// Hybrid is set when KF8 payload follows classic one in the same file.
	Hybrid bool
}

func (f *KF8Format) MOBI() *MOBIHeader { return &f.Header }
func (f *KF8Format) String() string {
	if f.Hybrid {
		return "kf8 (hybrid)"
	}
	return "kf8"
}
func (f *KF8Format) isFormat() {}
