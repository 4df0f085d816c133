package container

import (
	"fmt"

	"mobiparse/binstruct"
	"mobiparse/common"
)

// ExthKey names recognized EXTH record.
type ExthKey string

// Recognized EXTH records.
const (
	ExthCreator                  ExthKey = "creator"
	ExthPublisher                ExthKey = "publisher"
	ExthDescription              ExthKey = "description"
	ExthISBN                     ExthKey = "isbn"
	ExthSubject                  ExthKey = "subject"
	ExthDate                     ExthKey = "date"
	ExthContributor              ExthKey = "contributor"
	ExthRights                   ExthKey = "rights"
	ExthSubjectCode              ExthKey = "subjectCode"
	ExthSource                   ExthKey = "source"
	ExthASIN                     ExthKey = "asin"
	ExthBoundary                 ExthKey = "boundary"
	ExthFixedLayout              ExthKey = "fixedLayout"
	ExthNumResources             ExthKey = "numResources"
	ExthOriginalResolution       ExthKey = "originalResolution"
	ExthZeroGutter               ExthKey = "zeroGutter"
	ExthZeroMargin               ExthKey = "zeroMargin"
	ExthCoverURI                 ExthKey = "coverURI"
	ExthRegionMagnification      ExthKey = "regionMagnification"
	ExthCoverOffset              ExthKey = "coverOffset"
	ExthThumbnailOffset          ExthKey = "thumbnailOffset"
	ExthTitle                    ExthKey = "title"
	ExthLanguage                 ExthKey = "language"
	ExthPageProgressionDirection ExthKey = "pageProgressionDirection"
)

type exthRecord struct {
	key     ExthKey
	numeric bool
	many    bool
}

var exthRecords = map[uint32]exthRecord{
	100: {ExthCreator, false, true},
	101: {ExthPublisher, false, false},
	103: {ExthDescription, false, false},
	104: {ExthISBN, false, false},
	105: {ExthSubject, false, true},
	106: {ExthDate, false, false},
	108: {ExthContributor, false, true},
	109: {ExthRights, false, false},
	110: {ExthSubjectCode, false, true},
	112: {ExthSource, false, true},
	113: {ExthASIN, false, false},
	121: {ExthBoundary, true, false},
	122: {ExthFixedLayout, false, false},
	125: {ExthNumResources, true, false},
	126: {ExthOriginalResolution, false, false},
	127: {ExthZeroGutter, false, false},
	128: {ExthZeroMargin, false, false},
	129: {ExthCoverURI, false, false},
	132: {ExthRegionMagnification, false, false},
	201: {ExthCoverOffset, true, false},
	202: {ExthThumbnailOffset, true, false},
	503: {ExthTitle, false, false},
	524: {ExthLanguage, false, true},
	527: {ExthPageProgressionDirection, false, false},
}

// Exth holds recognized EXTH records. Repeatable string records accumulate,
// other records keep the last value seen.
type Exth struct {
	strings map[ExthKey][]string
	numbers map[ExthKey]uint32
}

// String returns the first value of string record.
func (e *Exth) String(key ExthKey) string {
	if e == nil {
		return ""
	}
	if v := e.strings[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// List returns all values of string record.
func (e *Exth) List(key ExthKey) []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.strings[key]...)
}

// Uint returns numeric record.
func (e *Exth) Uint(key ExthKey) (uint32, bool) {
	if e == nil {
		return 0, false
	}
	v, ok := e.numbers[key]
	return v, ok
}

// Len returns number of recognized records stored.
func (e *Exth) Len() int {
	if e == nil {
		return 0
	}
	return len(e.strings) + len(e.numbers)
}

func parseExth(data []byte, encoding uint32) (*Exth, error) {
	r := binstruct.New("EXTH header", data)
	magic, count := r.Magic(0), r.Uint32(8)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidHeader, err)
	}
	if magic != "EXTH" {
		return nil, fmt.Errorf("%w: invalid EXTH header, got magic %q", common.ErrInvalidHeader, magic)
	}

	e := &Exth{strings: make(map[ExthKey][]string), numbers: make(map[ExthKey]uint32)}
	ofs := 12
	for i := 0; i < int(count); i++ {
		typ, length := r.Uint32(ofs), int(r.Uint32(ofs+4))
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("%w: EXTH record %d: %w", common.ErrInvalidHeader, i, err)
		}
		if length < 8 {
			return nil, fmt.Errorf("%w: EXTH record %d has length %d", common.ErrInvalidHeader, i, length)
		}
		if rec, ok := exthRecords[typ]; ok {
			payload := r.Bytes(ofs+8, length-8)
			if err := r.Err(); err != nil {
				return nil, fmt.Errorf("%w: EXTH record %d: %w", common.ErrInvalidHeader, i, err)
			}
			switch {
			case rec.numeric:
				e.numbers[rec.key] = binstruct.Uint(payload)
			case rec.many:
				e.strings[rec.key] = append(e.strings[rec.key], common.DecodeString(encoding, payload))
			default:
				e.strings[rec.key] = []string{common.DecodeString(encoding, payload)}
			}
		}
		ofs += length
	}
	return e, nil
}
