// Much of the knowledge of the mobi internals comes from KindleUnpack project
// copyrighted under GPL v3. Visit https://github.com/kevinhendricks/KindleUnpack
// for more details.
package container

import (
	"fmt"
	"strings"

	"mobiparse/binstruct"
	"mobiparse/common"
)

// NoIndex marks absent record pointers and EXTH offsets.
const NoIndex = 0xFFFFFFFF

const (
	// important pdb header offsets
	pdbName            = 0
	pdbType            = 60
	pdbCreator         = 64
	numberOfPdbRecords = 76
	firstPdbRecord     = 78
	pdbHeaderLength    = 78
)

// PDBHeader is Palm database header.
type PDBHeader struct {
	Name       string
	Type       string
	Creator    string
	NumRecords int
}

// Record is a byte range of a single PDB record with its first 4 bytes.
type Record struct {
	Start, End int
	Magic      string
}

// Len returns record size.
func (r Record) Len() int {
	return r.End - r.Start
}

func parsePDB(data []byte) (PDBHeader, []Record, error) {
	r := binstruct.New("PDB header", data)
	h := PDBHeader{
		Name:       strings.TrimRight(strings.SplitN(r.String(pdbName, 32), "\x00", 2)[0], " "),
		Type:       r.Magic(pdbType),
		Creator:    r.Magic(pdbCreator),
		NumRecords: int(r.Uint16(numberOfPdbRecords)),
	}
	if err := r.Err(); err != nil {
		return h, nil, fmt.Errorf("%w: %w", common.ErrInvalidHeader, err)
	}

	switch h.Type + h.Creator {
	case "BOOKMOBI":
	case "TEXtREAd":
		return h, nil, fmt.Errorf("%w: legacy TEXtREAd database", common.ErrNotSupported)
	default:
		return h, nil, fmt.Errorf("%w: unexpected PDB type %q and creator %q", common.ErrInvalidHeader, h.Type, h.Creator)
	}
	if h.NumRecords == 0 {
		return h, nil, fmt.Errorf("%w: PDB has no records", common.ErrInvalidHeader)
	}

	records := make([]Record, h.NumRecords)
	for i := range records {
		records[i].Start = int(r.Uint32(firstPdbRecord + i*8))
	}
	if err := r.Err(); err != nil {
		return h, nil, fmt.Errorf("%w: record directory: %w", common.ErrInvalidHeader, err)
	}
	for i := range records {
		if i == len(records)-1 {
			records[i].End = len(data)
		} else {
			records[i].End = records[i+1].Start
		}
		if records[i].Start < pdbHeaderLength || records[i].Start > records[i].End || records[i].End > len(data) {
			return h, nil, fmt.Errorf("%w: record %d [%d, %d) is out of order or out of range", common.ErrInvalidHeader, i, records[i].Start, records[i].End)
		}
		records[i].Magic = binstruct.Magic(data[records[i].Start:records[i].End])
	}
	return h, records, nil
}
