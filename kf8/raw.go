package kf8

import (
	"fmt"
	"slices"

	"mobiparse/common"
)

type chunk struct {
	start int
	data  []byte
}

func (c chunk) end() int {
	return c.start + len(c.data)
}

// rawWindow keeps decompressed text records grown from both ends of the text
// stream. Requests near the start extend the head, requests near the end
// extend the tail, the two never hold the same record.
type rawWindow struct {
	load     func(i int) ([]byte, error)
	numTexts int
	total    int

	head []chunk
	tail []chunk // ordered by position, tail[0] is the lowest
}

func newRawWindow(load func(int) ([]byte, error), numTexts, total int) *rawWindow {
	return &rawWindow{load: load, numTexts: numTexts, total: total}
}

func (w *rawWindow) headEnd() int {
	if len(w.head) == 0 {
		return 0
	}
	return w.head[len(w.head)-1].end()
}

func (w *rawWindow) tailStart() int {
	if len(w.tail) == 0 {
		return w.total
	}
	return w.tail[0].start
}

func (w *rawWindow) complete() bool {
	return len(w.head)+len(w.tail) >= w.numTexts
}

func (w *rawWindow) covers(start, end int) bool {
	return w.complete() || end <= w.headEnd() || start >= w.tailStart()
}

func (w *rawWindow) growHead() error {
	i := len(w.head)
	data, err := w.load(i)
	if err != nil {
		return err
	}
	w.head = append(w.head, chunk{start: w.headEnd(), data: data})
	return nil
}

func (w *rawWindow) growTail() error {
	i := w.numTexts - 1 - len(w.tail)
	data, err := w.load(i)
	if err != nil {
		return err
	}
	w.tail = slices.Insert(w.tail, 0, chunk{start: w.tailStart() - len(data), data: data})
	return nil
}

// slice returns copy of raw text bytes [start, end).
func (w *rawWindow) slice(start, end int) ([]byte, error) {
	if start < 0 || start > end || end > w.total {
		return nil, fmt.Errorf("%w: raw range [%d, %d) is out of text [0, %d)", common.ErrCorruptRecord, start, end, w.total)
	}
	for !w.covers(start, end) {
		var err error
		if end-w.headEnd() <= w.tailStart()-start {
			err = w.growHead()
		} else {
			err = w.growTail()
		}
		if err != nil {
			return nil, err
		}
	}

	out := make([]byte, 0, end-start)
	gather := func(chunks []chunk) {
		for _, c := range chunks {
			if c.end() <= start || c.start >= end {
				continue
			}
			lo, hi := max(start, c.start), min(end, c.end())
			out = append(out, c.data[lo-c.start:hi-c.start]...)
		}
	}
	gather(w.head)
	// once both ends met, tail positions come from the declared total and
	// must agree with what head measured
	if len(w.tail) > 0 && w.tail[0].start < w.headEnd() {
		return nil, fmt.Errorf("%w: text records do not add up to declared length %d", common.ErrCorruptRecord, w.total)
	}
	gather(w.tail)
	if len(out) != end-start {
		return nil, fmt.Errorf("%w: raw range [%d, %d) is not available, got %d bytes", common.ErrCorruptRecord, start, end, len(out))
	}
	return out, nil
}

// loaded reports how many text records were decompressed.
func (w *rawWindow) loaded() int {
	return len(w.head) + len(w.tail)
}
