// Package mobi splits classic books into chapters at page breaks.
package mobi

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"mobiparse/common"
	"mobiparse/container"
	"mobiparse/objects"
	"mobiparse/position"
	"mobiparse/resources"
)

// Options controls document construction.
type Options struct {
	FileName string
	Sink     resources.Sink
	Log      *zap.Logger
}

// Chapter is a part of the text stream between page breaks.
type Chapter struct {
	ID string
	// Start and End are raw text positions of the chapter including the
	// page break which opens it.
	Start, End int
	// Size is raw length of chapter content.
	Size int
	text []byte
}

// Document is a classic book. It is not safe for concurrent use.
type Document struct {
	file *container.File
	info objects.FileInfo
	sink resources.Sink
	log  *zap.Logger

	chapters []Chapter
	toc      []objects.TocItem

	saved    objects.ResourceSet
	cache    map[int]*objects.ProcessedChapter
	warnings []string
}

var (
	pageBreak = regexp.MustCompile(`(?i)<\s*(?:mbp:)?pagebreak[^>]*>`)
	bodyOpen  = regexp.MustCompile(`(?i)<body[^>]*>`)
	bodyClose = regexp.MustCompile(`(?i)</body>`)
)

// New splits text of opened classic container into chapters.
func New(f *container.File, opts Options) (*Document, error) {
	if _, ok := f.Format().(*container.ClassicFormat); !ok {
		return nil, fmt.Errorf("%w: %s is not a classic book", common.ErrInvalidHeader, f.Format())
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Sink == nil {
		opts.Sink = resources.NewMemorySink()
	}
	d := &Document{
		file:  f,
		info:  objects.FileInfo{FileName: opts.FileName},
		sink:  opts.Sink,
		log:   opts.Log.Named("mobi"),
		saved: objects.NewResourceSet(),
		cache: make(map[int]*objects.ProcessedChapter),
	}

	start := time.Now()
	d.log.Debug("Classic init starting", zap.String("file", opts.FileName))

	var text []byte
	for i := 0; i < f.NumTextRecords(); i++ {
		rec, err := f.LoadText(i)
		if err != nil {
			return nil, err
		}
		text = append(text, rec...)
	}

	reference := d.split(text)
	d.toc = d.buildTOC(reference)

	d.log.Debug("Classic init finished",
		zap.Int("chapters", len(d.chapters)),
		zap.Int("toc", len(d.toc)),
		zap.String("text", humanize.IBytes(uint64(len(text)))),
		zap.Duration("elapsed", time.Since(start)))
	return d, nil
}

// split cuts text at page breaks and returns markup preceding the first
// body, which carries guide references.
func (d *Document) split(text []byte) []byte {
	type cut struct{ start, content int }
	cuts := []cut{{0, 0}}
	for _, m := range pageBreak.FindAllIndex(text, -1) {
		cuts = append(cuts, cut{m[0], m[1]})
	}
	d.chapters = make([]Chapter, 0, len(cuts))
	for i, c := range cuts {
		end := len(text)
		if i+1 < len(cuts) {
			end = cuts[i+1].start
		}
		section := text[c.content:end]
		d.chapters = append(d.chapters, Chapter{
			ID:    strconv.Itoa(i),
			Start: c.start,
			End:   end,
			Size:  len(section),
			text:  section,
		})
	}

	last := &d.chapters[len(d.chapters)-1]
	if loc := bodyClose.FindIndex(last.text); loc != nil {
		last.text = last.text[:loc[0]]
	}
	first := &d.chapters[0]
	var reference []byte
	if loc := bodyOpen.FindIndex(first.text); loc != nil {
		reference = first.text[:loc[0]]
		first.text = first.text[loc[1]:]
	}
	return reference
}

func (d *Document) warn(msg string, err error) {
	d.log.Warn(msg, zap.Error(err))
	d.warnings = append(d.warnings, fmt.Sprintf("%s: %v", msg, err))
}

// chapterAt returns chapter containing raw text position.
func (d *Document) chapterAt(pos int) (*Chapter, bool) {
	for i := range d.chapters {
		if d.chapters[i].End > pos {
			return &d.chapters[i], true
		}
	}
	return nil, false
}

// Format implements book.Book.
func (d *Document) Format() container.Format {
	return d.file.Format()
}

// FileInfo implements book.Book.
func (d *Document) FileInfo() objects.FileInfo {
	return d.info
}

// Metadata implements book.Book.
func (d *Document) Metadata() objects.Metadata {
	return d.file.Metadata()
}

// Chapters returns positions of every chapter.
func (d *Document) Chapters() []Chapter {
	out := make([]Chapter, len(d.chapters))
	for i, ch := range d.chapters {
		ch.text = nil
		out[i] = ch
	}
	return out
}

// Spine implements book.Book.
func (d *Document) Spine() []objects.SpineItem {
	spine := make([]objects.SpineItem, 0, len(d.chapters))
	for _, ch := range d.chapters {
		spine = append(spine, objects.SpineItem{ID: ch.ID, Start: ch.Start, End: ch.End, Size: ch.Size})
	}
	return spine
}

// TOC implements book.Book.
func (d *Document) TOC() []objects.TocItem {
	return cloneTOC(d.toc)
}

func cloneTOC(items []objects.TocItem) []objects.TocItem {
	if items == nil {
		return nil
	}
	out := make([]objects.TocItem, len(items))
	for i, it := range items {
		it.Children = cloneTOC(it.Children)
		out[i] = it
	}
	return out
}

// Guide implements book.Book, classic books have none.
func (d *Document) Guide() []objects.GuideItem {
	return []objects.GuideItem{}
}

// Warnings implements book.Book.
func (d *Document) Warnings() []string {
	return slices.Clone(d.warnings)
}

// CoverResource implements book.Book.
func (d *Document) CoverResource() (*resources.Resource, bool) {
	res, err := d.file.Cover()
	if err != nil {
		return nil, false
	}
	return res, true
}

// Cover implements book.Book, cover is saved to the sink once.
func (d *Document) Cover() (string, error) {
	const key = "cover"
	if ri := d.saved.Find(key); ri != nil {
		return ri.Location, nil
	}
	res, err := d.file.Cover()
	if errors.Is(err, common.ErrNoCover) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return d.save(key, "cover", res.Type, res.Data)
}

func (d *Document) save(key, name, mime string, data []byte) (string, error) {
	location, err := d.sink.Save(name, mime, data)
	if err != nil {
		return "", fmt.Errorf("unable to save %s: %w", key, err)
	}
	d.saved.Add(key, &objects.ResourceInfo{Key: key, MimeType: mime, Size: int64(len(data)), Location: location})
	return location, nil
}

// Resources returns everything saved to the sink so far.
func (d *Document) Resources() objects.ResourceSet {
	return d.saved.SubsetByFunc(func(string, *objects.ResourceInfo) bool { return true })
}

// loadResource saves resource referenced by 1 based record index.
func (d *Document) loadResource(recindex int) (string, error) {
	key := "recindex:" + strconv.Itoa(recindex)
	if ri := d.saved.Find(key); ri != nil {
		return ri.Location, nil
	}
	res, err := d.file.LoadResource(recindex - 1)
	if err != nil {
		return "", err
	}
	if res.Warning != nil {
		d.warn("Resource "+strconv.Itoa(recindex)+" is damaged", res.Warning)
	}
	return d.save(key, strconv.Itoa(recindex), res.Type, res.Data)
}

// LoadChapter implements book.Book, processed chapters are cached.
func (d *Document) LoadChapter(id string) (*objects.ProcessedChapter, error) {
	i, err := strconv.Atoi(id)
	if err != nil || i < 0 || i >= len(d.chapters) {
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownChapter, id)
	}
	if pc, ok := d.cache[i]; ok {
		return &objects.ProcessedChapter{HTML: pc.HTML, CSS: []objects.Stylesheet{}}, nil
	}
	pc := &objects.ProcessedChapter{
		HTML: d.replace(d.file.Decode(d.chapters[i].text)),
		CSS:  []objects.Stylesheet{},
	}
	d.cache[i] = pc
	return &objects.ProcessedChapter{HTML: pc.HTML, CSS: []objects.Stylesheet{}}, nil
}

// ResolveHref implements book.Book.
func (d *Document) ResolveHref(href string) (objects.ResolvedHref, bool) {
	digits, pos, ok := position.ParseFilepos(href)
	if !ok {
		return objects.ResolvedHref{}, false
	}
	ch, ok := d.chapterAt(pos)
	if !ok {
		return objects.ResolvedHref{}, false
	}
	return objects.ResolvedHref{ID: ch.ID, Selector: fmt.Sprintf(`[id="%s"]`, position.MakeFilepos(digits))}, true
}

// Destroy implements book.Book, releasing everything saved to the sink.
func (d *Document) Destroy() {
	for _, key := range d.saved.Keys() {
		ri := d.saved[key]
		if err := d.sink.Release(ri.Location); err != nil {
			d.log.Warn("Unable to release resource", zap.String("key", key), zap.String("location", ri.Location), zap.Error(err))
		}
		d.saved.Delete(key)
	}
	clear(d.cache)
	d.log.Debug("Classic document destroyed")
}
