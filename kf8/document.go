package kf8

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"mobiparse/common"
	"mobiparse/container"
	"mobiparse/index"
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

// Document is a KF8 book with lazily reassembled chapters. It is not safe
// for concurrent use.
type Document struct {
	file *container.File
	hdr  container.KF8Header
	info objects.FileInfo
	sink resources.Sink
	log  *zap.Logger

	flows     []Flow
	fragments []Fragment
	chapters  []Chapter
	toc       []objects.TocItem
	raw       *rawWindow

	// fragment id -> chapter index
	fragChapter map[int]int
	// fragment id -> offsets referenced by TOC
	fragmentOffsets map[int][]int
	// fragment id -> offset -> selector
	selectors map[int]map[int]string

	saved    objects.ResourceSet
	pending  map[string]bool
	cache    map[int]*objects.ProcessedChapter
	warnings []string
}

// New builds document for opened KF8 container.
func New(f *container.File, opts Options) (*Document, error) {
	format, ok := f.Format().(*container.KF8Format)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a KF8 book", common.ErrInvalidHeader, f.Format())
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Sink == nil {
		opts.Sink = resources.NewMemorySink()
	}

	d := &Document{
		file:            f,
		hdr:             format.KF8,
		info:            objects.FileInfo{FileName: opts.FileName},
		sink:            opts.Sink,
		log:             opts.Log.Named("kf8"),
		fragChapter:     make(map[int]int),
		fragmentOffsets: make(map[int][]int),
		selectors:       make(map[int]map[int]string),
		saved:           objects.NewResourceSet(),
		pending:         make(map[string]bool),
		cache:           make(map[int]*objects.ProcessedChapter),
	}

	start := time.Now()
	d.log.Debug("KF8 init starting", zap.String("file", opts.FileName))

	var err error
	if d.flows, err = readFDST(f, &d.hdr); err != nil {
		return nil, err
	}
	skels, err := readSkeletons(f, d.hdr.Skel)
	if err != nil {
		return nil, err
	}
	if d.fragments, err = readFragments(f, d.hdr.Frag); err != nil {
		return nil, err
	}
	if d.chapters, err = buildChapters(skels, d.fragments); err != nil {
		return nil, err
	}
	for i, ch := range d.chapters {
		for _, fr := range ch.Frags {
			if _, ok := d.fragChapter[fr.Index]; !ok {
				d.fragChapter[fr.Index] = i
			}
		}
	}

	total := d.flows[len(d.flows)-1].End
	d.raw = newRawWindow(f.LoadText, f.NumTextRecords(), total)

	nodes, err := f.NCX()
	if err != nil {
		// navigation is optional, book is still readable
		d.warn("Unable to read NCX", err)
	}
	d.toc = d.buildTOC(nodes)

	d.log.Debug("KF8 init finished",
		zap.Int("chapters", len(d.chapters)),
		zap.Int("fragments", len(d.fragments)),
		zap.Int("flows", len(d.flows)),
		zap.String("text", humanize.IBytes(uint64(total))),
		zap.Duration("elapsed", time.Since(start)))
	return d, nil
}

func (d *Document) warn(msg string, err error) {
	d.log.Warn(msg, zap.Error(err))
	d.warnings = append(d.warnings, fmt.Sprintf("%s: %v", msg, err))
}

func (d *Document) buildTOC(nodes []index.NCXNode) []objects.TocItem {
	var walk func(nodes []index.NCXNode) []objects.TocItem
	walk = func(nodes []index.NCXNode) []objects.TocItem {
		items := make([]objects.TocItem, 0, len(nodes))
		for _, n := range nodes {
			it := objects.TocItem{Label: n.Label}
			if len(n.Pos) >= 2 {
				fid, off := n.Pos[0], n.Pos[1]
				it.Href = position.MakePosURI(fid, off)
				if !slices.Contains(d.fragmentOffsets[int(fid)], int(off)) {
					d.fragmentOffsets[int(fid)] = append(d.fragmentOffsets[int(fid)], int(off))
				}
			}
			if len(n.Children) > 0 {
				it.Children = walk(n.Children)
			}
			items = append(items, it)
		}
		return items
	}
	return walk(nodes)
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

// Chapters returns skeleton and fragment layout of every chapter.
func (d *Document) Chapters() []Chapter {
	out := make([]Chapter, len(d.chapters))
	for i, ch := range d.chapters {
		ch.Frags = slices.Clone(ch.Frags)
		out[i] = ch
	}
	return out
}

// Spine implements book.Book.
func (d *Document) Spine() []objects.SpineItem {
	spine := make([]objects.SpineItem, 0, len(d.chapters))
	for _, ch := range d.chapters {
		spine = append(spine, objects.SpineItem{
			ID:    ch.ID,
			Start: ch.Skel.Offset,
			End:   ch.Skel.Offset + ch.Length,
			Size:  ch.Length,
		})
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

// Guide implements book.Book.
func (d *Document) Guide() []objects.GuideItem {
	guide := []objects.GuideItem{}
	if d.hdr.Guide == container.NoIndex {
		return guide
	}
	t, err := index.Read(d.file, int(d.hdr.Guide))
	if err != nil {
		d.warn("Unable to read guide", err)
		return guide
	}
	for _, e := range t.Entries {
		it := objects.GuideItem{Type: strings.Fields(e.Name)}
		if key, ok := e.First(1); ok {
			it.Label = t.Label(key)
		}
		fid, ok := e.First(6)
		if !ok {
			fid, ok = e.First(3)
		}
		if ok {
			it.Href = position.MakePosURI(fid, 0)
		}
		guide = append(guide, it)
	}
	return guide
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

func (d *Document) chapterIndex(id string) (int, error) {
	i, err := strconv.Atoi(id)
	if err != nil || i < 0 || i >= len(d.chapters) {
		return 0, fmt.Errorf("%w: %q", common.ErrUnknownChapter, id)
	}
	return i, nil
}

// LoadChapter implements book.Book, processed chapters are cached.
func (d *Document) LoadChapter(id string) (*objects.ProcessedChapter, error) {
	i, err := d.chapterIndex(id)
	if err != nil {
		return nil, err
	}
	if pc, ok := d.cache[i]; ok {
		return clonePC(pc), nil
	}
	text, err := d.loadText(&d.chapters[i])
	if err != nil {
		return nil, fmt.Errorf("chapter %s: %w", id, err)
	}
	pc := d.process(text)
	d.cache[i] = pc
	return clonePC(pc), nil
}

func clonePC(pc *objects.ProcessedChapter) *objects.ProcessedChapter {
	return &objects.ProcessedChapter{HTML: pc.HTML, CSS: slices.Clone(pc.CSS)}
}

// loadText splices chapter fragments into its skeleton.
func (d *Document) loadText(ch *Chapter) (string, error) {
	raw, err := d.raw.slice(ch.Skel.Offset, ch.Skel.Offset+ch.Length)
	if err != nil {
		return "", err
	}
	skeleton := slices.Clone(raw[:ch.Skel.Length])
	for _, fr := range ch.Frags {
		insert := fr.InsertOffset - ch.Skel.Offset
		ofs := ch.Skel.Length + fr.Offset
		if ofs < 0 || ofs+fr.Length > len(raw) {
			return "", fmt.Errorf("%w: fragment %d [%d, %d) is outside of chapter", common.ErrCorruptRecord, fr.Index, ofs, ofs+fr.Length)
		}
		if insert < 0 || insert > len(skeleton) {
			return "", fmt.Errorf("%w: fragment %d insert offset %d is outside of skeleton", common.ErrCorruptRecord, fr.Index, insert)
		}
		fragment := raw[ofs : ofs+fr.Length]
		skeleton = slices.Insert(skeleton, insert, fragment...)
		for _, off := range d.fragmentOffsets[fr.Index] {
			d.cacheSelector(fr.Index, off, fragment)
		}
	}
	return d.file.Decode(skeleton), nil
}

func (d *Document) cacheSelector(fid, off int, fragment []byte) string {
	sel := position.FragmentSelector(d.file.Decode(fragment[min(off, len(fragment)):]))
	if sel == "" {
		return ""
	}
	if d.selectors[fid] == nil {
		d.selectors[fid] = make(map[int]string)
	}
	d.selectors[fid][off] = sel
	return sel
}

var (
	headElement = regexp.MustCompile(`(?is)<head[^>]*>(.*)</head>`)
	bodyElement = regexp.MustCompile(`(?is)<body[^>]*>(.*)</body>`)
	linkElement = regexp.MustCompile(`(?i)<link[^>]*>`)
	hrefAttr    = regexp.MustCompile(`(?i)href\s*=\s*"([^"]*)"`)
)

// process rewrites resource placeholders in chapter markup and collects
// stylesheets linked from its head.
func (d *Document) process(text string) *objects.ProcessedChapter {
	pc := &objects.ProcessedChapter{CSS: []objects.Stylesheet{}}
	if head := headElement.FindStringSubmatch(text); head != nil {
		for _, link := range linkElement.FindAllString(head[1], -1) {
			href := hrefAttr.FindStringSubmatch(link)
			if href == nil {
				continue
			}
			p, ok := position.FindPlaceholder(href[1])
			if !ok {
				continue
			}
			pc.CSS = append(pc.CSS, objects.Stylesheet{ID: p.ID, Href: d.replaceResources(href[1])})
		}
	}
	body := text
	if m := bodyElement.FindStringSubmatch(text); m != nil {
		body = m[1]
	}
	pc.HTML = d.replaceResources(body)
	return pc
}

// replaceResources substitutes placeholders with sink locations, saving
// every referenced resource once.
func (d *Document) replaceResources(s string) string {
	return position.ReplacePlaceholders(s, func(p position.Placeholder) string {
		key := p.Kind + ":" + strings.ToUpper(p.ID)
		if ri := d.saved.Find(key); ri != nil {
			return ri.Location
		}
		if d.pending[key] {
			// flow referencing itself
			return p.Matched
		}
		d.pending[key] = true
		defer delete(d.pending, key)

		location, err := d.resolvePlaceholder(key, p)
		if err != nil {
			d.warn("Unable to resolve "+p.Matched, err)
			return p.Matched
		}
		return location
	})
}

func (d *Document) resolvePlaceholder(key string, p position.Placeholder) (string, error) {
	i, err := p.Index()
	if err != nil {
		return "", err
	}

	var (
		data []byte
		mime = p.Mime
		name = strings.ToUpper(p.ID)
	)
	switch p.Kind {
	case position.Flow:
		if data, err = d.loadFlow(i); err != nil {
			return "", err
		}
		if mime == "" {
			mime = resources.SniffType(data)
		}
		name = "flow" + name
	default:
		res, err := d.file.LoadResource(i - 1)
		if err != nil {
			return "", err
		}
		if res.Warning != nil {
			d.warn("Resource "+p.ID+" is damaged", res.Warning)
		}
		data = res.Data
		if mime == "" {
			mime = res.Type
		}
	}

	if mime == resources.CSS || mime == resources.SVG {
		data = []byte(d.replaceResources(d.file.Decode(data)))
	}
	return d.save(key, name, mime, data)
}

func (d *Document) loadFlow(i int) ([]byte, error) {
	if i < 0 || i >= len(d.flows) {
		return nil, fmt.Errorf("%w: flow %d is out of range [0, %d)", common.ErrCorruptRecord, i, len(d.flows))
	}
	return d.raw.slice(d.flows[i].Start, d.flows[i].End)
}

// ResolveHref implements book.Book.
func (d *Document) ResolveHref(href string) (objects.ResolvedHref, bool) {
	if position.IsExternal(href) {
		return objects.ResolvedHref{}, false
	}
	fid, off, ok := position.ParsePosURI(href)
	if !ok {
		return objects.ResolvedHref{}, false
	}
	ci, ok := d.fragChapter[int(fid)]
	if !ok {
		return objects.ResolvedHref{}, false
	}
	ch := &d.chapters[ci]
	resolved := objects.ResolvedHref{ID: ch.ID}
	if sel, ok := d.selectors[int(fid)][int(off)]; ok {
		resolved.Selector = sel
		return resolved, true
	}

	idx := slices.IndexFunc(ch.Frags, func(fr Fragment) bool { return fr.Index == int(fid) })
	fr := ch.Frags[idx]
	start := ch.Skel.Offset + ch.Skel.Length + fr.Offset
	fragment, err := d.raw.slice(start, start+fr.Length)
	if err != nil {
		d.warn("Unable to load fragment for "+href, err)
		return resolved, true
	}
	resolved.Selector = d.cacheSelector(int(fid), int(off), fragment)
	return resolved, true
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
	clear(d.selectors)
	d.log.Debug("KF8 document destroyed", zap.Int("records", d.raw.loaded()))
}
