package mobi

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"mobiparse/objects"
	"mobiparse/position"
)

var (
	referenceTag = regexp.MustCompile(`(?i)<reference\s[^>]*>`)
	typeAttr     = regexp.MustCompile(`(?i)\btype\s*=\s*["']([^"']*)["']`)
)

// tocChapter finds chapter pointed to by guide reference of type "toc".
func (d *Document) tocChapter(reference []byte) (*Chapter, bool) {
	for _, ref := range referenceTag.FindAll(reference, -1) {
		t := typeAttr.FindSubmatch(ref)
		if t == nil || !strings.EqualFold(strings.TrimSpace(string(t[1])), "toc") {
			continue
		}
		pos := fileposAttr.FindSubmatch(ref)
		if pos == nil {
			continue
		}
		n, err := strconv.Atoi(string(pos[1]))
		if err != nil {
			continue
		}
		return d.chapterAt(n)
	}
	return nil, false
}

// buildTOC parses outline of the TOC chapter: every paragraph or
// blockquote holding a filepos anchor is an entry, blockquotes nest entries
// under the entry preceding them.
func (d *Document) buildTOC(reference []byte) []objects.TocItem {
	ch, ok := d.tocChapter(reference)
	if !ok {
		return []objects.TocItem{}
	}
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(d.file.Decode(ch.text)), ctx)
	if err != nil {
		d.warn("Unable to parse TOC chapter "+ch.ID, err)
		return []objects.TocItem{}
	}
	items := []objects.TocItem{}
	for _, n := range nodes {
		items = appendNav(items, n)
	}
	return items
}

func appendNav(items []objects.TocItem, n *html.Node) []objects.TocItem {
	if n.Type != html.ElementNode {
		return items
	}
	if n.DataAtom != atom.P && n.DataAtom != atom.Blockquote {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			items = appendNav(items, c)
		}
		return items
	}

	item, ok := navItem(n)
	if ok {
		items = append(items, item)
	}
	var children []objects.TocItem
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = appendNav(children, c)
	}
	switch {
	case len(children) == 0:
	case len(items) > 0 && (ok || n.DataAtom == atom.Blockquote):
		last := &items[len(items)-1]
		last.Children = append(last.Children, children...)
	default:
		items = append(items, children...)
	}
	return items
}

// navItem returns entry for the first filepos anchor of a paragraph, not
// looking into nested paragraphs and blockquotes.
func navItem(n *html.Node) (objects.TocItem, bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom == atom.P || c.DataAtom == atom.Blockquote {
			continue
		}
		if c.DataAtom == atom.A {
			if pos, ok := attr(c, "filepos"); ok {
				if n, err := strconv.Atoi(strings.TrimSpace(pos)); err == nil {
					return objects.TocItem{Label: text(c), Href: position.MakeFilepos(strconv.Itoa(n))}, true
				}
			}
		}
		if it, ok := navItem(c); ok {
			return it, true
		}
	}
	return objects.TocItem{}, false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func text(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
