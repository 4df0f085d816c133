package mobi

import (
	"regexp"
	"strconv"

	"mobiparse/position"
)

var (
	imgTag    = regexp.MustCompile(`(?i)<img\s[^>]*>`)
	mediaTag  = regexp.MustCompile(`(?i)<(?:video|audio)\s[^>]*>`)
	anchorTag = regexp.MustCompile(`(?i)<a\s[^>]*>`)

	recindexAttr      = regexp.MustCompile(`(?i)\brecindex\s*=\s*["']?(\d+)["']?`)
	mediaRecindexAttr = regexp.MustCompile(`(?i)\bmediarecindex\s*=\s*["']?(\d+)["']?`)
	fileposAttr       = regexp.MustCompile(`(?i)\bfilepos\s*=\s*["']?(\d+)["']?`)
)

// replace points images and media to saved resources and turns filepos
// anchors into "filepos:" links.
func (d *Document) replace(markup string) string {
	markup = imgTag.ReplaceAllStringFunc(markup, func(tag string) string {
		return d.replaceRecindex(tag, recindexAttr, "src")
	})
	markup = mediaTag.ReplaceAllStringFunc(markup, func(tag string) string {
		tag = d.replaceRecindex(tag, mediaRecindexAttr, "src")
		return d.replaceRecindex(tag, recindexAttr, "poster")
	})
	return anchorTag.ReplaceAllStringFunc(markup, func(tag string) string {
		m := fileposAttr.FindStringSubmatchIndex(tag)
		if m == nil {
			return tag
		}
		return tag[:m[0]] + `href="` + position.MakeFilepos(tag[m[2]:m[3]]) + `"` + tag[m[1]:]
	})
}

// replaceRecindex substitutes the first attribute matched by re with
// attr pointing to saved resource. Tag is kept when resource is unavailable.
func (d *Document) replaceRecindex(tag string, re *regexp.Regexp, attr string) string {
	m := re.FindStringSubmatchIndex(tag)
	if m == nil {
		return tag
	}
	recindex, err := strconv.Atoi(tag[m[2]:m[3]])
	if err != nil {
		d.warn("Bad resource index in "+tag, err)
		return tag
	}
	location, err := d.loadResource(recindex)
	if err != nil {
		d.warn("Unable to load resource for "+tag, err)
		return tag
	}
	return tag[:m[0]] + attr + `="` + location + `"` + tag[m[1]:]
}
