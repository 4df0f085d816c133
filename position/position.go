// Package position encodes in-book references and scans markup for
// resource placeholders and anchor attributes.
package position

import (
	"regexp"
	"strconv"
	"strings"
)

var posURI = regexp.MustCompile(`^kindle:pos:fid:([0-9A-Va-v]+):off:([0-9A-Va-v]+)$`)

// MakePosURI encodes fragment id and byte offset within fragment.
func MakePosURI(fid, off uint32) string {
	return "kindle:pos:fid:" + base32(fid, 4) + ":off:" + base32(off, 10)
}

// base32 formats v with digits 0-9A-V, zero padded to width.
func base32(v uint32, width int) string {
	s := strings.ToUpper(strconv.FormatUint(uint64(v), 32))
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return s
}

// ParsePosURI decodes position produced by MakePosURI.
func ParsePosURI(uri string) (fid, off uint32, ok bool) {
	m := posURI.FindStringSubmatch(uri)
	if m == nil {
		return 0, 0, false
	}
	f, err := strconv.ParseUint(m[1], 32, 32)
	if err != nil {
		return 0, 0, false
	}
	o, err := strconv.ParseUint(m[2], 32, 32)
	if err != nil {
		return 0, 0, false
	}
	return uint32(f), uint32(o), true
}

var scheme = regexp.MustCompile(`^\w+:`)

// IsExternal reports if href points outside of the book: it has a scheme
// and it is neither "kindle:" nor "blob:".
func IsExternal(href string) bool {
	if !scheme.MatchString(href) {
		return false
	}
	lower := strings.ToLower(href)
	return !strings.HasPrefix(lower, "kindle") && !strings.HasPrefix(lower, "blob")
}

var filepos = regexp.MustCompile(`filepos:(\d+)`)

// MakeFilepos encodes classic book byte position.
func MakeFilepos(pos string) string {
	return "filepos:" + pos
}

// ParseFilepos returns decimal digits of classic position and its value.
func ParseFilepos(href string) (string, int, bool) {
	m := filepos.FindStringSubmatch(href)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return "", 0, false
	}
	return m[1], n, true
}
