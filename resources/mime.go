// Package resources decodes media records and saves them for rendering.
package resources

import (
	"bytes"
)

// Types produced by sniffing and referenced by chapter processing.
const (
	Unknown = "unknown"
	CSS     = "text/css"
	SVG     = "image/svg+xml"
	XHTML   = "application/xhtml+xml"
	HTML    = "text/html"
	XML     = "application/xml"
)

var signatures = []struct {
	magic []byte
	mime  string
}{
	{[]byte{0xFF, 0xD8, 0xFF}, "image/jpeg"},
	{[]byte{0x89, 0x50, 0x4E, 0x47}, "image/png"},
	{[]byte("GIF8"), "image/gif"},
	{[]byte("BM"), "image/bmp"},
	{[]byte("<svg"), SVG},
	{[]byte{0x00, 0x00, 0x00, 0x18}, "video/mp4"},
	{[]byte{0x00, 0x00, 0x00, 0x20}, "video/mp4"},
	{[]byte{0x1A, 0x45, 0xDF, 0xA3}, "video/mkv"},
	{[]byte{0x1F, 0x43, 0xB6, 0x75}, "video/webm"},
	{[]byte("ID3"), "audio/mp3"},
	{[]byte("RIFF"), "audio/wav"},
	{[]byte("OggS"), "audio/ogg"},
	{[]byte{0x00, 0x01, 0x00, 0x00}, "font/ttf"},
	{[]byte("true"), "font/ttf"},
	{[]byte("OTTO"), "font/otf"},
	{[]byte("wOFF"), "font/woff"},
	{[]byte("wOF2"), "font/woff2"},
	{[]byte("PL"), "font/eot"},
}

// SniffType returns MIME type by content magic, Unknown when nothing matches.
func SniffType(data []byte) string {
	for _, s := range signatures {
		if bytes.HasPrefix(data, s.magic) {
			return s.mime
		}
	}
	return Unknown
}

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/bmp":  "bmp",
	SVG:          "svg",
	CSS:          "css",
	XML:          "xml",
	XHTML:        "xhtml",
	HTML:         "html",
	"video/mp4":  "mp4",
	"video/mkv":  "mkv",
	"video/webm": "webm",
	"audio/mp3":  "mp3",
	"audio/wav":  "wav",
	"audio/ogg":  "ogg",
	"font/ttf":   "ttf",
	"font/otf":   "otf",
	"font/woff":  "woff",
	"font/woff2": "woff2",
	"font/eot":   "eot",
	Unknown:      "bin",
}

// Ext returns file extension for MIME type, "bin" for types we do not know.
func Ext(mime string) string {
	if ext, ok := extensions[mime]; ok {
		return ext
	}
	return "bin"
}
