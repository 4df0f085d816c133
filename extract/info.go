package extract

import (
	"github.com/dustin/go-humanize"

	"mobiparse/book"
	"mobiparse/common"
	"mobiparse/objects"
)

// Report is what "info" command prints.
type Report struct {
	File     string              `yaml:"file"`
	Format   string              `yaml:"format"`
	Encoding string              `yaml:"encoding"`
	Size     string              `yaml:"size"`
	Metadata objects.Metadata    `yaml:"metadata"`
	Spine    []objects.SpineItem `yaml:"spine"`
	TOC      []objects.TocItem   `yaml:"toc,omitempty"`
	Guide    []objects.GuideItem `yaml:"guide,omitempty"`
	Warnings []string            `yaml:"warnings,omitempty"`
}

// Describe collects book structure, size is book file size in bytes.
func Describe(b book.Book, size int) *Report {
	return &Report{
		File:     b.FileInfo().FileName,
		Format:   b.Format().String(),
		Encoding: common.EncodingName(b.Format().MOBI().Encoding),
		Size:     humanize.IBytes(uint64(size)),
		Metadata: b.Metadata(),
		Spine:    b.Spine(),
		TOC:      b.TOC(),
		Guide:    b.Guide(),
		Warnings: b.Warnings(),
	}
}
