// Package book opens MOBI, AZW3 and hybrid e-books.
package book

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"mobiparse/container"
	"mobiparse/kf8"
	"mobiparse/mobi"
	"mobiparse/objects"
	"mobiparse/resources"
)

// Book is opened e-book of either format.
type Book interface {
	// Format returns payload kind, either *container.ClassicFormat or *container.KF8Format.
	Format() container.Format
	FileInfo() objects.FileInfo
	Spine() []objects.SpineItem
	TOC() []objects.TocItem
	Metadata() objects.Metadata
	// Cover saves cover to the sink and returns its location, empty string
	// when book has no cover.
	Cover() (string, error)
	CoverResource() (*resources.Resource, bool)
	// LoadChapter returns processed chapter for spine id, error wraps
	// common.ErrUnknownChapter for ids not in spine.
	LoadChapter(id string) (*objects.ProcessedChapter, error)
	ResolveHref(href string) (objects.ResolvedHref, bool)
	Guide() []objects.GuideItem
	// Resources returns everything saved to the sink so far.
	Resources() objects.ResourceSet
	Warnings() []string
	// Destroy releases all saved resources.
	Destroy()
}

var (
	_ Book = (*kf8.Document)(nil)
	_ Book = (*mobi.Document)(nil)
)

type options struct {
	log      *zap.Logger
	sink     resources.Sink
	fileName string
}

// Option configures Open.
type Option func(*options)

// WithLogger sets logger, nothing is logged by default.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithSink sets where extracted resources go, they are kept in memory by default.
func WithSink(sink resources.Sink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithFileName sets name reported by FileInfo.
func WithFileName(name string) Option {
	return func(o *options) {
		o.fileName = name
	}
}

// Open parses book from memory. Data must not be modified while book is in use.
func Open(data []byte, opts ...Option) (Book, error) {
	o := &options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.sink == nil {
		o.sink = resources.NewMemorySink()
	}

	f, err := container.Open(data, o.log)
	if err != nil {
		return nil, err
	}
	return newBook(f, o)
}

func newBook(f *container.File, o *options) (Book, error) {
	switch f.Format().(type) {
	case *container.KF8Format:
		d, err := kf8.New(f, kf8.Options{FileName: o.fileName, Sink: o.sink, Log: o.log})
		if err != nil {
			return nil, err
		}
		return d, nil
	case *container.ClassicFormat:
		d, err := mobi.New(f, mobi.Options{FileName: o.fileName, Sink: o.sink, Log: o.log})
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unexpected book format %s", f.Format())
	}
}

// OpenFile reads and parses book, FileInfo reports base name of the path.
func OpenFile(path string, opts ...Option) (Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read book: %w", err)
	}
	return Open(data, append([]Option{WithFileName(filepath.Base(path))}, opts...)...)
}
