// Package extract implements command line actions working on a single book.
package extract

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	yaml "gopkg.in/yaml.v3"

	"mobiparse/book"
	"mobiparse/catalog"
	"mobiparse/config"
	"mobiparse/container"
	"mobiparse/files"
	"mobiparse/objects"
)

// Result describes finished extraction.
type Result struct {
	Dir      string
	Chapters []string
	Entry    *catalog.Entry
}

// bookDir is named after book title, file name is used for untitled books.
func bookDir(root, path string, f *container.File) string {
	name := slug.Make(f.Metadata().Title)
	if len(name) == 0 {
		name = slug.Make(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	}
	if len(name) == 0 {
		name = "book"
	}
	return filepath.Join(root, name)
}

// page wraps processed chapter markup into standalone document.
func page(title string, ch *objects.ProcessedChapter) []byte {
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"/><title>")
	buf.WriteString(html.EscapeString(title))
	buf.WriteString("</title>")
	for _, css := range ch.CSS {
		fmt.Fprintf(&buf, `<link rel="stylesheet" type="text/css" href="%s"/>`, html.EscapeString(css.Href))
	}
	buf.WriteString("</head><body>")
	buf.WriteString(ch.HTML)
	buf.WriteString("</body></html>\n")
	return buf.Bytes()
}

// Book writes every processed chapter and resource of the book at path into
// its own directory under root and records extraction in the catalog.
func Book(path, root string, cfg *config.Config, log *zap.Logger) (res *Result, err error) {
	log = log.Named("extract")

	// one broken book should not bring the whole run down
	defer func() {
		if r := recover(); r != nil {
			log.Error("Recovered from panic", zap.String("file", path), zap.Any("panic", r))
			res, err = nil, fmt.Errorf("panic while extracting '%s': %v", path, r)
		}
	}()

	if root, err = filepath.Abs(root); err != nil {
		return nil, fmt.Errorf("bad destination: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read book: %w", err)
	}
	f, err := container.Open(data, log)
	if err != nil {
		return nil, fmt.Errorf("unable to open '%s': %w", path, err)
	}

	log.Info("Extraction starting", zap.String("file", path), zap.String("size", humanize.IBytes(uint64(len(data)))))
	defer func(start time.Time) {
		log.Info("Extraction finished", zap.String("file", path), zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	res = &Result{Dir: bookDir(root, path, f)}

	// extracted markup references resources, so they are always kept
	sink, err := files.New(res.Dir, true, cfg.Resources.SlugNames, log)
	if err != nil {
		return nil, err
	}
	b, err := book.Open(data, book.WithFileName(filepath.Base(path)), book.WithSink(sink), book.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("unable to open '%s': %w", path, err)
	}
	defer b.Destroy()

	md := b.Metadata()
	if _, err := b.Cover(); err != nil {
		log.Warn("Unable to save cover", zap.String("file", path), zap.Error(err))
	}
	for i, item := range b.Spine() {
		ch, err := b.LoadChapter(item.ID)
		if err != nil {
			return nil, fmt.Errorf("unable to load chapter '%s': %w", item.ID, err)
		}
		name := fmt.Sprintf("%04d.html", i)
		if _, err := sink.Write(name, page(md.Title, ch)); err != nil {
			return nil, err
		}
		res.Chapters = append(res.Chapters, name)
	}

	toc, err := yaml.Marshal(b.TOC())
	if err != nil {
		return nil, fmt.Errorf("unable to marshal toc: %w", err)
	}
	if _, err := sink.Write("toc.yaml", toc); err != nil {
		return nil, err
	}
	for _, w := range b.Warnings() {
		log.Warn("Book problem", zap.String("file", path), zap.String("details", w))
	}

	hash, err := files.HashFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to hash '%s': %w", path, err)
	}
	res.Entry = &catalog.Entry{
		Hash:        hash,
		File:        filepath.ToSlash(path),
		Format:      b.Format().String(),
		Title:       md.Title,
		Metadata:    md,
		Destination: filepath.ToSlash(res.Dir),
	}
	if res.Entry.ID, err = record(cfg.CatalogPath, root, res.Entry, b.Resources(), log); err != nil {
		return nil, err
	}
	return res, nil
}

func record(dir, root string, e *catalog.Entry, rs objects.ResourceSet, log *zap.Logger) (int64, error) {
	path := filepath.Join(dir, catalog.GetName(root))
	if err := catalog.Create(path, log); err != nil {
		return 0, fmt.Errorf("unable to create catalog database '%s': %w", path, err)
	}
	conn, err := catalog.Connect(path, log)
	if err != nil {
		return 0, fmt.Errorf("catalog cannot be opened: %w", err)
	}
	defer conn.Disconnect()

	return conn.Save(e, rs)
}
