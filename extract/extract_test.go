package extract

import (
	"bytes"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"mobiparse/book"
	"mobiparse/catalog"
	"mobiparse/common"
	"mobiparse/config"
	"mobiparse/files"
	"mobiparse/internal/testbook"
	"mobiparse/thumbs"
)

const sampleHTML = `<html><body><p>one</p><img recindex="00001"/><mbp:pagebreak/><p>two</p></body></html>`

func writeBook(t *testing.T, withCover bool) string {
	t.Helper()

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.New(200, 300, color.NRGBA{B: 200, A: 255}), imaging.JPEG); err != nil {
		t.Fatal("Unable to encode cover:", err)
	}
	h := testbook.NewHeader()
	h.Title = "Test Book"
	if withCover {
		h.Exth = []testbook.Exth{testbook.ExthUint(201, 0)}
	}
	c := testbook.Classic{Header: h, HTML: sampleHTML, Resources: [][]byte{buf.Bytes()}}

	path := filepath.Join(t.TempDir(), "test.mobi")
	if err := os.WriteFile(path, c.Build(), 0644); err != nil {
		t.Fatal("Unable to write book:", err)
	}
	return path
}

func testConfig(t *testing.T, keep bool) *config.Config {
	t.Helper()

	return &config.Config{
		CatalogPath: t.TempDir(),
		Resources:   config.ResourcesConfig{Keep: keep},
		Thumbnails:  thumbs.ThumbnailsConfig{Width: 50, Height: 75, Quality: 80},
	}
}

func TestBook(t *testing.T) {
	path := writeBook(t, true)
	root := t.TempDir()
	cfg := testConfig(t, false)

	res, err := Book(path, root, cfg, zap.NewNop())
	if err != nil {
		t.Fatal("Extraction failed:", err)
	}
	if want := filepath.Join(root, "test-book"); res.Dir != want {
		t.Errorf("Dir = %q, want %q", res.Dir, want)
	}
	if want := []string{"0000.html", "0001.html"}; !reflect.DeepEqual(res.Chapters, want) {
		t.Errorf("Chapters = %v, want %v", res.Chapters, want)
	}

	page, err := os.ReadFile(filepath.Join(res.Dir, "0000.html"))
	if err != nil {
		t.Fatal("Unable to read chapter:", err)
	}
	for _, want := range []string{"<title>Test Book</title>", `<body><p>one</p><img src="1.jpg"/></body>`} {
		if !strings.Contains(string(page), want) {
			t.Errorf("Chapter has no %q:\n%s", want, page)
		}
	}
	// resources stay in place even though configuration does not keep them
	for _, name := range []string{"1.jpg", "cover.jpg", "toc.yaml", "0001.html"} {
		if _, err := os.Stat(filepath.Join(res.Dir, name)); err != nil {
			t.Errorf("%s was not extracted: %v", name, err)
		}
	}

	hash, err := files.HashFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Entry.Hash != hash || res.Entry.Format != "mobi" || res.Entry.Title != "Test Book" {
		t.Errorf("Unexpected catalog entry: %+v", res.Entry)
	}

	// second extraction of the same book gets its own record
	if _, err := Book(path, root, cfg, zap.NewNop()); err != nil {
		t.Fatal("Second extraction failed:", err)
	}
	conn, err := catalog.Connect(filepath.Join(cfg.CatalogPath, catalog.GetName(root)), zap.NewNop())
	if err != nil {
		t.Fatal("Unable to open catalog:", err)
	}
	defer conn.Disconnect()

	entries, err := conn.Find(hash)
	if err != nil {
		t.Fatal("Unable to query catalog:", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Catalog has %d entries for the book, want 2", len(entries))
	}
	rs, err := conn.Resources(entries[0].ID)
	if err != nil {
		t.Fatal("Unable to query resources:", err)
	}
	if want := []string{"cover", "recindex:1"}; !reflect.DeepEqual(rs.Keys(), want) {
		t.Errorf("Catalogued resources = %v, want %v", rs.Keys(), want)
	}
}

func TestBookErrors(t *testing.T) {
	cfg := testConfig(t, false)
	if _, err := Book(filepath.Join(t.TempDir(), "missing.mobi"), t.TempDir(), cfg, zap.NewNop()); err == nil {
		t.Error("Expected error for missing book")
	}

	path := filepath.Join(t.TempDir(), "garbage.mobi")
	if err := os.WriteFile(path, []byte("not a book"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Book(path, t.TempDir(), cfg, zap.NewNop()); !errors.Is(err, common.ErrInvalidHeader) {
		t.Errorf("Expected ErrInvalidHeader, got %v", err)
	}
}

func TestCover(t *testing.T) {
	path := writeBook(t, true)

	for _, keep := range []bool{false, true} {
		root := t.TempDir()
		cover, thumb, err := Cover(path, root, testConfig(t, keep), zap.NewNop())
		if err != nil {
			t.Fatalf("keep=%v: cover failed: %v", keep, err)
		}
		if want := filepath.Join(root, "test-book", thumbnailName); thumb != want {
			t.Errorf("keep=%v: thumbnail = %q, want %q", keep, thumb, want)
		}
		img, err := imaging.Open(thumb)
		if err != nil {
			t.Fatalf("keep=%v: unable to decode thumbnail: %v", keep, err)
		}
		if b := img.Bounds(); b.Dx() != 50 || b.Dy() != 75 {
			t.Errorf("keep=%v: thumbnail is %dx%d", keep, b.Dx(), b.Dy())
		}

		_, statErr := os.Stat(filepath.Join(root, "test-book", "cover.jpg"))
		if keep {
			if cover != filepath.Join(root, "test-book", "cover.jpg") || statErr != nil {
				t.Errorf("Kept cover %q: %v", cover, statErr)
			}
		} else if cover != "" || !os.IsNotExist(statErr) {
			t.Errorf("Cover %q was not removed: %v", cover, statErr)
		}
	}

	if _, _, err := Cover(writeBook(t, false), t.TempDir(), testConfig(t, true), zap.NewNop()); !errors.Is(err, common.ErrNoCover) {
		t.Errorf("Expected ErrNoCover, got %v", err)
	}
}

func TestDescribe(t *testing.T) {
	b, err := book.OpenFile(writeBook(t, true))
	if err != nil {
		t.Fatal("Unable to open book:", err)
	}
	defer b.Destroy()

	r := Describe(b, 2048)
	if r.File != "test.mobi" || r.Format != "mobi" || r.Size != "2.0 KiB" {
		t.Errorf("Unexpected report header: %+v", r)
	}
	if len(r.Spine) != 2 || r.Metadata.Title != "Test Book" || r.Encoding != "utf-8" {
		t.Errorf("Unexpected report body: %+v", r)
	}
}
