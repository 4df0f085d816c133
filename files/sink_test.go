package files

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"mobiparse/internal/testbook"
)

func TestSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "res")
	s, err := New(dir, false, false, zap.NewNop())
	if err != nil {
		t.Fatal("Unable to create sink:", err)
	}

	tests := []struct {
		name, mime string
		data       []byte
		want       string
	}{
		{"0001", "image/jpeg", testbook.JPEG, "0001.jpg"},
		{"flow0002", "text/css", []byte("p {}"), "flow0002.css"},
		{"3", "unknown", []byte("%PDF-1.4\n"), "3.pdf"},
		{"cover", "unknown", []byte{0x01, 0x02}, "cover.bin"},
	}
	for _, tt := range tests {
		location, err := s.Save(tt.name, tt.mime, tt.data)
		if err != nil {
			t.Fatalf("Save(%q) failed: %v", tt.name, err)
		}
		if location != tt.want {
			t.Errorf("Save(%q) = %q, want %q", tt.name, location, tt.want)
		}
		full := filepath.Join(dir, location)
		if data, err := os.ReadFile(full); err != nil || string(data) != string(tt.data) {
			t.Errorf("Saved content mismatch for %q: %v", tt.name, err)
		}
		if err := s.Release(location); err != nil {
			t.Errorf("Release(%q) failed: %v", location, err)
		}
		if _, err := os.Stat(full); !os.IsNotExist(err) {
			t.Errorf("Released %q still exists", location)
		}
	}
	if err := s.Release("never.jpg"); err == nil {
		t.Error("Expected error releasing unknown location")
	}
}

func TestSinkKeepAndSlug(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, true, true, zap.NewNop())
	if err != nil {
		t.Fatal("Unable to create sink:", err)
	}
	location, err := s.Save("Cover Image", "image/png", testbook.PNG)
	if err != nil {
		t.Fatal("Unable to save:", err)
	}
	if location != "cover-image.png" {
		t.Errorf("Slugged name = %q", location)
	}
	if err := s.Release(location); err != nil {
		t.Fatal("Unable to release:", err)
	}
	if _, err := os.Stat(filepath.Join(dir, location)); err != nil {
		t.Errorf("Kept resource was removed: %v", err)
	}
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.mobi")
	if err := os.WriteFile(path, []byte("book"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := HashFile(path)
	if err != nil {
		t.Fatal("Unable to hash:", err)
	}
	if want := fmt.Sprintf("%x", sha256.Sum256([]byte("book"))); got != want {
		t.Errorf("HashFile = %s, want %s", got, want)
	}
}
