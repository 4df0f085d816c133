package catalog

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"mobiparse/objects"
)

func connect(t *testing.T) *Connection {
	t.Helper()

	path := filepath.Join(t.TempDir(), GetName("/books/out"))
	if err := Create(path, zap.NewNop()); err != nil {
		t.Fatal("Unable to create catalog:", err)
	}
	// second time is a no-op
	if err := Create(path, zap.NewNop()); err != nil {
		t.Fatal("Unable to reopen catalog:", err)
	}
	c, err := Connect(path, zap.NewNop())
	if err != nil {
		t.Fatal("Unable to connect:", err)
	}
	t.Cleanup(c.Disconnect)
	return c
}

func TestSaveAndList(t *testing.T) {
	c := connect(t)

	rs := objects.NewResourceSet()
	rs.Add("embed:0001", &objects.ResourceInfo{Key: "embed:0001", MimeType: "image/jpeg", Size: 10, Location: "/out/0001.jpg"})
	rs.Add("cover", &objects.ResourceInfo{Key: "cover", MimeType: "image/jpeg", Size: 10, Location: "/out/cover.jpg"})

	e := &Entry{
		Hash:        "abc",
		File:        "book.azw3",
		Format:      "KF8",
		Title:       "Title",
		Metadata:    objects.Metadata{Title: "Title", Author: []string{"A"}, Subject: []string{}, Contributor: []string{}},
		Destination: "/out",
	}
	id, err := c.Save(e, rs)
	if err != nil {
		t.Fatal("Unable to save:", err)
	}
	if id != 1 {
		t.Errorf("First entry id = %d, want 1", id)
	}
	if id, err = c.Save(&Entry{Hash: "def", File: "other.mobi", Format: "MOBI", Destination: "/out"}, nil); err != nil || id != 2 {
		t.Fatalf("Second save = %d, %v", id, err)
	}

	all, err := c.Entries()
	if err != nil {
		t.Fatal("Unable to list:", err)
	}
	if len(all) != 2 || all[0].File != "book.azw3" || all[1].File != "other.mobi" {
		t.Fatalf("Unexpected entries %+v", all)
	}
	if !reflect.DeepEqual(all[0].Metadata, e.Metadata) {
		t.Errorf("Metadata = %+v, want %+v", all[0].Metadata, e.Metadata)
	}
	if all[0].Created.IsZero() {
		t.Error("Creation time is not set")
	}

	found, err := c.Find("abc")
	if err != nil || len(found) != 1 || found[0].ID != 1 {
		t.Errorf("Find = %+v, %v", found, err)
	}

	got, err := c.Resources(1)
	if err != nil {
		t.Fatal("Unable to read resources:", err)
	}
	if !reflect.DeepEqual(got, rs) {
		t.Errorf("Resources = %v, want %v", got, rs)
	}
}

func TestGetName(t *testing.T) {
	if GetName("/a/b") != GetName("/a/b/") {
		t.Error("Equivalent roots get different catalogs")
	}
	if GetName("/a/b") == GetName("/a/c") {
		t.Error("Different roots share catalog")
	}
	if name := GetName("/a"); !strings.HasSuffix(name, ".db") || len(name) != 64+3 {
		t.Errorf("Unexpected name %q", name)
	}
}
