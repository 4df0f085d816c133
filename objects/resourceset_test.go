package objects

import (
	"slices"
	"strings"
	"testing"
)

func TestResourceSet(t *testing.T) {
	rs := NewResourceSet()
	rs.Add("embed:0001", &ResourceInfo{Key: "embed:0001", MimeType: "image/jpeg", Size: 100, Location: "/tmp/a/1.jpg"})
	rs.Add("embed:0002", &ResourceInfo{Key: "embed:0002", MimeType: "image/png", Size: 50, Location: "/tmp/a/2.png"})
	rs.Add("flow:1", &ResourceInfo{Key: "flow:1", MimeType: "text/css", Size: 10, Location: "/tmp/a/flow1.css"})
	rs.Add("", &ResourceInfo{})

	if len(rs) != 3 {
		t.Fatal("Set Size not 3:", len(rs))
	}
	if rs.Find("") != nil || rs.Find("embed:0003") != nil {
		t.Fatal("Unexpected element found")
	}
	if ri := rs.Find("flow:1"); ri == nil || ri.MimeType != "text/css" {
		t.Fatal("Flow not found")
	}
	if rs.Size() != 160 {
		t.Fatal("Set total size not 160:", rs.Size())
	}

	images := rs.SubsetByFunc(func(k string, ri *ResourceInfo) bool {
		return strings.HasPrefix(ri.MimeType, "image/")
	})
	if !slices.Equal(images.Keys(), []string{"embed:0001", "embed:0002"}) {
		t.Fatal("Unexpected image subset:", images.Keys())
	}

	images.Delete("embed:0001")
	if len(images) != 1 || len(rs) != 3 {
		t.Fatal("Delete affected wrong set")
	}
}
