package catalog

import (
	"crypto/sha256"
	"fmt"
	"io"
	"path/filepath"
)

// GetName returns catalog database file name for extraction root, every
// root gets its own catalog.
func GetName(root string) string {
	h := sha256.New()
	_, _ = io.WriteString(h, filepath.ToSlash(filepath.Clean(root)))
	return fmt.Sprintf("%x.db", h.Sum(nil))
}
