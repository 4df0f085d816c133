// Package files saves extracted book resources to the file system.
package files

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"mobiparse/resources"
)

// should be usable in the zap log.Named()
const driverName = "file-system"

// Sink writes resources into a single directory. Locations are file names
// relative to that directory, so markup referencing them works from files
// stored next to resources.
type Sink struct {
	log       *zap.Logger
	dir       string
	keep      bool
	slugNames bool

	mu    sync.Mutex
	saved map[string]struct{}
}

// New prepares directory for resources. When keep is set Release leaves
// files in place, slugNames makes resource names safe for any file system.
func New(dir string, keep, slugNames bool, log *zap.Logger) (*Sink, error) {
	if len(dir) == 0 {
		return nil, fmt.Errorf("resource directory is not specified")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("unable to create resource directory '%s': %w", dir, err)
	}
	return &Sink{
		log:       log.Named(driverName),
		dir:       dir,
		keep:      keep,
		slugNames: slugNames,
		saved:     make(map[string]struct{}),
	}, nil
}

// Dir returns destination directory.
func (s *Sink) Dir() string {
	return s.dir
}

func (s *Sink) ext(mime string, data []byte) string {
	if ext := resources.Ext(mime); ext != resources.Ext(resources.Unknown) {
		return ext
	}
	// our sniffing table is small, give it another chance
	if ext := strings.TrimPrefix(mimetype.Detect(data).Extension(), "."); len(ext) > 0 {
		return ext
	}
	return resources.Ext(resources.Unknown)
}

// Save implements resources.Sink.
func (s *Sink) Save(name, mime string, data []byte) (string, error) {
	if s.slugNames {
		name = slug.Make(name)
	}
	location := name + "." + s.ext(mime, data)
	full := filepath.Join(s.dir, location)

	s.log.Debug("Action Save", zap.String("path", full), zap.String("mime", mime), zap.Int("size", len(data)))

	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("unable to write resource '%s': %w", full, err)
	}

	s.mu.Lock()
	s.saved[location] = struct{}{}
	s.mu.Unlock()
	return location, nil
}

// Release implements resources.Sink.
func (s *Sink) Release(location string) error {
	s.mu.Lock()
	_, ok := s.saved[location]
	delete(s.saved, location)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("resource '%s' was not saved by this sink", location)
	}
	if s.keep {
		return nil
	}
	full := filepath.Join(s.dir, location)
	s.log.Debug("Action Remove", zap.String("path", full))
	return os.Remove(full)
}

// Write stores arbitrary file (processed chapter, TOC) next to resources and
// returns its full path. Written files are never released.
func (s *Sink) Write(name string, data []byte) (string, error) {
	full := filepath.Join(s.dir, name)
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("unable to write '%s': %w", full, err)
	}
	return full, nil
}

// HashFile returns hex encoded sha256 of file content.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.CopyBuffer(h, file, make([]byte, 256*1024)); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
