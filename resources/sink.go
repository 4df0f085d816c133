package resources

import (
	"fmt"
	"sync"
)

// Sink stores resources extracted from a book and hands out locations
// to reference them from processed chapters.
type Sink interface {
	// Save stores data under name, extension is chosen by the sink.
	Save(name, mime string, data []byte) (string, error)
	// Release removes previously saved resource.
	Release(location string) error
}

// MemoryItem is a resource kept by MemorySink.
type MemoryItem struct {
	Type string
	Data []byte
}

// MemorySink keeps resources in memory, locations are "memory:<name>.<ext>".
type MemorySink struct {
	mu    sync.Mutex
	items map[string]MemoryItem
}

// NewMemorySink returns empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{items: make(map[string]MemoryItem)}
}

// Save implements Sink.
func (s *MemorySink) Save(name, mime string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	location := "memory:" + name + "." + Ext(mime)
	s.items[location] = MemoryItem{Type: mime, Data: data}
	return location, nil
}

// Release implements Sink.
func (s *MemorySink) Release(location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[location]; !ok {
		return fmt.Errorf("unknown location %q", location)
	}
	delete(s.items, location)
	return nil
}

// Get returns saved resource.
func (s *MemorySink) Get(location string) (MemoryItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[location]
	return it, ok
}

// Len returns number of resources currently held.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.items)
}
