// Package model provides the virtual model store: the in-memory registry of
// (URI, content) units that the static-analysis surface indexes.
//
// The store is insert-once by construction. Re-adding a URI is a no-op, never
// an overwrite; callers that genuinely need to replace a unit must Remove it
// first. This makes repeated hydration of the same workspace idempotent.
package model

import (
	"sort"
	"sync"
)

// Unit is a single virtual model: a mirrored source file or a loaded
// type-declaration file.
type Unit struct {
	URI     string
	Content string
	Size    int64
}

// Store is the virtual model registry consumed by the analysis surface.
type Store interface {
	// Add inserts a unit keyed by its normalized URI. Returns false if the
	// URI is already present; the existing content is kept.
	Add(uri, content string) bool

	// Has reports whether a unit exists for the URI.
	Has(uri string) bool

	// Get returns the unit for a URI.
	Get(uri string) (Unit, bool)

	// Remove deletes the unit for a URI, if present.
	Remove(uri string)

	// Clear removes all units.
	Clear()

	// Len returns the number of stored units.
	Len() int

	// Bytes returns the total content size across all units.
	Bytes() int64
}

// MemStore is the in-memory Store implementation.
// It is safe for concurrent use.
type MemStore struct {
	mu    sync.RWMutex
	units map[string]Unit
	bytes int64
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{units: make(map[string]Unit)}
}

// Ensure MemStore implements Store.
var _ Store = (*MemStore)(nil)

// Add inserts a unit. Insertion is idempotent by URI.
func (s *MemStore) Add(uri, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.units[uri]; exists {
		return false
	}
	size := int64(len(content))
	s.units[uri] = Unit{URI: uri, Content: content, Size: size}
	s.bytes += size
	return true
}

// Has reports whether a unit exists for the URI.
func (s *MemStore) Has(uri string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.units[uri]
	return ok
}

// Get returns the unit for a URI.
func (s *MemStore) Get(uri string) (Unit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[uri]
	return u, ok
}

// Remove deletes the unit for a URI.
func (s *MemStore) Remove(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.units[uri]; ok {
		s.bytes -= u.Size
		delete(s.units, uri)
	}
}

// Clear removes all units.
func (s *MemStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units = make(map[string]Unit)
	s.bytes = 0
}

// Len returns the number of stored units.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.units)
}

// Bytes returns the total content size across all units.
func (s *MemStore) Bytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bytes
}

// URIs returns all stored URIs in sorted order.
func (s *MemStore) URIs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uris := make([]string, 0, len(s.units))
	for uri := range s.units {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}
