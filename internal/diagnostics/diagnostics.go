// Package diagnostics stores per-file diagnostics published by language
// servers and exposes them to the editing surface.
package diagnostics

import (
	"sync"
)

// Severity follows the LSP DiagnosticSeverity numbering.
type Severity int

const (
	SeverityError   Severity = 1
	SeverityWarning Severity = 2
	SeverityInfo    Severity = 3
	SeverityHint    Severity = 4
)

// Position is a zero-based line/character position.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a start/end position pair.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Diagnostic is one reported problem in a file.
type Diagnostic struct {
	Range    Range    `json:"range"`
	Severity Severity `json:"severity,omitempty"`
	Code     any      `json:"code,omitempty"`
	Source   string   `json:"source,omitempty"`
	Message  string   `json:"message"`
}

// Sink receives diagnostics updates keyed by file path.
type Sink interface {
	// Publish replaces the diagnostics for a file. An empty slice clears
	// the file's entry.
	Publish(path string, diags []Diagnostic)
}

// Store is an in-memory Sink with query access.
// It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	files map[string][]Diagnostic
}

// NewStore creates an empty diagnostics store.
func NewStore() *Store {
	return &Store{files: make(map[string][]Diagnostic)}
}

// Ensure Store implements Sink.
var _ Sink = (*Store)(nil)

// Publish replaces the diagnostics for a file.
func (s *Store) Publish(path string, diags []Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(diags) == 0 {
		delete(s.files, path)
		return
	}
	s.files[path] = diags
}

// Get returns the current diagnostics for a file.
func (s *Store) Get(path string) []Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.files[path]
}

// All returns diagnostics for all files.
func (s *Store) All() map[string][]Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]Diagnostic, len(s.files))
	for path, diags := range s.files {
		out[path] = diags
	}
	return out
}

// Clear removes all stored diagnostics.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = make(map[string][]Diagnostic)
}

// Counts returns the total error and warning counts across all files.
func (s *Store) Counts() (errors, warnings int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, diags := range s.files {
		for _, d := range diags {
			switch d.Severity {
			case SeverityError:
				errors++
			case SeverityWarning:
				warnings++
			}
		}
	}
	return errors, warnings
}
