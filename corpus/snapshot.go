// Package corpus holds the immutable portfolio documents the agent is grounded in.
//
// Information Hiding:
// - Storage layout of the documents
// - Where the documents came from (provider resources or local files)
package corpus

import (
	"maps"
	"slices"
)

// Source records where a snapshot was loaded from.
type Source string

const (
	SourceMCP    Source = "mcp"
	SourceStatic Source = "static"
	SourceNone   Source = "none"
)

// Well-known resource keys, in the order they are presented to the model.
const (
	KeyAbout        = "about"
	KeyEducation    = "education"
	KeyExperience   = "experience"
	KeyProjects     = "projects"
	KeySkills       = "skills"
	KeyCertificates = "certificates"
	KeyAdventures   = "adventures"
	KeyJackie       = "jackie"
)

// Snapshot maps resource keys to structured documents. A document is
// whatever JSON or YAML decoding produced, or a raw string when the
// content was not structured.
//
// A Snapshot is never modified after construction, so it is safe for
// concurrent reads. Callers must not mutate the documents it returns.
type Snapshot struct {
	docs   map[string]any
	source Source
}

// New creates a snapshot from docs. The map is copied.
func New(docs map[string]any, source Source) *Snapshot {
	if len(docs) == 0 {
		return &Snapshot{docs: map[string]any{}, source: SourceNone}
	}
	return &Snapshot{docs: maps.Clone(docs), source: source}
}

// Empty returns a snapshot with no documents.
func Empty() *Snapshot {
	return New(nil, SourceNone)
}

// Get returns the document stored under key.
func (s *Snapshot) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	doc, ok := s.docs[key]
	return doc, ok
}

// Keys returns all resource keys in sorted order.
func (s *Snapshot) Keys() []string {
	if s == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(s.docs))
}

// Len returns the number of documents.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.docs)
}

// Loaded reports whether any document is present.
func (s *Snapshot) Loaded() bool {
	return s.Len() > 0
}

// Source returns where the snapshot came from.
func (s *Snapshot) Source() Source {
	if s == nil {
		return SourceNone
	}
	return s.source
}
