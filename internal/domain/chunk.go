package domain

import (
	"fmt"
	"strings"
)

// Scope identifies a vector index: a publication id or GlobalScope.
type Scope string

// GlobalScope is the cross-document index scope.
const GlobalScope Scope = "global"

// ChunkTypePublication tags payloads produced by publication ingestion.
const ChunkTypePublication = "publication_chunk"

// DocumentScope returns the per-document scope for a publication id. The
// global scope name is reserved and cannot name a publication.
func DocumentScope(documentID string) (Scope, error) {
	scope := Scope(documentID)
	if scope == GlobalScope {
		return "", fmt.Errorf("publication id %q is reserved for the global index", documentID)
	}
	if err := scope.Validate(); err != nil {
		return "", err
	}
	return scope, nil
}

// Validate checks that a scope is usable as a storage key.
func (s Scope) Validate() error {
	v := string(s)
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("scope cannot be empty")
	}
	if v == "." || v == ".." || strings.ContainsAny(v, `/\`) {
		return fmt.Errorf("scope %q contains path separators", v)
	}
	return nil
}

// Payload is the metadata stored next to a chunk vector and returned with
// similarity results.
type Payload struct {
	DocumentID  string `json:"publication_id"`
	Title       string `json:"title,omitempty"`
	ChunkSeq    int    `json:"chunk_id"`
	Year        string `json:"year,omitempty"`
	Organism    string `json:"organism,omitempty"`
	Environment string `json:"environment,omitempty"`
	Type        string `json:"type,omitempty"`
	Text        string `json:"text"`
}

// Chunk is a bounded window of a document's text. Start is the rune offset of
// the window in the source text.
type Chunk struct {
	Seq      int
	Start    int
	Text     string
	Metadata Payload
}

// Hit is a single similarity search result.
type Hit struct {
	Payload Payload
	Score   float64
}

// IndexEntry is one (vector, payload) pair inside a persisted index.
type IndexEntry struct {
	Vector  []float32
	Payload Payload
}

// IndexSnapshot is the persisted form of a scope's vector index.
type IndexSnapshot struct {
	Scope     Scope
	Dimension int
	Entries   []IndexEntry
}

// Validate checks that every entry matches the snapshot dimension.
func (s *IndexSnapshot) Validate() error {
	if s.Dimension <= 0 {
		return fmt.Errorf("index dimension must be positive, got %d", s.Dimension)
	}
	for i, e := range s.Entries {
		if len(e.Vector) != s.Dimension {
			return NewDomainErrorWithCause(ErrCodePersistence, ErrDimensionMismatch.Message,
				fmt.Errorf("entry %d has dimension %d, index has %d", i, len(e.Vector), s.Dimension))
		}
	}
	return nil
}
