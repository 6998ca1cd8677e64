// Package vectorindex manages scoped vector indices: one persisted index per
// publication plus a global index shared by all publications.
package vectorindex

import (
	"fmt"
	"math"
	"sort"

	"github.com/cloo-solutions/biorag/internal/domain"
)

// Index is a loaded, queryable snapshot of one scope. It is not safe to
// mutate concurrently; the Manager hands out fresh copies.
type Index struct {
	scope     domain.Scope
	dimension int
	entries   []domain.IndexEntry
}

func newIndex(snap *domain.IndexSnapshot) *Index {
	return &Index{scope: snap.Scope, dimension: snap.Dimension, entries: snap.Entries}
}

func (ix *Index) Scope() domain.Scope { return ix.scope }

func (ix *Index) Dimension() int { return ix.dimension }

func (ix *Index) Len() int { return len(ix.entries) }

// Payloads returns entry payloads in insertion order.
func (ix *Index) Payloads() []domain.Payload {
	out := make([]domain.Payload, len(ix.entries))
	for i, e := range ix.entries {
		out[i] = e.Payload
	}
	return out
}

func (ix *Index) snapshot() *domain.IndexSnapshot {
	return &domain.IndexSnapshot{Scope: ix.scope, Dimension: ix.dimension, Entries: ix.entries}
}

// Search returns the k entries most similar to query by cosine similarity,
// highest first. Equal scores keep insertion order.
func (ix *Index) Search(query []float32, k int) ([]domain.Hit, error) {
	if k <= 0 || len(ix.entries) == 0 {
		return []domain.Hit{}, nil
	}
	if len(query) != ix.dimension {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodePersistence, domain.ErrDimensionMismatch.Message,
			fmt.Errorf("query has dimension %d, index %q has %d", len(query), ix.scope, ix.dimension))
	}

	qNorm := norm(query)
	hits := make([]domain.Hit, len(ix.entries))
	for i, e := range ix.entries {
		hits[i] = domain.Hit{Payload: e.Payload, Score: cosine(query, qNorm, e.Vector)}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine scores a zero-magnitude vector as 0 instead of NaN so ordering
// stays total.
func cosine(a []float32, aNorm float64, b []float32) float64 {
	bNorm := norm(b)
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}
