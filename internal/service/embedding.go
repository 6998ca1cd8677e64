package service

import (
	"context"

	"github.com/cloo-solutions/biorag/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Generator produces text from a system instruction and a user prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// VectorIndex is the part of the vector index manager the services use.
type VectorIndex interface {
	CreateOrReplace(ctx context.Context, scope domain.Scope, chunks []domain.Chunk) error
	AppendOrCreate(ctx context.Context, scope domain.Scope, chunks []domain.Chunk) error
	Exists(ctx context.Context, scope domain.Scope) (bool, error)
	SimilaritySearch(ctx context.Context, scope domain.Scope, query string, k int) ([]domain.Hit, error)
}

// truncateRunes returns the first n runes of s.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
