package service

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/cloo-solutions/biorag/internal/domain"
	"github.com/cloo-solutions/biorag/internal/telemetry"
)

const (
	// DefaultSearchK is the number of global hits requested when none is set.
	DefaultSearchK  = 10
	maxSnippetRunes = 400
)

// SearchResult is one publication matched by global search.
type SearchResult struct {
	Score         float64 `json:"score"`
	Snippet       string  `json:"snippet"`
	DocumentID    string  `json:"publication_id"`
	Title         string  `json:"title"`
	ChunkSequence int     `json:"chunk_id"`
	Year          string  `json:"year,omitempty"`
	Organism      string  `json:"organism,omitempty"`
	Environment   string  `json:"environment,omitempty"`
}

// SearchService runs similarity search over the global index and keeps the
// best chunk per publication.
type SearchService struct {
	index  VectorIndex
	logger *zap.Logger
}

func NewSearchService(index VectorIndex, logger *zap.Logger) *SearchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchService{index: index, logger: logger}
}

// Search returns at most one result per publication, best score first. A
// global index that does not exist yet fails with INDEX_MISSING.
func (s *SearchService) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{
		Scope:     string(domain.GlobalScope),
		Operation: "search",
	})
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyInput
	}
	if k <= 0 {
		k = DefaultSearchK
	}

	hits, err := s.index.SimilaritySearch(ctx, domain.GlobalScope, query, k)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return dedupeHits(hits), nil
}

// dedupeHits keeps the highest scoring hit per publication. On equal scores
// the earlier hit wins. Hits with no positive similarity are not matches.
func dedupeHits(hits []domain.Hit) []SearchResult {
	best := make(map[string]int, len(hits))
	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		if h.Score <= 0 {
			continue
		}
		id := h.Payload.DocumentID
		if i, ok := best[id]; ok {
			if h.Score > results[i].Score {
				results[i] = toSearchResult(h)
			}
			continue
		}
		best[id] = len(results)
		results = append(results, toSearchResult(h))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

func toSearchResult(h domain.Hit) SearchResult {
	p := h.Payload
	return SearchResult{
		Score:         h.Score,
		Snippet:       makeSnippet(p.Text),
		DocumentID:    p.DocumentID,
		Title:         p.Title,
		ChunkSequence: p.ChunkSeq,
		Year:          p.Year,
		Organism:      p.Organism,
		Environment:   p.Environment,
	}
}

func makeSnippet(text string) string {
	return truncateRunes(strings.TrimSpace(text), maxSnippetRunes)
}
