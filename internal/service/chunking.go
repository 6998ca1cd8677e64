package service

import (
	"strings"

	"github.com/cloo-solutions/biorag/internal/domain"
)

// ChunkConfig controls chunking for publication embeddings. Sizes are in
// runes.
type ChunkConfig struct {
	Size    int
	Overlap int
}

// DefaultChunkConfig provides the default window and overlap.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    1200,
		Overlap: 200,
	}
}

// Valid reports whether the config can produce a forward-moving window.
func (c ChunkConfig) Valid() bool {
	return c.Size > 0 && c.Overlap >= 0 && c.Overlap < c.Size
}

// ChunkText splits text into fixed-stride windows of cfg.Size runes, each
// overlapping the previous one by cfg.Overlap runes. The last window is the
// first one that reaches the end of the text. Whitespace-only text yields no
// chunks. Invalid configs fall back to DefaultChunkConfig.
func ChunkText(text string, cfg ChunkConfig) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if !cfg.Valid() {
		cfg = DefaultChunkConfig()
	}

	runes := []rune(text)
	stride := cfg.Size - cfg.Overlap
	chunks := make([]domain.Chunk, 0, len(runes)/stride+1)

	for start := 0; ; start += stride {
		end := start + cfg.Size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, domain.Chunk{
			Seq:   len(chunks) + 1,
			Start: start,
			Text:  string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// attachPayloads stamps each chunk with the publication metadata.
func attachPayloads(chunks []domain.Chunk, pub *domain.Publication) []domain.Chunk {
	for i := range chunks {
		chunks[i].Metadata = domain.Payload{
			DocumentID:  pub.ID,
			Title:       pub.Title,
			ChunkSeq:    chunks[i].Seq,
			Year:        pub.Year,
			Organism:    pub.Organism,
			Environment: pub.Environment,
			Type:        domain.ChunkTypePublication,
			Text:        chunks[i].Text,
		}
	}
	return chunks
}
