package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cloo-solutions/biorag/internal/domain"
	"github.com/cloo-solutions/biorag/internal/telemetry"
)

// Extractor derives structured artifacts from publication text.
type Extractor interface {
	Extract(ctx context.Context, in ExtractionInput) (*domain.StructuredExtraction, error)
	ExtractInsights(ctx context.Context, text string) []string
}

// RecordWriter receives the summaries of an ingested publication in a single
// call. Implementations must write all fields or none.
type RecordWriter interface {
	WriteSummaries(ctx context.Context, publicationID string, s *domain.PublicationSummaries) error
}

// IngestInput is the publication content to ingest.
type IngestInput struct {
	DocumentID  string
	Title       string
	Abstract    string
	Text        string
	Year        string
	Organism    string
	Environment string
}

// IngestInputFromPublication copies the source fields of a publication.
func IngestInputFromPublication(p *domain.Publication) IngestInput {
	return IngestInput{
		DocumentID:  p.ID,
		Title:       p.Title,
		Abstract:    p.Abstract,
		Text:        p.Text,
		Year:        p.Year,
		Organism:    p.Organism,
		Environment: p.Environment,
	}
}

// IngestResult summarizes a completed ingestion.
type IngestResult struct {
	DocumentID string   `json:"publication_id"`
	Chunks     int      `json:"chunks"`
	Insights   int      `json:"insights"`
	Tags       []string `json:"tags"`
}

// IngestionService extracts, chunks and indexes publications.
type IngestionService struct {
	extractor Extractor
	index     VectorIndex
	chunkCfg  ChunkConfig
	logger    *zap.Logger
}

// NewIngestionService creates a new IngestionService instance
func NewIngestionService(extractor Extractor, index VectorIndex, chunkCfg ChunkConfig, logger *zap.Logger) *IngestionService {
	if !chunkCfg.Valid() {
		chunkCfg = DefaultChunkConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestionService{
		extractor: extractor,
		index:     index,
		chunkCfg:  chunkCfg,
		logger:    logger,
	}
}

// Ingest runs primary extraction before touching any index, so a failed
// extraction leaves no partial state. The per-document index is replaced and
// the global index appended before summaries go to w.
func (s *IngestionService) Ingest(ctx context.Context, in IngestInput, w RecordWriter) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Ingest", telemetry.SpanAttributes{
		DocumentID: in.DocumentID,
		Operation:  "ingest",
	})
	defer span.End()

	if strings.TrimSpace(in.Text) == "" {
		return nil, domain.ErrEmptyInput
	}
	scope, err := domain.DocumentScope(in.DocumentID)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid publication id", err)
	}

	log := s.logger.With(zap.String("publication_id", in.DocumentID))

	extraction, err := s.extractor.Extract(ctx, ExtractionInput{
		DocumentID: in.DocumentID,
		Title:      in.Title,
		Abstract:   in.Abstract,
		Text:       in.Text,
	})
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("extract publication: %w", err)
	}

	insights := s.extractor.ExtractInsights(ctx, in.Text)

	pub := &domain.Publication{
		ID:          in.DocumentID,
		Title:       in.Title,
		Year:        in.Year,
		Organism:    in.Organism,
		Environment: in.Environment,
	}
	chunks := attachPayloads(ChunkText(in.Text, s.chunkCfg), pub)

	if err := s.index.CreateOrReplace(ctx, scope, chunks); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("index publication: %w", err)
	}
	if err := s.index.AppendOrCreate(ctx, domain.GlobalScope, chunks); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("update global index: %w", err)
	}

	summaries := domain.NewPublicationSummaries(extraction, insights)
	if err := w.WriteSummaries(ctx, in.DocumentID, summaries); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("write summaries: %w", err)
	}

	log.Info("publication ingested",
		zap.Int("chunks", len(chunks)),
		zap.Int("insights", len(insights)),
		zap.Int("tags", len(summaries.Tags)),
	)

	return &IngestResult{
		DocumentID: in.DocumentID,
		Chunks:     len(chunks),
		Insights:   len(insights),
		Tags:       summaries.Tags,
	}, nil
}
