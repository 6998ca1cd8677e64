package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/biorag/internal/domain"
	"github.com/cloo-solutions/biorag/internal/telemetry"
)

// PublicationRepositoryInterface defines the repository interface for publication records
type PublicationRepositoryInterface interface {
	Upsert(ctx context.Context, p *domain.Publication) error
	GetByID(ctx context.Context, id string) (*domain.Publication, error)
	WriteSummaries(ctx context.Context, id string, s *domain.PublicationSummaries) error
	GetSummaries(ctx context.Context, id string) (*domain.PublicationSummaries, error)
}

// IngestionJobRepositoryInterface defines the repository interface for ingestion job persistence
type IngestionJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.IngestionJob) error
	GetByID(ctx context.Context, id string) (*domain.IngestionJob, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// PublicationService ties ingestion to the stored publication records.
type PublicationService struct {
	publications PublicationRepositoryInterface
	jobs         IngestionJobRepositoryInterface
	txRunner     TxRunner
	ingestion    *IngestionService
	index        VectorIndex
	uuidGen      UUIDGenerator
}

// NewPublicationService creates a new PublicationService instance
func NewPublicationService(
	publications PublicationRepositoryInterface,
	jobs IngestionJobRepositoryInterface,
	txRunner TxRunner,
	ingestion *IngestionService,
	index VectorIndex,
) *PublicationService {
	return NewPublicationServiceWithUUIDGen(publications, jobs, txRunner, ingestion, index, &DefaultUUIDGenerator{})
}

// NewPublicationServiceWithUUIDGen creates a new PublicationService with custom UUID generator (for testing)
func NewPublicationServiceWithUUIDGen(
	publications PublicationRepositoryInterface,
	jobs IngestionJobRepositoryInterface,
	txRunner TxRunner,
	ingestion *IngestionService,
	index VectorIndex,
	uuidGen UUIDGenerator,
) *PublicationService {
	return &PublicationService{
		publications: publications,
		jobs:         jobs,
		txRunner:     txRunner,
		ingestion:    ingestion,
		index:        index,
		uuidGen:      uuidGen,
	}
}

// Save stores the source fields of a publication.
func (s *PublicationService) Save(ctx context.Context, p *domain.Publication) error {
	if strings.TrimSpace(p.ID) == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "publication id is required")
	}
	if _, err := domain.DocumentScope(p.ID); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid publication id", err)
	}
	return s.publications.Upsert(ctx, p)
}

// IngestByID loads a stored publication and ingests it, writing the summaries
// back to the same record.
func (s *PublicationService) IngestByID(ctx context.Context, id string) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "PublicationService.IngestByID", telemetry.SpanAttributes{
		DocumentID: id,
		Operation:  "ingest",
	})
	defer span.End()

	pub, err := s.publications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.ingestion.Ingest(ctx, IngestInputFromPublication(pub), s.publications)
}

// Enqueue records a pending ingestion job for a stored publication.
func (s *PublicationService) Enqueue(ctx context.Context, id string) (*domain.IngestionJob, error) {
	ctx, span := telemetry.StartSpan(ctx, "PublicationService.Enqueue", telemetry.SpanAttributes{
		DocumentID: id,
		Operation:  "enqueue",
	})
	defer span.End()

	job := domain.NewIngestionJob(
		s.uuidGen.NewString(),
		id,
		domain.IngestionJobStatusPending,
		0,
		"",
		time.Now().UTC(),
		nil,
	)
	if err := domain.ValidateIngestionJob(job); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid ingestion job", err)
	}

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if _, err := repos.Publications().GetByID(ctx, id); err != nil {
			return err
		}
		return repos.IngestionJobs().Create(ctx, job)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return job, nil
}

// GetJob returns an ingestion job by id.
func (s *PublicationService) GetJob(ctx context.Context, id string) (*domain.IngestionJob, error) {
	return s.jobs.GetByID(ctx, id)
}

// GetSummaries returns what the last successful ingestion wrote back.
func (s *PublicationService) GetSummaries(ctx context.Context, id string) (*domain.PublicationSummaries, error) {
	return s.publications.GetSummaries(ctx, id)
}

// HasIndex reports whether the publication has a per-document index.
func (s *PublicationService) HasIndex(ctx context.Context, id string) (bool, error) {
	scope, err := domain.DocumentScope(id)
	if err != nil {
		return false, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid publication id", err)
	}
	return s.index.Exists(ctx, scope)
}
