package jobs

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cloo-solutions/biorag/internal/domain"
	"github.com/cloo-solutions/biorag/internal/metrics"
	"github.com/cloo-solutions/biorag/internal/service"
	"github.com/cloo-solutions/biorag/internal/telemetry"
)

const (
	// MaxRetries is the maximum number of attempts for a job failing with a
	// provider error. Other failures are not retried.
	MaxRetries = 3

	claimBatchSize = 10
)

// IngestionJobRepository defines the interface for ingestion job persistence
type IngestionJobRepository interface {
	// ClaimPending moves pending jobs to processing and returns them
	ClaimPending(ctx context.Context, limit int) ([]*domain.IngestionJob, error)

	UpdateStatus(ctx context.Context, id string, status domain.IngestionJobStatus, errMsg string) error

	IncrementRetries(ctx context.Context, id string) error
}

// PublicationIngester ingests a stored publication by id
type PublicationIngester interface {
	IngestByID(ctx context.Context, id string) (*service.IngestResult, error)
}

// IngestionWorker processes ingestion jobs
type IngestionWorker struct {
	repo     IngestionJobRepository
	ingester PublicationIngester
	logger   *zap.Logger
}

// NewIngestionWorker creates a new IngestionWorker instance
func NewIngestionWorker(repo IngestionJobRepository, ingester PublicationIngester, logger *zap.Logger) *IngestionWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestionWorker{
		repo:     repo,
		ingester: ingester,
		logger:   logger,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IngestionWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.ClaimPending(ctx, claimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	w.logger.Info("processing pending ingestion jobs", zap.Int("count", len(jobs)))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			w.logger.Error("error processing job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}

	return nil
}

func (w *IngestionWorker) processJob(ctx context.Context, job *domain.IngestionJob) error {
	log := w.logger.With(zap.String("job_id", job.ID), zap.String("publication_id", job.PublicationID))
	log.Info("processing ingestion job")

	res, err := w.ingester.IngestByID(ctx, job.PublicationID)
	if err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestionJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}
	metrics.IngestionJobsTotal.WithLabelValues("completed").Inc()

	log.Info("ingestion job completed", zap.Int("chunks", res.Chunks))
	return nil
}

// handleJobFailure retries provider failures and fails everything else
func (w *IngestionWorker) handleJobFailure(ctx context.Context, job *domain.IngestionJob, jobErr error) error {
	log := w.logger.With(zap.String("job_id", job.ID), zap.Error(jobErr))

	if !errors.Is(jobErr, domain.ErrProvider) {
		log.Warn("ingestion job failed, not retryable")
		telemetry.CaptureError(ctx, jobErr)
		return w.fail(ctx, job, jobErr.Error())
	}

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		log.Warn("ingestion job exceeded max retries", zap.Int("max_retries", MaxRetries))
		telemetry.CaptureError(ctx, jobErr)
		return w.fail(ctx, job, fmt.Sprintf("max retries exceeded: %v", jobErr))
	}

	log.Info("ingestion job will be retried", zap.Int32("attempt", job.Retries+1))
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestionJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}
	metrics.IngestionJobsTotal.WithLabelValues("retried").Inc()

	return nil
}

func (w *IngestionWorker) fail(ctx context.Context, job *domain.IngestionJob, errMsg string) error {
	if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestionJobStatusFailed, errMsg); err != nil {
		return fmt.Errorf("failed to update job status to failed: %w", err)
	}
	metrics.IngestionJobsTotal.WithLabelValues("failed").Inc()
	return nil
}
