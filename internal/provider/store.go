package provider

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cloo-solutions/biorag/internal/config"
	"github.com/cloo-solutions/biorag/internal/domain"
	"github.com/cloo-solutions/biorag/internal/repository"
	"github.com/cloo-solutions/biorag/internal/storage"
	"github.com/cloo-solutions/biorag/internal/vectorindex"
)

// NewIndexStore returns the index backend named by cfg.IndexBackend. The
// postgres backend needs pool; the others ignore it.
func NewIndexStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *zap.Logger) (vectorindex.Store, error) {
	switch cfg.IndexBackend {
	case config.IndexBackendFile:
		logger.Info("using file index store", zap.String("dir", cfg.IndicesDir))
		return storage.NewFileStore(cfg.IndicesDir), nil

	case config.IndexBackendS3:
		client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("create s3 client: %w", err)
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
		logger.Info("using s3 index store", zap.String("bucket", cfg.S3Bucket), zap.String("prefix", cfg.S3Prefix))
		return storage.NewS3Store(client.API(), client.Bucket(), cfg.S3Prefix), nil

	case config.IndexBackendPostgres:
		if pool == nil {
			return nil, fmt.Errorf("postgres index backend requires a database connection")
		}
		logger.Info("using postgres index store")
		return repository.NewVectorIndexRepository(pool), nil
	}

	return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrUnsupportedIndexStore.Message,
		fmt.Errorf("%q", cfg.IndexBackend))
}
