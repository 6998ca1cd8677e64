// Package cli implements the bioragd commands.
package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cloo-solutions/biorag/internal/config"
	"github.com/cloo-solutions/biorag/internal/database"
	"github.com/cloo-solutions/biorag/internal/logger"
	"github.com/cloo-solutions/biorag/internal/metrics"
	"github.com/cloo-solutions/biorag/internal/prompts"
	"github.com/cloo-solutions/biorag/internal/provider"
	"github.com/cloo-solutions/biorag/internal/repository"
	"github.com/cloo-solutions/biorag/internal/service"
	"github.com/cloo-solutions/biorag/internal/telemetry"
	"github.com/cloo-solutions/biorag/internal/vectorindex"
)

// app holds the dependencies shared by every command. Fields that need a
// database are nil when DATABASE_URL is unset.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	pool   *pgxpool.Pool

	index        *vectorindex.Manager
	ingestion    *service.IngestionService
	qa           *service.QAService
	search       *service.SearchService
	publications *service.PublicationService
	analytics    *service.AnalyticsService

	closers []func()
}

type appOptions struct {
	migrate       bool
	migrationsDir string
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (a *app, err error) {
	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a = &app{cfg: cfg, logger: log}
	a.closers = append(a.closers, func() { _ = log.Sync() })
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	metrics.Register()

	shutdownTelemetry, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate(cfg.Environment),
		Debug:            cfg.Debug,
	}, log)
	if err != nil {
		log.Warn("telemetry init failed, continuing without tracing", zap.Error(err))
	} else {
		a.closers = append(a.closers, shutdownTelemetry)
	}

	if cfg.HasDatabase() {
		if opts.migrate {
			if err := database.Migrate(cfg.DatabaseURL, opts.migrationsDir, log); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		a.pool, err = database.Open(ctx, cfg.DatabaseURL, database.PoolConfig{})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, a.pool.Close)
		log.Info("connected to database")
	}

	set, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		return nil, err
	}

	embedder, closeEmbedder, err := provider.NewEmbedder(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeEmbedder)

	generator, err := provider.NewGenerator(cfg)
	if err != nil {
		return nil, err
	}

	store, err := provider.NewIndexStore(ctx, cfg, a.pool, log)
	if err != nil {
		return nil, err
	}

	a.index = vectorindex.NewManager(embedder, store, log.Named("vectorindex"))
	extraction := service.NewExtractionService(generator, set, cfg.MaxExtractChars, log.Named("extraction"))
	a.ingestion = service.NewIngestionService(extraction, a.index,
		service.ChunkConfig{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}, log.Named("ingestion"))
	a.qa = service.NewQAService(a.index, generator, set, log.Named("qa"))
	a.search = service.NewSearchService(a.index, log.Named("search"))

	if a.pool != nil {
		a.publications = service.NewPublicationService(
			repository.NewPublicationRepository(a.pool),
			repository.NewIngestionJobRepository(a.pool),
			repository.NewTxRunner(a.pool),
			a.ingestion,
			a.index,
		)
		a.analytics = service.NewAnalyticsService(repository.NewPublicationRepository(a.pool), extraction, log.Named("analytics"))
	}

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Full sampling in development, 10% elsewhere.
func sampleRate(env string) float64 {
	if env == "development" {
		return 1.0
	}
	return 0.1
}
