package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloo-solutions/biorag/internal/api/handlers"
	"github.com/cloo-solutions/biorag/internal/jobs"
	"github.com/cloo-solutions/biorag/internal/repository"
	"github.com/cloo-solutions/biorag/internal/server"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the biorag API server. With DATABASE_URL set, publication routes and the ingestion worker are enabled.",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (default from PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations", "migrations", "Directory containing migration files")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	migrationsDir, _ := cmd.Flags().GetString("migrations")

	a, err := newApp(ctx, cfg, appOptions{migrate: !noMigrate, migrationsDir: migrationsDir})
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.logger

	routerCfg := server.RouterConfig{
		Logger:        log,
		QAHandler:     handlers.NewQAHandler(a.qa),
		SearchHandler: handlers.NewSearchHandler(a.search),
		HealthChecks:  map[string]handlers.Pinger{},
	}

	var worker *jobs.Worker
	if a.publications != nil {
		routerCfg.PublicationHandler = handlers.NewPublicationHandler(a.publications)
		routerCfg.AnalyticsHandler = handlers.NewAnalyticsHandler(a.analytics)
		routerCfg.HealthChecks["database"] = a.pool

		processor := jobs.NewIngestionWorker(repository.NewIngestionJobRepository(a.pool), a.publications, log.Named("jobs"))
		worker = jobs.NewWorker(processor, cfg.WorkerPollInterval, log.Named("worker"))
		go worker.Start(ctx)
	} else {
		log.Info("DATABASE_URL not set, publication and analytics routes and ingestion worker disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	if worker != nil {
		worker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}
