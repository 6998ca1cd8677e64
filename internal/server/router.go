package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cloo-solutions/biorag/internal/api/handlers"
	"github.com/cloo-solutions/biorag/internal/api/middleware"
	"github.com/cloo-solutions/biorag/internal/metrics"
)

type RouterConfig struct {
	Logger             *zap.Logger
	QAHandler          *handlers.QAHandler
	SearchHandler      *handlers.SearchHandler
	PublicationHandler *handlers.PublicationHandler // nil without a database
	AnalyticsHandler   *handlers.AnalyticsHandler   // nil without a database
	HealthChecks       map[string]handlers.Pinger
}

const (
	// Publication bodies carry full text.
	publicationBodyBytes int64 = 50 << 20
	queryBodyBytes       int64 = 64 << 10
)

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r.Use(middleware.Logger(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(metrics.Middleware())

	r.Get("/health", handlers.Health(cfg.HealthChecks))
	r.Handle("/metrics", promhttp.Handler())

	r.With(middleware.MaxBodyBytes(queryBodyBytes)).Post("/qa/single-doc", cfg.QAHandler.Ask)
	r.Get("/search/global", cfg.SearchHandler.Global)

	if cfg.PublicationHandler != nil {
		r.Route("/publications/{id}", func(r chi.Router) {
			r.Use(middleware.MaxBodyBytes(publicationBodyBytes))
			r.Put("/", cfg.PublicationHandler.Save)
			r.Post("/ingest", cfg.PublicationHandler.Ingest)
			r.Get("/summaries", cfg.PublicationHandler.GetSummaries)
		})
		r.Get("/jobs/{id}", cfg.PublicationHandler.GetJob)
	}

	if cfg.AnalyticsHandler != nil {
		r.Route("/analytics", func(r chi.Router) {
			r.Get("/compare", cfg.AnalyticsHandler.Compare)
			r.Get("/insights", cfg.AnalyticsHandler.Insights)
		})
	}

	return r
}
