package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cloo-solutions/biorag/internal/domain"
)

// maxCompareChars bounds the text of each publication in a comparison prompt
// when it has no summaries yet.
const maxCompareChars = 6000

// AnalyticsRepository reads the stored publications and their write-backs.
type AnalyticsRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Publication, error)
	GetSummaries(ctx context.Context, id string) (*domain.PublicationSummaries, error)
	ListActionableInsights(ctx context.Context) ([]domain.ActionableInsight, error)
}

// AnalyticsService works across stored publications: pairwise comparison and
// the collected actionable insights.
type AnalyticsService struct {
	publications AnalyticsRepository
	extractor    *ExtractionService
	logger       *zap.Logger
}

func NewAnalyticsService(publications AnalyticsRepository, extractor *ExtractionService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{publications: publications, extractor: extractor, logger: logger}
}

// Compare compares two distinct publications. Summaries written back by
// ingestion are used when present, otherwise the start of the full text.
func (s *AnalyticsService) Compare(ctx context.Context, firstID, secondID string) (*domain.Comparison, error) {
	firstID, secondID = strings.TrimSpace(firstID), strings.TrimSpace(secondID)
	if firstID == "" || secondID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "two publication ids are required")
	}
	if firstID == secondID {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "cannot compare a publication with itself")
	}

	first, err := s.describe(ctx, firstID)
	if err != nil {
		return nil, err
	}
	second, err := s.describe(ctx, secondID)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("comparing publications",
		zap.String("first", firstID),
		zap.String("second", secondID),
	)
	return s.extractor.Compare(ctx, first, second)
}

// Insights returns every written-back actionable insight, grouped by
// publication.
func (s *AnalyticsService) Insights(ctx context.Context) ([]domain.ActionableInsight, error) {
	insights, err := s.publications.ListActionableInsights(ctx)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	if insights == nil {
		insights = []domain.ActionableInsight{}
	}
	return insights, nil
}

func (s *AnalyticsService) describe(ctx context.Context, id string) (string, error) {
	pub, err := s.publications.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("load publication %s: %w", id, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\nAbstract: %s\n", pub.Title, pub.Abstract)

	summaries, err := s.publications.GetSummaries(ctx, id)
	switch {
	case err == nil:
		fmt.Fprintf(&b, "Summary: %s\nFindings: %s\nMission relevance: %s\n",
			summaries.AbstractSummary, summaries.ScientistSummary, summaries.MissionArchitectSummary)
	case domain.CodeOf(err) == domain.ErrCodeNotFound:
		fmt.Fprintf(&b, "Content: %s\n", truncateRunes(pub.Text, maxCompareChars))
	default:
		return "", fmt.Errorf("load summaries %s: %w", id, err)
	}
	return b.String(), nil
}
