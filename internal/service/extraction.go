package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/cloo-solutions/biorag/internal/domain"
	"github.com/cloo-solutions/biorag/internal/metrics"
	"github.com/cloo-solutions/biorag/internal/prompts"
	"github.com/cloo-solutions/biorag/internal/telemetry"
)

const (
	// DefaultMaxExtractChars bounds the full text sent for primary extraction.
	DefaultMaxExtractChars = 120000
	// MaxInsightsChars bounds the text sent for insights extraction.
	MaxInsightsChars = 12000

	schemaExtraction = "extraction"
	schemaInsights   = "insights"
	schemaComparison = "comparison"
)

var errTrailingData = errors.New("unexpected data after JSON value")

// ExtractionInput is the publication content sent for primary extraction.
type ExtractionInput struct {
	DocumentID string
	Title      string
	Abstract   string
	Text       string
}

// ExtractionService turns publication text into validated structured output.
// Every malformed response gets exactly one repair attempt.
type ExtractionService struct {
	generator Generator
	prompts   *prompts.Set
	maxChars  int
	logger    *zap.Logger
}

// NewExtractionService creates a new ExtractionService. A nil prompt set uses
// the defaults and maxChars <= 0 uses DefaultMaxExtractChars.
func NewExtractionService(generator Generator, set *prompts.Set, maxChars int, logger *zap.Logger) *ExtractionService {
	if set == nil {
		set = prompts.Default()
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxExtractChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExtractionService{
		generator: generator,
		prompts:   set,
		maxChars:  maxChars,
		logger:    logger,
	}
}

// Extract runs the primary structured extraction. It fails with a
// SCHEMA_VALIDATION error when the repaired output is still invalid, and with
// a PROVIDER_ERROR when generation itself fails.
func (s *ExtractionService) Extract(ctx context.Context, in ExtractionInput) (*domain.StructuredExtraction, error) {
	ctx, span := telemetry.StartSpan(ctx, "ExtractionService.Extract", telemetry.SpanAttributes{
		DocumentID: in.DocumentID,
		Operation:  "extract",
	})
	defer span.End()

	user := prompts.Render(s.prompts.ExtractionUser, map[string]string{
		"title":    in.Title,
		"abstract": in.Abstract,
		"content":  truncateRunes(in.Text, s.maxChars),
		"format":   s.prompts.ExtractionFormat,
	})

	out, err := generateValidated[domain.StructuredExtraction](ctx, s, schemaExtraction,
		s.prompts.ExtractionSystem, user, s.prompts.ExtractionFormat)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return out, nil
}

// ExtractInsights runs the secondary insights extraction. It never fails:
// any error is logged and yields an empty list.
func (s *ExtractionService) ExtractInsights(ctx context.Context, text string) []string {
	ctx, span := telemetry.StartSpan(ctx, "ExtractionService.ExtractInsights", telemetry.SpanAttributes{
		Operation: "extract_insights",
	})
	defer span.End()

	user := prompts.Render(s.prompts.InsightsUser, map[string]string{
		"text":   truncateRunes(text, MaxInsightsChars),
		"format": s.prompts.InsightsFormat,
	})

	out, err := generateValidated[domain.InsightsList](ctx, s, schemaInsights,
		s.prompts.InsightsSystem, user, s.prompts.InsightsFormat)
	if err != nil {
		s.logger.Warn("insights extraction failed, continuing without insights", zap.Error(err))
		return []string{}
	}
	return out.Insights
}

// Compare generates a structured comparison of two publication descriptions.
// Failures are reported like Extract failures.
func (s *ExtractionService) Compare(ctx context.Context, first, second string) (*domain.Comparison, error) {
	ctx, span := telemetry.StartSpan(ctx, "ExtractionService.Compare", telemetry.SpanAttributes{
		Operation: "compare",
	})
	defer span.End()

	user := prompts.Render(s.prompts.CompareUser, map[string]string{
		"first":  first,
		"second": second,
		"format": s.prompts.CompareFormat,
	})

	out, err := generateValidated[domain.Comparison](ctx, s, schemaComparison,
		s.prompts.CompareSystem, user, s.prompts.CompareFormat)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return out, nil
}

// validated is implemented by pointers to generated output types.
type validated[T any] interface {
	*T
	Validate() error
}

// generateValidated generates, parses and validates one value of T. A parse or
// validation failure triggers a single repair call carrying the malformed
// output and the problems found.
func generateValidated[T any, PT validated[T]](
	ctx context.Context,
	s *ExtractionService,
	schema, system, user, format string,
) (*T, error) {
	raw, err := s.generate(ctx, system, user)
	if err != nil {
		return nil, err
	}

	first := PT(new(T))
	problems := decodeStrict(raw, first)
	if problems == nil {
		return (*T)(first), nil
	}

	s.logger.Info("generated output failed validation, attempting repair",
		zap.String("schema", schema),
		zap.Error(problems),
	)

	repairPrompt := prompts.Render(s.prompts.RepairUser, map[string]string{
		"output":   raw,
		"problems": problems.Error(),
		"format":   format,
	})
	fixed, err := s.generate(ctx, s.prompts.RepairSystem, repairPrompt)
	if err != nil {
		metrics.ExtractionRepairsTotal.WithLabelValues(schema, "failed").Inc()
		return nil, err
	}

	second := PT(new(T))
	if err := decodeStrict(fixed, second); err != nil {
		metrics.ExtractionRepairsTotal.WithLabelValues(schema, "failed").Inc()
		return nil, domain.SchemaValidationError(fmt.Errorf("%s after repair: %w", schema, err))
	}
	metrics.ExtractionRepairsTotal.WithLabelValues(schema, "repaired").Inc()
	return (*T)(second), nil
}

func (s *ExtractionService) generate(ctx context.Context, system, prompt string) (string, error) {
	out, err := s.generator.Generate(ctx, system, prompt)
	if err != nil {
		if domain.CodeOf(err) == "" && ctx.Err() == nil {
			return "", domain.ProviderError("generate", err)
		}
		return "", err
	}
	return out, nil
}

// decodeStrict parses exactly one JSON value with no unknown fields into out
// and validates it. Markdown code fences around the value are ignored.
func decodeStrict[PT interface{ Validate() error }](raw string, out PT) error {
	dec := json.NewDecoder(strings.NewReader(stripFences(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return out.Validate()
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
