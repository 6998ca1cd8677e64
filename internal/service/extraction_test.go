package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/biorag/internal/domain"
)

func newTestExtractor(gen Generator) *ExtractionService {
	return NewExtractionService(gen, nil, 0, nil)
}

func TestExtract_ValidFirstTry(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{validExtractionJSON}}
	svc := newTestExtractor(gen)

	x, err := svc.Extract(context.Background(), ExtractionInput{Title: "Bone", Abstract: "abs", Text: "body"})
	require.NoError(t, err)
	assert.Equal(t, 1, gen.callCount())
	assert.Equal(t, "Microgravity alters bone density in mice.", x.AbstractSummary)
	require.NotNil(t, x.KnowledgeGraph)
	assert.Len(t, x.KnowledgeGraph.Nodes, 2)

	assert.Contains(t, gen.calls[0].Prompt, "Title: Bone")
	assert.Contains(t, gen.calls[0].Prompt, "Abstract: abs")
	assert.Contains(t, gen.calls[0].Prompt, "body")
}

func TestExtract_AcceptsCodeFence(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"```json\n" + validExtractionJSON + "\n```"}}

	_, err := newTestExtractor(gen).Extract(context.Background(), ExtractionInput{Text: "body"})
	require.NoError(t, err)
	assert.Equal(t, 1, gen.callCount())
}

func TestExtract_RepairSucceeds(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{`{"abstract_summary": "half`, validExtractionJSON}}

	x, err := newTestExtractor(gen).Extract(context.Background(), ExtractionInput{Text: "body"})
	require.NoError(t, err)
	assert.NotNil(t, x)
	require.Equal(t, 2, gen.callCount())

	repair := gen.calls[1]
	assert.Contains(t, repair.System, "Fix the JSON")
	assert.Contains(t, repair.Prompt, `{"abstract_summary": "half`)
	assert.Contains(t, repair.Prompt, "parse:")
}

func TestExtract_RepairFailsWithSchemaValidation(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"not json", "still not json", validExtractionJSON}}

	_, err := newTestExtractor(gen).Extract(context.Background(), ExtractionInput{Text: "body"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSchemaValidation))
	assert.Equal(t, 2, gen.callCount(), "exactly one repair attempt")
}

func TestExtract_ValidationProblemsTriggerRepair(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"dangling edge", danglingEdgeJSON, `"ghost" is not a declared node`},
		{"unknown field", strings.Replace(validExtractionJSON, `"tags"`, `"extra": 1, "tags"`, 1), "unknown field"},
		{"missing summary", strings.Replace(validExtractionJSON, "Plan for exercise hardware.", " ", 1), "mission_architect_summary is required"},
		{"trailing data", validExtractionJSON + " {}", "unexpected data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &scriptedGenerator{responses: []string{tt.output, tt.output}}

			_, err := newTestExtractor(gen).Extract(context.Background(), ExtractionInput{Text: "body"})
			require.Error(t, err)
			assert.Equal(t, domain.ErrCodeSchemaValidation, domain.CodeOf(err))
			assert.Contains(t, err.Error(), tt.want)
			require.Equal(t, 2, gen.callCount())
			assert.Contains(t, gen.calls[1].Prompt, tt.want)
		})
	}
}

func TestExtract_ProviderErrorIsNotRepaired(t *testing.T) {
	gen := &scriptedGenerator{errs: []error{errors.New("connection refused")}}

	_, err := newTestExtractor(gen).Extract(context.Background(), ExtractionInput{Text: "body"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProvider))
	assert.Equal(t, 1, gen.callCount())
}

func TestExtract_ProviderErrorDuringRepair(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []string{"garbage"},
		errs:      []error{nil, errors.New("timeout")},
	}

	_, err := newTestExtractor(gen).Extract(context.Background(), ExtractionInput{Text: "body"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProvider))
	assert.Equal(t, 2, gen.callCount())
}

func TestExtract_TruncatesText(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{validExtractionJSON}}
	text := strings.Repeat("é", DefaultMaxExtractChars+500)

	_, err := newTestExtractor(gen).Extract(context.Background(), ExtractionInput{Text: text})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxExtractChars, strings.Count(gen.calls[0].Prompt, "é"))
}

func TestExtract_CustomLimit(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{validExtractionJSON}}
	svc := NewExtractionService(gen, nil, 10, nil)

	_, err := svc.Extract(context.Background(), ExtractionInput{Text: strings.Repeat("é", 50)})
	require.NoError(t, err)
	assert.Equal(t, 10, strings.Count(gen.calls[0].Prompt, "é"))
}

func TestExtractInsights(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		gen := &scriptedGenerator{responses: []string{`{"insights": ["Schedule resistance exercise"]}`}}
		got := newTestExtractor(gen).ExtractInsights(context.Background(), "text")
		assert.Equal(t, []string{"Schedule resistance exercise"}, got)
	})

	t.Run("repaired", func(t *testing.T) {
		gen := &scriptedGenerator{responses: []string{`["bare list"]`, `{"insights": ["fixed"]}`}}
		got := newTestExtractor(gen).ExtractInsights(context.Background(), "text")
		assert.Equal(t, []string{"fixed"}, got)
		assert.Equal(t, 2, gen.callCount())
	})

	t.Run("invalid twice yields empty list", func(t *testing.T) {
		gen := &scriptedGenerator{responses: []string{`{"ideas": []}`, `{"ideas": []}`}}
		got := newTestExtractor(gen).ExtractInsights(context.Background(), "text")
		assert.NotNil(t, got)
		assert.Empty(t, got)
		assert.Equal(t, 2, gen.callCount())
	})

	t.Run("provider failure yields empty list", func(t *testing.T) {
		gen := &scriptedGenerator{errs: []error{errors.New("503")}}
		got := newTestExtractor(gen).ExtractInsights(context.Background(), "text")
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("truncates text", func(t *testing.T) {
		gen := &scriptedGenerator{responses: []string{`{"insights": []}`}}
		newTestExtractor(gen).ExtractInsights(context.Background(), strings.Repeat("é", MaxInsightsChars*2))
		assert.Equal(t, MaxInsightsChars, strings.Count(gen.calls[0].Prompt, "é"))
	})
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripFences("  {\"a\":1}  "))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "αβ", truncateRunes("αβγ", 2))
	assert.Equal(t, "αβγ", truncateRunes("αβγ", 3))
	assert.Equal(t, "αβγ", truncateRunes("αβγ", 10))
	assert.Equal(t, "αβγ", truncateRunes("αβγ", 0))
}
