package domain

import (
	"strings"
	"time"
)

// Publication is the externally owned document record. The core only reads
// these fields; summaries are written back through a RecordWriter.
type Publication struct {
	ID          string
	Title       string
	Abstract    string
	Text        string
	Year        string
	Organism    string
	Environment string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PublicationSummaries is the full set of fields written back to the
// publication record after a successful ingestion. It is written in one call.
type PublicationSummaries struct {
	AbstractSummary         string              `json:"abstract_summary"`
	ScientistSummary        string              `json:"scientist_summary"`
	InvestorSummary         string              `json:"investor_summary"`
	MissionArchitectSummary string              `json:"mission_architect_summary"`
	KnowledgeGraph          KnowledgeGraph      `json:"knowledge_graph"`
	ScientificProgress      *ScientificProgress `json:"scientific_progress,omitempty"`
	KnowledgeGaps           *KnowledgeGaps      `json:"knowledge_gaps,omitempty"`
	Consensus               *Consensus          `json:"consensus,omitempty"`
	FAQs                    []FAQ               `json:"faqs"`
	Tags                    []string            `json:"tags"`
	ActionableInsights      []string            `json:"actionable_insights"`
}

// NewPublicationSummaries builds the write-back bundle from an extraction and
// the best-effort insights list.
func NewPublicationSummaries(x *StructuredExtraction, insights []string) *PublicationSummaries {
	if insights == nil {
		insights = []string{}
	}
	var graph KnowledgeGraph
	if x.KnowledgeGraph != nil {
		graph = *x.KnowledgeGraph
	}
	return &PublicationSummaries{
		AbstractSummary:         x.AbstractSummary,
		ScientistSummary:        x.ScientistSummary,
		InvestorSummary:         x.InvestorSummary,
		MissionArchitectSummary: x.MissionArchitectSummary,
		KnowledgeGraph:          graph,
		ScientificProgress:      x.ScientificProgress,
		KnowledgeGaps:           x.KnowledgeGaps,
		Consensus:               x.Consensus,
		FAQs:                    x.FAQs,
		Tags:                    NormalizeTags(x.Tags),
		ActionableInsights:      insights,
	}
}

// NormalizeTags trims and lower-cases tags, dropping blanks and duplicates
// while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		name := strings.ToLower(strings.TrimSpace(t))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
