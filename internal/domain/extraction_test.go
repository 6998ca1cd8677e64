package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validExtraction() *StructuredExtraction {
	return &StructuredExtraction{
		AbstractSummary:         "Mice lose bone mass in microgravity.",
		ScientistSummary:        "Femoral density fell 12%.",
		InvestorSummary:         "Countermeasure market exists.",
		MissionArchitectSummary: "Plan exercise hardware.",
		KnowledgeGraph: &KnowledgeGraph{
			Nodes: []KnowledgeGraphNode{{ID: "mice", Type: "organism"}, {ID: "bone loss", Type: "phenotype"}},
			Edges: []KnowledgeGraphEdge{{Source: "mice", Target: "bone loss", Relation: "exhibit"}},
		},
		FAQs: []FAQ{{Question: "What organism?", Answer: "Mice."}},
		Tags: []string{"bone", "microgravity"},
	}
}

func TestStructuredExtraction_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(x *StructuredExtraction)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(x *StructuredExtraction) {},
		},
		{
			name:   "empty graph and lists are allowed",
			mutate: func(x *StructuredExtraction) { x.KnowledgeGraph = &KnowledgeGraph{Nodes: []KnowledgeGraphNode{}, Edges: []KnowledgeGraphEdge{}}; x.FAQs = []FAQ{}; x.Tags = []string{} },
		},
		{
			name:    "missing summary",
			mutate:  func(x *StructuredExtraction) { x.InvestorSummary = "  " },
			wantErr: "investor_summary is required",
		},
		{
			name:    "missing knowledge graph",
			mutate:  func(x *StructuredExtraction) { x.KnowledgeGraph = nil },
			wantErr: "knowledge_graph is required",
		},
		{
			name: "edge to undeclared node",
			mutate: func(x *StructuredExtraction) {
				x.KnowledgeGraph.Edges = append(x.KnowledgeGraph.Edges, KnowledgeGraphEdge{Source: "mice", Target: "radiation", Relation: "exposed_to"})
			},
			wantErr: `target "radiation" is not a declared node`,
		},
		{
			name: "duplicate node id",
			mutate: func(x *StructuredExtraction) {
				x.KnowledgeGraph.Nodes = append(x.KnowledgeGraph.Nodes, KnowledgeGraphNode{ID: "mice", Type: "organism"})
			},
			wantErr: "is duplicated",
		},
		{
			name:    "missing tags",
			mutate:  func(x *StructuredExtraction) { x.Tags = nil },
			wantErr: "tags is required",
		},
		{
			name:    "half empty faq",
			mutate:  func(x *StructuredExtraction) { x.FAQs = []FAQ{{Question: "Why?"}} },
			wantErr: "faqs[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := validExtraction()
			tt.mutate(x)
			err := x.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInsightsList_Validate(t *testing.T) {
	assert.Error(t, (&InsightsList{}).Validate())
	assert.NoError(t, (&InsightsList{Insights: []string{}}).Validate())
}
