package domain

import (
	"errors"
	"fmt"
	"strings"
)

// KnowledgeGraphNode is an entity in an extracted knowledge graph.
type KnowledgeGraphNode struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// KnowledgeGraphEdge relates two nodes by id.
type KnowledgeGraphEdge struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

// KnowledgeGraph holds the nodes and edges extracted from a publication.
type KnowledgeGraph struct {
	Nodes []KnowledgeGraphNode `json:"nodes"`
	Edges []KnowledgeGraphEdge `json:"edges"`
}

// ScientificProgress groups insight lists about advances in the field.
type ScientificProgress struct {
	RecentAdvances   []string `json:"recent_advances"`
	KeyBreakthroughs []string `json:"key_breakthroughs"`
	ImpactOnField    []string `json:"impact_on_field"`
}

// KnowledgeGaps groups gap lists.
type KnowledgeGaps struct {
	CurrentLimitations []string `json:"current_limitations"`
	ResearchNeeds      []string `json:"research_needs"`
	FutureDirections   []string `json:"future_directions"`
}

// Consensus groups consensus and debate lists.
type Consensus struct {
	ScientificConsensus   []string `json:"scientific_consensus"`
	AreasOfDebate         []string `json:"areas_of_debate"`
	CommunityPerspectives []string `json:"community_perspectives"`
}

// FAQ is a generated question and answer pair.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// StructuredExtraction is the schema-conforming bundle produced from a
// publication. It is either fully valid or rejected as a whole.
type StructuredExtraction struct {
	AbstractSummary         string              `json:"abstract_summary"`
	ScientistSummary        string              `json:"scientist_summary"`
	InvestorSummary         string              `json:"investor_summary"`
	MissionArchitectSummary string              `json:"mission_architect_summary"`
	KnowledgeGraph          *KnowledgeGraph     `json:"knowledge_graph"`
	ScientificProgress      *ScientificProgress `json:"scientific_progress,omitempty"`
	KnowledgeGaps           *KnowledgeGaps      `json:"knowledge_gaps,omitempty"`
	Consensus               *Consensus          `json:"consensus,omitempty"`
	FAQs                    []FAQ               `json:"faqs"`
	Tags                    []string            `json:"tags"`
}

// InsightsList is the secondary extraction schema.
type InsightsList struct {
	Insights []string `json:"insights"`
}

// Validate checks required fields and knowledge graph referential integrity.
// Every problem found is reported, joined into one error.
func (x *StructuredExtraction) Validate() error {
	var errs []error
	required := []struct {
		name  string
		value string
	}{
		{"abstract_summary", x.AbstractSummary},
		{"scientist_summary", x.ScientistSummary},
		{"investor_summary", x.InvestorSummary},
		{"mission_architect_summary", x.MissionArchitectSummary},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", f.name))
		}
	}

	if x.KnowledgeGraph == nil {
		errs = append(errs, errors.New("knowledge_graph is required"))
	} else {
		errs = append(errs, x.KnowledgeGraph.Validate()...)
	}

	if x.FAQs == nil {
		errs = append(errs, errors.New("faqs is required"))
	}
	for i, f := range x.FAQs {
		if strings.TrimSpace(f.Question) == "" || strings.TrimSpace(f.Answer) == "" {
			errs = append(errs, fmt.Errorf("faqs[%d] needs both question and answer", i))
		}
	}
	if x.Tags == nil {
		errs = append(errs, errors.New("tags is required"))
	}

	return errors.Join(errs...)
}

// Validate returns one error per malformed node or dangling edge.
func (g *KnowledgeGraph) Validate() []error {
	var errs []error
	if g.Nodes == nil {
		errs = append(errs, errors.New("knowledge_graph.nodes is required"))
	}
	if g.Edges == nil {
		errs = append(errs, errors.New("knowledge_graph.edges is required"))
	}

	declared := make(map[string]struct{}, len(g.Nodes))
	for i, n := range g.Nodes {
		if strings.TrimSpace(n.ID) == "" {
			errs = append(errs, fmt.Errorf("knowledge_graph.nodes[%d].id is required", i))
			continue
		}
		if _, dup := declared[n.ID]; dup {
			errs = append(errs, fmt.Errorf("knowledge_graph.nodes[%d].id %q is duplicated", i, n.ID))
		}
		declared[n.ID] = struct{}{}
	}
	for i, e := range g.Edges {
		if _, ok := declared[e.Source]; !ok {
			errs = append(errs, fmt.Errorf("knowledge_graph.edges[%d].source %q is not a declared node", i, e.Source))
		}
		if _, ok := declared[e.Target]; !ok {
			errs = append(errs, fmt.Errorf("knowledge_graph.edges[%d].target %q is not a declared node", i, e.Target))
		}
	}
	return errs
}

// Validate checks the insights list shape.
func (l *InsightsList) Validate() error {
	if l.Insights == nil {
		return errors.New("insights is required")
	}
	return nil
}
