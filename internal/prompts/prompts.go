// Package prompts holds the instructions sent to the generation capability.
// Every prompt can be overridden from a YAML file; unset keys keep defaults.
package prompts

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Set is the full collection of prompts. Templates use {placeholder} markers
// filled by Render.
type Set struct {
	ExtractionSystem string `yaml:"extraction_system"`
	ExtractionUser   string `yaml:"extraction_user"`
	ExtractionFormat string `yaml:"extraction_format"`
	InsightsSystem   string `yaml:"insights_system"`
	InsightsUser     string `yaml:"insights_user"`
	InsightsFormat   string `yaml:"insights_format"`
	RepairSystem     string `yaml:"repair_system"`
	RepairUser       string `yaml:"repair_user"`
	QASystem         string `yaml:"qa_system"`
	QAUser           string `yaml:"qa_user"`
	CompareSystem    string `yaml:"compare_system"`
	CompareUser      string `yaml:"compare_user"`
	CompareFormat    string `yaml:"compare_format"`
}

// Default returns the built-in prompts.
func Default() *Set {
	return &Set{
		ExtractionSystem: "You are a precise assistant for scientific summarization. " +
			"Return ONLY valid JSON that conforms exactly to the schema and format instructions.\n" +
			"For the knowledge graph, identify key entities (organisms, conditions, concepts, technologies) " +
			"as nodes and their relationships as edges. Every edge source and target must be the id of a declared node.\n" +
			"For the FAQ section, generate 3-5 common questions and answers that a reader might have.",
		ExtractionUser: "Title: {title}\n\n" +
			"Abstract: {abstract}\n\n" +
			"Please analyze this scientific paper and provide the following structured information:\n\n" +
			"1. A concise summary of the abstract (not the full abstract)\n" +
			"2. A summary for scientists (max 70 words)\n" +
			"3. A summary for investors (max 70 words)\n" +
			"4. A summary for mission architects (max 70 words)\n" +
			"5. A knowledge graph with nodes (entities) and edges (relationships)\n" +
			"6. Scientific progress insights (recent advances, key breakthroughs, impact on field)\n" +
			"7. Knowledge gaps (current limitations, research needs, future directions)\n" +
			"8. Consensus and debates (scientific consensus, areas of debate, community perspectives)\n" +
			"9. 3-5 frequently asked questions with answers\n" +
			"10. A list of tags or keywords that summarize the paper\n\n" +
			"Paper Content (truncated if long):\n" +
			"{content}\n\n" +
			"IMPORTANT: Return ONLY valid JSON that matches the schema exactly.\n" +
			"FORMAT INSTRUCTIONS:\n{format}",
		ExtractionFormat: `Return one JSON object with exactly these keys:
{
  "abstract_summary": string,
  "scientist_summary": string,
  "investor_summary": string,
  "mission_architect_summary": string,
  "knowledge_graph": {"nodes": [{"id": string, "type": string}], "edges": [{"source": string, "target": string, "relation": string}]},
  "scientific_progress": {"recent_advances": [string], "key_breakthroughs": [string], "impact_on_field": [string]},
  "knowledge_gaps": {"current_limitations": [string], "research_needs": [string], "future_directions": [string]},
  "consensus": {"scientific_consensus": [string], "areas_of_debate": [string], "community_perspectives": [string]},
  "faqs": [{"question": string, "answer": string}],
  "tags": [string]
}
scientific_progress, knowledge_gaps and consensus may be omitted. No other keys are allowed.`,
		InsightsSystem: "You are an expert at extracting actionable insights, recommendations, and countermeasures " +
			"for mission planners from scientific papers. Extract a list of such insights from the provided text. " +
			"Focus on concrete actions, not general findings. " +
			"Return ONLY valid JSON that conforms exactly to the schema and format instructions.",
		InsightsUser:   "Text:\n{text}\n\nFORMAT INSTRUCTIONS:\n{format}",
		InsightsFormat: `Return one JSON object: {"insights": [string]}. No other keys are allowed.`,
		RepairSystem:   "Fix the JSON to match the schema exactly. Return ONLY valid JSON.",
		RepairUser:     "JSON to fix:\n{output}\n\nProblems found:\n{problems}\n\n{format}",
		QASystem: "You are an assistant for Q&A on a single NASA bioscience publication. " +
			"Answer **only** from the provided context. If unsure, say you don't know. " +
			"Return citations as [chunk #].",
		QAUser: "Question: {question}\n\nContext:\n{context}\n\nAnswer:",
		CompareSystem: "You are an expert at comparing two scientific papers. " +
			"Provide a detailed comparison of their methodologies, results, and conclusions. " +
			"Return ONLY valid JSON that conforms exactly to the schema and format instructions.",
		CompareUser:   "Paper 1:\n{first}\n\nPaper 2:\n{second}\n\nFORMAT INSTRUCTIONS:\n{format}",
		CompareFormat: `Return one JSON object with exactly these keys:
{"methodology_comparison": string, "results_comparison": string, "conclusions_comparison": string}
No other keys are allowed.`,
	}
}

// Load returns the defaults overlaid with the non-empty keys of the YAML file
// at path. An empty path returns the defaults.
func Load(path string) (*Set, error) {
	set := Default()
	if path == "" {
		return set, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}

	var override Set
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse prompts file %s: %w", path, err)
	}
	set.merge(&override)
	return set, nil
}

func (s *Set) merge(o *Set) {
	pick := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	pick(&s.ExtractionSystem, o.ExtractionSystem)
	pick(&s.ExtractionUser, o.ExtractionUser)
	pick(&s.ExtractionFormat, o.ExtractionFormat)
	pick(&s.InsightsSystem, o.InsightsSystem)
	pick(&s.InsightsUser, o.InsightsUser)
	pick(&s.InsightsFormat, o.InsightsFormat)
	pick(&s.RepairSystem, o.RepairSystem)
	pick(&s.RepairUser, o.RepairUser)
	pick(&s.QASystem, o.QASystem)
	pick(&s.QAUser, o.QAUser)
	pick(&s.CompareSystem, o.CompareSystem)
	pick(&s.CompareUser, o.CompareUser)
	pick(&s.CompareFormat, o.CompareFormat)
}

// Render replaces each {key} in tmpl with its value. Unknown markers are
// left untouched. Substitution is single pass, so values containing braces
// are never re-expanded.
func Render(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
