package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Comparison is the generated side-by-side reading of two publications.
type Comparison struct {
	MethodologyComparison string `json:"methodology_comparison"`
	ResultsComparison     string `json:"results_comparison"`
	ConclusionsComparison string `json:"conclusions_comparison"`
}

// Validate requires every comparison section.
func (c *Comparison) Validate() error {
	var errs []error
	for _, f := range []struct {
		name  string
		value string
	}{
		{"methodology_comparison", c.MethodologyComparison},
		{"results_comparison", c.ResultsComparison},
		{"conclusions_comparison", c.ConclusionsComparison},
	} {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", f.name))
		}
	}
	return errors.Join(errs...)
}

// ActionableInsight is one written-back insight with the publication it came
// from.
type ActionableInsight struct {
	PublicationID string `json:"publication_id"`
	Insight       string `json:"insight"`
}
