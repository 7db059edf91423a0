package chart

import (
	"context"

	"github.com/stockpilot/stockpilot/internal/inventory"
)

type Charts struct {
	Insight  string   `json:"insight"`
	Series   []Series `json:"series"`
	Degraded bool     `json:"degraded"`
}

// Synthesizer plans charts from a sample and builds them from the full row set.
type Synthesizer struct {
	planner *Planner
}

func NewSynthesizer(planner *Planner) *Synthesizer {
	return &Synthesizer{planner: planner}
}

func (s *Synthesizer) Synthesize(ctx context.Context, question string, rows []inventory.Row) Charts {
	plan := s.planner.Plan(ctx, question, rows)
	charts := Charts{Insight: plan.Insight, Series: make([]Series, 0, len(plan.Directives)), Degraded: plan.Degraded}
	for _, directive := range plan.Directives {
		charts.Series = append(charts.Series, Build(rows, directive))
	}
	return charts
}
