package chart

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/stockpilot/stockpilot/internal/inventory"
	"github.com/stockpilot/stockpilot/internal/observability"
	"github.com/stockpilot/stockpilot/internal/oracle"
)

const (
	FallbackInsight   = "I analyzed your inventory data but encountered an issue generating visualizations."
	DefaultSampleRows = 50
	maxDirectives     = 3
)

type Plan struct {
	Insight    string      `json:"insight"`
	Directives []Directive `json:"directives"`
	Degraded   bool        `json:"degraded"`
}

type Planner struct {
	oracle     oracle.Oracle
	sampleRows int
	logger     *slog.Logger
}

func NewPlanner(o oracle.Oracle, sampleRows int, logger *slog.Logger) *Planner {
	if sampleRows <= 0 {
		sampleRows = DefaultSampleRows
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Planner{oracle: o, sampleRows: sampleRows, logger: logger}
}

type planReply struct {
	Insights string `json:"insights"`
	Charts   []struct {
		Type           string `json:"type"`
		Title          string `json:"title"`
		Description    string `json:"description"`
		DataProcessing struct {
			GroupBy         string `json:"groupBy"`
			AggregateBy     string `json:"aggregateBy"`
			AggregateColumn string `json:"aggregateColumn"`
			SortBy          string `json:"sortBy"`
			Limit           int    `json:"limit"`
		} `json:"dataProcessing"`
	} `json:"charts"`
}

// Plan asks the oracle for up to three chart directives over a sample of rows. It
// never returns an error; failures produce FallbackInsight and no directives.
func (p *Planner) Plan(ctx context.Context, question string, rows []inventory.Row) Plan {
	plan, err := p.plan(ctx, question, rows)
	if err != nil {
		observability.IncrementDegraded("chart")
		observability.LoggerWithTrace(ctx, p.logger).WarnContext(ctx, "chart planning degraded", slog.Any("error", err))
		return Plan{Insight: FallbackInsight, Directives: []Directive{}, Degraded: true}
	}
	return plan
}

func (p *Planner) plan(ctx context.Context, question string, rows []inventory.Row) (Plan, error) {
	prompt, err := p.prompt(question, rows)
	if err != nil {
		return Plan{}, err
	}
	reply, err := p.oracle.Complete(ctx, prompt)
	if err != nil {
		return Plan{}, fmt.Errorf("request chart plan: %w", err)
	}

	var decoded planReply
	if err := json.Unmarshal([]byte(oracle.StripCodeFences(reply)), &decoded); err != nil {
		return Plan{}, fmt.Errorf("decode chart plan: %w", err)
	}

	plan := Plan{Insight: strings.TrimSpace(decoded.Insights), Directives: []Directive{}}
	for _, chart := range decoded.Charts {
		if len(plan.Directives) == maxDirectives {
			break
		}
		processing := chart.DataProcessing
		plan.Directives = append(plan.Directives, Directive{
			Type:            normalizeType(strings.ToLower(strings.TrimSpace(chart.Type))),
			Title:           chart.Title,
			Description:     chart.Description,
			GroupBy:         strings.TrimSpace(processing.GroupBy),
			Aggregate:       normalizeAggregate(strings.ToLower(strings.TrimSpace(processing.AggregateBy))),
			AggregateColumn: strings.TrimSpace(processing.AggregateColumn),
			SortDirection:   strings.ToLower(strings.TrimSpace(processing.SortBy)),
			Limit:           processing.Limit,
		})
	}
	return plan, nil
}

func (p *Planner) prompt(question string, rows []inventory.Row) (string, error) {
	sample := rows
	if len(sample) > p.sampleRows {
		sample = sample[:p.sampleRows]
	}
	if sample == nil {
		sample = []inventory.Row{}
	}
	payload, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal chart sample: %w", err)
	}
	return fmt.Sprintf(`You are an expert data visualization analyst. Analyze the provided inventory data and generate appropriate chart configurations based on the user's query.

User Query: %q

Sample Inventory Data (first %d items): %s

Full Dataset Size: %d items

Available columns: %s

Return a JSON response with the following structure:

{
  "insights": "A brief analysis of what the data shows relevant to the user's query",
  "charts": [
    {
      "type": "pie|bar|line|doughnut",
      "title": "Chart Title",
      "description": "What this chart shows",
      "dataProcessing": {
        "groupBy": "column_name_to_group_by",
        "aggregateBy": "count|sum|avg",
        "aggregateColumn": "column_name_to_aggregate (if not count)",
        "sortBy": "asc|desc",
        "limit": 10
      }
    }
  ]
}

Guidelines:
1. Pie/Doughnut for categorical distributions, Bar for comparisons and rankings, Line for trends
2. Suggest 1-3 relevant charts maximum
3. Focus on insights that directly answer the user's query
4. Use column names that exist in the data
5. Return valid JSON only, no markdown formatting

Response:`, question, p.sampleRows, payload, len(rows), strings.Join(inventory.ColumnNames(), ", ")), nil
}
