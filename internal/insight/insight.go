package insight

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

const FallbackText = "I found the data you requested, but had trouble analyzing it. Please try rephrasing your question."

const defaultMaxRows = 200

type Insight struct {
	Text     string `json:"text"`
	Degraded bool   `json:"degraded"`
}

type Generator struct {
	oracle  oracle.Oracle
	maxRows int
	logger  *slog.Logger
}

// NewGenerator builds a Generator. maxRows bounds how many result rows are embedded
// in the prompt; values <= 0 use the default.
func NewGenerator(o oracle.Oracle, maxRows int, logger *slog.Logger) *Generator {
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Generator{oracle: o, maxRows: maxRows, logger: logger}
}

// Generate never fails. Oracle errors and empty replies degrade to FallbackText.
func (g *Generator) Generate(ctx context.Context, question string, rows []inventory.Row) Insight {
	prompt, err := g.prompt(question, rows)
	if err == nil {
		var reply string
		reply, err = g.oracle.Complete(ctx, prompt)
		if err == nil {
			if text := strings.TrimSpace(reply); text != "" {
				return Insight{Text: text}
			}
			err = fmt.Errorf("empty insight reply")
		}
	}

	observability.IncrementDegraded("insight")
	observability.LoggerWithTrace(ctx, g.logger).WarnContext(ctx, "insight generation degraded", slog.Any("error", err))
	return Insight{Text: FallbackText, Degraded: true}
}

func (g *Generator) prompt(question string, rows []inventory.Row) (string, error) {
	if len(rows) > g.maxRows {
		rows = rows[:g.maxRows]
	}
	if rows == nil {
		rows = []inventory.Row{}
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("marshal insight rows: %w", err)
	}
	return fmt.Sprintf(`You are an AI inventory analyst. Based on the user's question and the query results, provide a helpful, conversational response.

User's Question: %q

Query Results: %s

Provide a clear, helpful response that:
1. Answers the user's question directly
2. Highlights key insights from the data
3. Uses a conversational tone
4. Formats numbers appropriately
5. Suggests actionable next steps if relevant

Response:`, question, payload), nil
}
