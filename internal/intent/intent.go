package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/stockpilot/stockpilot/internal/observability"
	"github.com/stockpilot/stockpilot/internal/oracle"
)

type Kind string

const (
	LowStock   Kind = "low_stock"
	OutOfStock Kind = "out_of_stock"
	TopSelling Kind = "top_selling"
	Expensive  Kind = "expensive"
	Summary    Kind = "summary"
	Category   Kind = "category"
	Suppliers  Kind = "suppliers"
	Expired    Kind = "expired"
	General    Kind = "general"
)

type Mode string

const (
	ModeLLM     Mode = "llm"
	ModeKeyword Mode = "keyword"
)

type Intent struct {
	Kind       Kind    `json:"kind"`
	Category   string  `json:"category,omitempty"`
	Limit      int     `json:"limit,omitempty"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

type Classifier struct {
	oracle oracle.Oracle
	mode   Mode
	logger *slog.Logger
}

func NewClassifier(o oracle.Oracle, mode Mode, logger *slog.Logger) *Classifier {
	if o == nil {
		mode = ModeKeyword
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Classifier{oracle: o, mode: mode, logger: logger}
}

// Classify asks the oracle in LLM mode and falls back to keyword matching when the
// call or its JSON fails.
func (c *Classifier) Classify(ctx context.Context, text string) Intent {
	if c.mode != ModeLLM {
		return Keyword(text)
	}
	classified, err := c.classify(ctx, text)
	if err != nil {
		observability.IncrementDegraded("intent")
		observability.LoggerWithTrace(ctx, c.logger).WarnContext(ctx, "intent classification fell back to keywords", slog.Any("error", err))
		return Keyword(text)
	}
	return classified
}

var llmKinds = map[string]Kind{
	"inventory_summary": Summary,
	"summary":           Summary,
	"low_stock":         LowStock,
	"top_selling":       TopSelling,
	"expensive_items":   Expensive,
	"expensive":         Expensive,
	"suppliers":         Suppliers,
	"out_of_stock":      OutOfStock,
	"categories":        Category,
	"category":          Category,
	"expired":           Expired,
}

func (c *Classifier) classify(ctx context.Context, text string) (Intent, error) {
	reply, err := c.oracle.Complete(ctx, prompt(text))
	if err != nil {
		return Intent{}, fmt.Errorf("request intent: %w", err)
	}
	var decoded struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
		Parameters struct {
			Category string `json:"category"`
			Limit    int    `json:"limit"`
		} `json:"parameters"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(oracle.StripCodeFences(reply)), &decoded); err != nil {
		return Intent{}, fmt.Errorf("decode intent: %w", err)
	}
	kind, ok := llmKinds[strings.ToLower(strings.TrimSpace(decoded.Intent))]
	if !ok {
		kind = General
	}
	return Intent{
		Kind:       kind,
		Category:   strings.TrimSpace(decoded.Parameters.Category),
		Limit:      decoded.Parameters.Limit,
		Confidence: decoded.Confidence,
		Reasoning:  decoded.Reasoning,
	}, nil
}

func prompt(text string) string {
	return fmt.Sprintf(`Analyze this inventory management query and determine the user's intent:
Query: %q

Available query types:
- inventory_summary: Overall inventory statistics and health
- low_stock: Items that need reordering (quantity < threshold)
- top_selling: Best performing items by sales velocity
- expensive_items: Highest priced items
- suppliers: Supplier information and ratings
- out_of_stock: Items with zero quantity
- categories: Items in a specific category
- expired: Items past their expiry date
- general: Anything else

Respond with ONLY a JSON object like this:
{
  "intent": "query_type_here",
  "confidence": 0.9,
  "parameters": {
    "category": "optional category filter",
    "limit": 5
  },
  "reasoning": "Brief explanation of why this intent was chosen"
}`, text)
}

type rule struct {
	kind     Kind
	limit    int
	keywords []string
}

// Rules are checked in order; more specific phrases come before broad ones such
// as "total".
var rules = []rule{
	{kind: OutOfStock, limit: 10, keywords: []string{"out of stock", "zero stock", "sold out"}},
	{kind: LowStock, limit: 10, keywords: []string{"low stock", "running low", "need reorder", "reorder", "low on"}},
	{kind: TopSelling, limit: 5, keywords: []string{"best sell", "top sell", "popular", "selling the most"}},
	{kind: Expensive, limit: 5, keywords: []string{"expensive", "costly", "highest price"}},
	{kind: Suppliers, keywords: []string{"supplier", "vendor"}},
	{kind: Expired, limit: 10, keywords: []string{"expired", "past expiry", "out of date"}},
	{kind: Summary, keywords: []string{"summary", "overview", "total"}},
}

var categoryPattern = regexp.MustCompile(`\b(?:in|from|for)\s+(?:the\s+)?([a-z][a-z& ]*?)\s+(?:category|section|department)\b`)

// Keyword classifies text by phrase matching alone.
func Keyword(text string) Intent {
	lowered := strings.ToLower(text)
	for _, r := range rules {
		for _, keyword := range r.keywords {
			if strings.Contains(lowered, keyword) {
				return Intent{Kind: r.kind, Limit: r.limit, Confidence: 0.9, Reasoning: fmt.Sprintf("query mentions %q", keyword)}
			}
		}
	}
	if match := categoryPattern.FindStringSubmatch(lowered); match != nil {
		return Intent{Kind: Category, Category: strings.TrimSpace(match[1]), Limit: 10, Confidence: 0.8, Reasoning: "query names a category"}
	}
	return Intent{Kind: General, Confidence: 0.3, Reasoning: "no keyword matched"}
}
