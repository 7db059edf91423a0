package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stockpilot/stockpilot/internal/oracle"
)

func TestKeyword(t *testing.T) {
	tests := []struct {
		text     string
		kind     Kind
		category string
	}{
		{text: "What items are running low?", kind: LowStock},
		{text: "How many items are out of stock in total", kind: OutOfStock},
		{text: "show me the best selling products", kind: TopSelling},
		{text: "which is the most EXPENSIVE item", kind: Expensive},
		{text: "who are my vendors", kind: Suppliers},
		{text: "anything expired?", kind: Expired},
		{text: "give me an overview", kind: Summary},
		{text: "what do we have in the home & garden category", kind: Category, category: "home & garden"},
		{text: "hello there", kind: General},
	}
	for _, tc := range tests {
		got := Keyword(tc.text)
		if got.Kind != tc.kind || got.Category != tc.category {
			t.Fatalf("Keyword(%q) = %+v, want kind %q category %q", tc.text, got, tc.kind, tc.category)
		}
	}
}

func TestClassifyUsesOracleJSON(t *testing.T) {
	classifier := NewClassifier(oracle.Func(func(context.Context, string) (string, error) {
		return "```json\n{\"intent\":\"expensive_items\",\"confidence\":0.95,\"parameters\":{\"limit\":3}}\n```", nil
	}), ModeLLM, nil)
	got := classifier.Classify(context.Background(), "what costs the most")
	if got.Kind != Expensive || got.Limit != 3 || got.Confidence != 0.95 {
		t.Fatalf("Classify() = %+v", got)
	}
}

func TestClassifyFallsBackToKeywords(t *testing.T) {
	tests := []oracle.Func{
		func(context.Context, string) (string, error) { return "", errors.New("unavailable") },
		func(context.Context, string) (string, error) { return "not json", nil },
	}
	for _, fn := range tests {
		got := NewClassifier(fn, ModeLLM, nil).Classify(context.Background(), "what is running low")
		if got.Kind != LowStock {
			t.Fatalf("Classify() = %+v, want low_stock", got)
		}
	}
}

func TestClassifyKeywordModeSkipsOracle(t *testing.T) {
	classifier := NewClassifier(oracle.Func(func(context.Context, string) (string, error) {
		t.Fatal("oracle should not be called")
		return "", nil
	}), ModeKeyword, nil)
	if got := classifier.Classify(context.Background(), "supplier list"); got.Kind != Suppliers {
		t.Fatalf("Classify() = %+v", got)
	}
}
