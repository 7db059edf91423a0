package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stockpilot/stockpilot/internal/inventory"
	"github.com/stockpilot/stockpilot/internal/oracle"
)

var ErrEmptyRequest = errors.New("natural language request is required")

type Request struct {
	NaturalLanguage string `json:"natural_language"`
}

type Result struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// TranslationError reports that the oracle could not produce candidate SQL.
type TranslationError struct {
	Err error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translate natural language to sql: %v", e.Err)
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}

var rules = []string{
	"Only generate SELECT queries (no INSERT, UPDATE, DELETE)",
	"Always use the table name \"" + inventory.TableName + "\"",
	"Use proper SQL syntax",
	"For date comparisons, use appropriate date functions",
	"Use LIMIT to keep results manageable",
	"Use ORDER BY when the user asks for sorted or ranked results",
	"Return ONLY the SQL query, no explanations",
	"Always start the query with SELECT",
}

type Translator struct {
	oracle oracle.Oracle
}

func NewTranslator(o oracle.Oracle) *Translator {
	return &Translator{oracle: o}
}

// Translate makes a single oracle call. The reply is stripped of code fences and
// returned as-is; nothing here checks that it is valid or safe SQL.
func (t *Translator) Translate(ctx context.Context, req Request) (Result, error) {
	text := strings.TrimSpace(req.NaturalLanguage)
	if text == "" {
		return Result{}, ErrEmptyRequest
	}
	reply, err := t.oracle.Complete(ctx, BuildPrompt(text))
	if err != nil {
		return Result{}, &TranslationError{Err: err}
	}
	sql := oracle.StripCodeFences(reply)
	if sql == "" {
		return Result{}, &TranslationError{Err: errors.New("model returned empty SQL")}
	}

	result := Result{SQL: sql}
	if d, ok := t.oracle.(oracle.Describer); ok {
		result.Provider = d.Provider()
		result.Model = d.Model()
	}
	return result, nil
}

func BuildPrompt(naturalLanguage string) string {
	var b strings.Builder
	b.WriteString("You are a SQL expert. Convert the following natural language query to SQL based on this database schema:\n\n")
	b.WriteString(inventory.Describe())
	b.WriteString("\nImportant rules:\n")
	for i, rule := range rules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rule)
	}
	b.WriteString("\nNatural language query: \"")
	b.WriteString(naturalLanguage)
	b.WriteString("\"\n\nSQL Query:")
	return b.String()
}
