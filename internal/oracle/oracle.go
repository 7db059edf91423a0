package oracle

import (
	"context"
	"strings"
)

// Oracle is a stateless text-completion service. Each call carries its full context.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Describer is implemented by oracles that can name their provider and model.
type Describer interface {
	Provider() string
	Model() string
}

// StripCodeFences removes markdown fence markers (```sql, ```json, ```) wherever
// they appear and trims the result.
func StripCodeFences(value string) string {
	trimmed := strings.TrimSpace(value)
	for _, marker := range []string{"```sql", "```SQL", "```json", "```JSON", "```"} {
		trimmed = strings.ReplaceAll(trimmed, marker, "")
	}
	return strings.TrimSpace(trimmed)
}
