package oracle

import (
	"context"
	"time"

	"github.com/stockpilot/stockpilot/internal/observability"
)

type observed struct {
	next     Oracle
	provider string
}

// WithMetrics records latency and failures of every completion.
func WithMetrics(next Oracle, provider string) Oracle {
	return &observed{next: next, provider: provider}
}

func (o *observed) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := o.next.Complete(ctx, prompt)
	observability.ObserveOracleCall(o.provider, time.Since(start), err)
	return text, err
}

func (o *observed) Provider() string {
	if d, ok := o.next.(Describer); ok {
		return d.Provider()
	}
	return o.provider
}

func (o *observed) Model() string {
	if d, ok := o.next.(Describer); ok {
		return d.Model()
	}
	return ""
}
