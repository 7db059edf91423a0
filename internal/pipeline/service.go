package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stockpilot/stockpilot/internal/backend"
	"github.com/stockpilot/stockpilot/internal/chart"
	"github.com/stockpilot/stockpilot/internal/guard"
	"github.com/stockpilot/stockpilot/internal/insight"
	"github.com/stockpilot/stockpilot/internal/inventory"
	"github.com/stockpilot/stockpilot/internal/nl2sql"
	"github.com/stockpilot/stockpilot/internal/observability"
	"github.com/stockpilot/stockpilot/internal/shape"
)

type Translator interface {
	Translate(ctx context.Context, req nl2sql.Request) (nl2sql.Result, error)
}

type Executor interface {
	Execute(ctx context.Context, intent shape.Intent) (shape.Result, error)
}

type InsightGenerator interface {
	Generate(ctx context.Context, question string, rows []inventory.Row) insight.Insight
}

type ChartSynthesizer interface {
	Synthesize(ctx context.Context, question string, rows []inventory.Row) chart.Charts
}

type Options struct {
	Charts bool
}

type Answer struct {
	Question        string          `json:"question"`
	SQL             string          `json:"sql,omitempty"`
	Shape           shape.Shape     `json:"shape,omitempty"`
	Rows            []inventory.Row `json:"rows"`
	Prose           string          `json:"prose,omitempty"`
	InsightDegraded bool            `json:"insight_degraded"`
	Charts          []chart.Series  `json:"charts,omitempty"`
	ChartInsight    string          `json:"chart_insight,omitempty"`
	ChartDegraded   bool            `json:"chart_degraded"`
	// Result is the canonical shaped result behind Rows.
	Result shape.Result `json:"-"`
}

type Service struct {
	Translator Translator
	Executor   Executor
	Insight    InsightGenerator
	// Charts is optional; without it chart requests are ignored.
	Charts ChartSynthesizer
	Logger *slog.Logger
}

// Answer runs translate, guard, execute, then summarizes the rows. Failures before
// data is fetched are returned together with the partially filled Answer. Once rows
// exist, insight and chart problems only mark the answer degraded.
func (s *Service) Answer(ctx context.Context, text string, opts Options) (Answer, error) {
	started := time.Now()
	answer := Answer{Question: text, Rows: []inventory.Row{}}
	logger := observability.LoggerWithTrace(ctx, s.logger())

	translated, err := s.Translator.Translate(ctx, nl2sql.Request{NaturalLanguage: text})
	if err != nil {
		s.observe(answer, err, started)
		return answer, err
	}
	answer.SQL = translated.SQL

	sql, err := guard.Check(translated.SQL)
	if err != nil {
		logger.WarnContext(ctx, "candidate sql rejected", slog.String("sql", translated.SQL), slog.Any("error", err))
		s.observe(answer, err, started)
		return answer, err
	}

	intent := shape.Recognize(sql)
	intent.RawText = text
	answer.Shape = intent.Shape

	result, err := s.Executor.Execute(ctx, intent)
	if err != nil {
		logger.ErrorContext(ctx, "backend query failed", slog.String("shape", string(intent.Shape)), slog.Any("error", err))
		s.observe(answer, err, started)
		return answer, err
	}
	answer.Result = result
	if rows := result.Table(); rows != nil {
		answer.Rows = rows
	}

	var group errgroup.Group
	group.Go(func() error {
		generated := s.Insight.Generate(ctx, text, answer.Rows)
		answer.Prose = generated.Text
		answer.InsightDegraded = generated.Degraded
		return nil
	})
	if opts.Charts && s.Charts != nil {
		group.Go(func() error {
			charts := s.Charts.Synthesize(ctx, text, answer.Rows)
			answer.Charts = charts.Series
			answer.ChartInsight = charts.Insight
			answer.ChartDegraded = charts.Degraded
			return nil
		})
	}
	_ = group.Wait()

	s.observe(answer, nil, started)
	return answer, nil
}

func (s *Service) observe(answer Answer, err error, started time.Time) {
	outcome := "ok"
	var (
		translationErr *nl2sql.TranslationError
		unsafeErr      *guard.UnsafeQueryError
		backendErr     *backend.Error
	)
	switch {
	case err == nil && (answer.InsightDegraded || answer.ChartDegraded):
		outcome = "degraded"
	case err == nil:
	case errors.As(err, &translationErr):
		outcome = "translation_failed"
	case errors.As(err, &unsafeErr):
		outcome = "unsafe_query"
	case errors.As(err, &backendErr):
		outcome = "backend_failed"
	default:
		outcome = "error"
	}
	shapeLabel := string(answer.Shape)
	if shapeLabel == "" {
		shapeLabel = "none"
	}
	observability.ObserveAnswer(shapeLabel, outcome, time.Since(started))
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Logger
}
