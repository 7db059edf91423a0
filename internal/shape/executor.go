package shape

import (
	"context"
	"io"
	"log/slog"

	"github.com/stockpilot/stockpilot/internal/aggregate"
	"github.com/stockpilot/stockpilot/internal/backend"
	"github.com/stockpilot/stockpilot/internal/observability"
)

// Executor turns a recognized intent into exactly one backend call and shapes the
// answer.
type Executor struct {
	store  backend.Store
	logger *slog.Logger
}

func NewExecutor(store backend.Store, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Executor{store: store, logger: logger}
}

func (e *Executor) Execute(ctx context.Context, intent Intent) (Result, error) {
	params := intent.Params
	switch intent.Shape {
	case Count:
		return e.count(ctx, params)
	case Sum, Avg:
		return e.summarize(ctx, intent.Shape, params.Column)
	case GroupBy:
		return e.groupBy(ctx, params.Column)
	case FilteredSelect, OrderedSelect:
		return e.selectRows(ctx, intent.Shape, params)
	default:
		observability.IncrementUnrecognizedQuery()
		observability.LoggerWithTrace(ctx, e.logger).WarnContext(ctx, "unrecognized query shape, returning all rows",
			slog.String("sql", intent.CandidateSQL),
		)
		rows, err := e.store.Select(ctx, backend.Query{})
		if err != nil {
			return Result{}, &backend.Error{Op: "select", Err: err}
		}
		return Result{Shape: Unrecognized, Rows: rows}, nil
	}
}

func (e *Executor) count(ctx context.Context, params Params) (Result, error) {
	if len(params.Comparisons) == 0 {
		count, err := e.store.Count(ctx, params.Filters)
		if err != nil {
			return Result{}, &backend.Error{Op: "count", Err: err}
		}
		return Result{Shape: Count, Count: count}, nil
	}

	rows, err := e.store.Select(ctx, backend.Query{
		Columns: comparisonColumns(params.Comparisons),
		Filters: params.Filters,
	})
	if err != nil {
		return Result{}, &backend.Error{Op: "select", Err: err}
	}
	predicate, err := comparisonPredicate(params.Comparisons)
	if err != nil {
		return Result{}, err
	}
	matched := aggregate.Apply(rows, aggregate.Spec{Predicate: predicate})
	return Result{Shape: Count, Count: int64(len(matched))}, nil
}

func (e *Executor) summarize(ctx context.Context, shape Shape, column string) (Result, error) {
	rows, err := e.store.Select(ctx, backend.Query{Columns: []string{column}})
	if err != nil {
		return Result{}, &backend.Error{Op: "select", Err: err}
	}
	var total float64
	for _, row := range rows {
		total += row.Number(column)
	}
	value := total
	if shape == Avg {
		value = 0
		if len(rows) > 0 {
			value = total / float64(len(rows))
		}
	}
	return Result{Shape: shape, Aggregate: &Aggregate{Func: string(shape), Column: column, Value: value}}, nil
}

func (e *Executor) groupBy(ctx context.Context, column string) (Result, error) {
	rows, err := e.store.Select(ctx, backend.Query{Columns: []string{column}})
	if err != nil {
		return Result{}, &backend.Error{Op: "select", Err: err}
	}
	index := map[string]int{}
	var groups []Group
	for _, row := range rows {
		label := aggregate.GroupLabel(row[column])
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, Group{Label: label})
		}
		groups[i].Count++
	}
	return Result{Shape: GroupBy, GroupColumn: column, Groups: groups}, nil
}

// selectRows pushes literal filters, order and limit down to the store. Column
// comparisons force an unordered, unlimited fetch that the aggregator finishes.
func (e *Executor) selectRows(ctx context.Context, shape Shape, params Params) (Result, error) {
	if len(params.Comparisons) == 0 {
		rows, err := e.store.Select(ctx, backend.Query{
			Columns: params.Columns,
			Filters: params.Filters,
			Order:   params.Order,
			Limit:   params.Limit,
		})
		if err != nil {
			return Result{}, &backend.Error{Op: "select", Err: err}
		}
		return Result{Shape: shape, Rows: rows}, nil
	}

	rows, err := e.store.Select(ctx, backend.Query{Filters: params.Filters})
	if err != nil {
		return Result{}, &backend.Error{Op: "select", Err: err}
	}
	predicate, err := comparisonPredicate(params.Comparisons)
	if err != nil {
		return Result{}, err
	}
	spec := aggregate.Spec{Predicate: predicate, Limit: params.Limit}
	if params.Order != nil {
		spec.SortBy = params.Order.Column
		spec.Desc = params.Order.Desc
	}
	rows = aggregate.Apply(rows, spec)
	if len(params.Columns) > 0 {
		for i, row := range rows {
			rows[i] = row.Project(params.Columns)
		}
	}
	return Result{Shape: shape, Rows: rows}, nil
}

func comparisonPredicate(comparisons []Comparison) (aggregate.Predicate, error) {
	predicates := make([]aggregate.Predicate, 0, len(comparisons))
	for _, comparison := range comparisons {
		predicate, err := aggregate.CompareColumns(comparison.Left, comparison.Op, comparison.Right)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, predicate)
	}
	return aggregate.All(predicates...), nil
}

func comparisonColumns(comparisons []Comparison) []string {
	seen := map[string]bool{}
	var columns []string
	for _, comparison := range comparisons {
		for _, column := range []string{comparison.Left, comparison.Right} {
			if !seen[column] {
				seen[column] = true
				columns = append(columns, column)
			}
		}
	}
	return columns
}
