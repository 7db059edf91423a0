package memory

import (
	"context"
	"sync"

	"github.com/stockpilot/stockpilot/internal/aggregate"
	"github.com/stockpilot/stockpilot/internal/backend"
	"github.com/stockpilot/stockpilot/internal/inventory"
)

// Store serves backend queries from rows held in memory. It backs the dev profile
// and tests.
type Store struct {
	mu   sync.RWMutex
	rows []inventory.Row
}

func New(rows []inventory.Row) *Store {
	store := &Store{}
	store.Replace(rows)
	return store
}

func FromRecords(records []inventory.Record) (*Store, error) {
	rows := make([]inventory.Row, 0, len(records))
	for _, record := range records {
		row, err := record.Row()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return New(rows), nil
}

func (s *Store) Replace(rows []inventory.Row) {
	copied := make([]inventory.Row, 0, len(rows))
	for _, row := range rows {
		copied = append(copied, row.Clone())
	}
	s.mu.Lock()
	s.rows = copied
	s.mu.Unlock()
}

func (s *Store) Select(ctx context.Context, query backend.Query) ([]inventory.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	spec := aggregate.Spec{Predicate: aggregate.Filters(query.Filters), Limit: query.Limit}
	if query.Order != nil {
		spec.SortBy = query.Order.Column
		spec.Desc = query.Order.Desc
	}
	s.mu.RLock()
	matched := aggregate.Apply(s.rows, spec)
	s.mu.RUnlock()

	out := make([]inventory.Row, 0, len(matched))
	for _, row := range matched {
		out = append(out, row.Project(query.Columns))
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, filters []backend.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := backend.ValidateFilters(filters); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	match := aggregate.Filters(filters)
	var count int64
	for _, row := range s.rows {
		if match(row) {
			count++
		}
	}
	return count, nil
}
