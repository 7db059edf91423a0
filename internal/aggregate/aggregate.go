package aggregate

import (
	"fmt"
	"sort"

	"github.com/stockpilot/stockpilot/internal/backend"
	"github.com/stockpilot/stockpilot/internal/inventory"
)

type Predicate func(row inventory.Row) bool

// Spec describes the in-memory work the hosted store cannot express. Zero values
// disable each stage; Limit <= 0 means no limit.
type Spec struct {
	Predicate Predicate
	SortBy    string
	Desc      bool
	Limit     int
}

// Apply filters rows, stable-sorts them by SortBy and truncates to Limit. The input
// slice is left untouched.
func Apply(rows []inventory.Row, spec Spec) []inventory.Row {
	out := make([]inventory.Row, 0, len(rows))
	for _, row := range rows {
		if spec.Predicate == nil || spec.Predicate(row) {
			out = append(out, row)
		}
	}
	if spec.SortBy != "" {
		column := spec.SortBy
		sort.SliceStable(out, func(i, j int) bool {
			cmp := inventory.Compare(out[i][column], out[j][column])
			if spec.Desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	if spec.Limit > 0 && len(out) > spec.Limit {
		out = out[:spec.Limit]
	}
	return out
}

// CompareColumns builds a predicate comparing two fields of the same row, e.g.
// quantity < threshold.
func CompareColumns(left string, op backend.Op, right string) (Predicate, error) {
	if !inventory.HasColumn(left) || !inventory.HasColumn(right) {
		return nil, fmt.Errorf("unknown column in %s %s %s", left, op, right)
	}
	var test func(int) bool
	switch op {
	case backend.OpEq:
		test = func(cmp int) bool { return cmp == 0 }
	case backend.OpNeq:
		test = func(cmp int) bool { return cmp != 0 }
	case backend.OpLt:
		test = func(cmp int) bool { return cmp < 0 }
	case backend.OpLte:
		test = func(cmp int) bool { return cmp <= 0 }
	case backend.OpGt:
		test = func(cmp int) bool { return cmp > 0 }
	case backend.OpGte:
		test = func(cmp int) bool { return cmp >= 0 }
	default:
		return nil, fmt.Errorf("unsupported column comparison op %q", op)
	}
	return func(row inventory.Row) bool {
		return test(inventory.Compare(row[left], row[right]))
	}, nil
}

// Filters turns literal filters into a predicate. It is used when rows were
// fetched unfiltered and every condition has to be applied locally.
func Filters(filters []backend.Filter) Predicate {
	return func(row inventory.Row) bool {
		for _, filter := range filters {
			if !filter.Matches(row) {
				return false
			}
		}
		return true
	}
}

// GroupLabel names the group a field value falls into.
func GroupLabel(value any) string {
	switch v := value.(type) {
	case nil:
		return "Unknown"
	case bool:
		if v {
			return "Yes"
		}
		return "No"
	}
	return inventory.Text(value)
}

// All combines predicates; nil entries are skipped.
func All(predicates ...Predicate) Predicate {
	return func(row inventory.Row) bool {
		for _, predicate := range predicates {
			if predicate != nil && !predicate(row) {
				return false
			}
		}
		return true
	}
}
