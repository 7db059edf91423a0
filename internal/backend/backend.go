package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stockpilot/stockpilot/internal/inventory"
)

var ErrNotFound = errors.New("not found")

type Op string

const (
	OpEq      Op = "eq"
	OpNeq     Op = "neq"
	OpLt      Op = "lt"
	OpLte     Op = "lte"
	OpGt      Op = "gt"
	OpGte     Op = "gte"
	OpILike   Op = "ilike"
	OpNotNull Op = "not_null"
)

// Filter compares a single column against a literal.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

type Order struct {
	Column string
	Desc   bool
}

// Query is the whole vocabulary the hosted row store understands: projection,
// column-vs-literal filters, a single sort key and a row limit.
type Query struct {
	Columns []string
	Filters []Filter
	Order   *Order
	Limit   int
}

type Store interface {
	Select(ctx context.Context, query Query) ([]inventory.Row, error)
	Count(ctx context.Context, filters []Filter) (int64, error)
}

// Error wraps a failed store call.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (q Query) Validate() error {
	for _, column := range q.Columns {
		if !inventory.HasColumn(column) {
			return fmt.Errorf("unknown column %q", column)
		}
	}
	if err := ValidateFilters(q.Filters); err != nil {
		return err
	}
	if q.Order != nil && !inventory.HasColumn(q.Order.Column) {
		return fmt.Errorf("unknown order column %q", q.Order.Column)
	}
	if q.Limit < 0 {
		return fmt.Errorf("limit must be >= 0")
	}
	return nil
}

func ValidateFilters(filters []Filter) error {
	for _, filter := range filters {
		if !inventory.HasColumn(filter.Column) {
			return fmt.Errorf("unknown filter column %q", filter.Column)
		}
		if !filter.Op.Valid() {
			return fmt.Errorf("unsupported filter op %q", filter.Op)
		}
	}
	return nil
}

func (op Op) Valid() bool {
	switch op {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte, OpILike, OpNotNull:
		return true
	default:
		return false
	}
}

func (f Filter) String() string {
	if f.Op == OpNotNull {
		return f.Column + " is not null"
	}
	return fmt.Sprintf("%s %s %v", f.Column, f.Op, f.Value)
}

// Matches evaluates the filter against a row the way the hosted store would.
func (f Filter) Matches(row inventory.Row) bool {
	value, present := row[f.Column]
	if f.Op == OpNotNull {
		return present && value != nil
	}
	if value == nil {
		return false
	}
	switch f.Op {
	case OpEq:
		return equal(value, f.Value)
	case OpNeq:
		return !equal(value, f.Value)
	case OpLt:
		return inventory.Compare(value, f.Value) < 0
	case OpLte:
		return inventory.Compare(value, f.Value) <= 0
	case OpGt:
		return inventory.Compare(value, f.Value) > 0
	case OpGte:
		return inventory.Compare(value, f.Value) >= 0
	case OpILike:
		return likeMatch(inventory.Text(value), inventory.Text(f.Value))
	default:
		return false
	}
}

func equal(value, literal any) bool {
	if b, ok := literal.(bool); ok {
		return inventory.Truthy(value) == b
	}
	return inventory.Compare(value, literal) == 0
}

// likeMatch implements case-insensitive LIKE with % and _ wildcards.
func likeMatch(value, pattern string) bool {
	return likeAt(strings.ToLower(value), strings.ToLower(pattern))
}

func likeAt(value, pattern string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '%':
			for len(pattern) > 0 && pattern[0] == '%' {
				pattern = pattern[1:]
			}
			if pattern == "" {
				return true
			}
			for i := 0; i <= len(value); i++ {
				if likeAt(value[i:], pattern) {
					return true
				}
			}
			return false
		case '_':
			if value == "" {
				return false
			}
			value = value[1:]
			pattern = pattern[1:]
		default:
			if value == "" || value[0] != pattern[0] {
				return false
			}
			value = value[1:]
			pattern = pattern[1:]
		}
	}
	return value == ""
}
