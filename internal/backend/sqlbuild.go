package backend

import (
	"fmt"
	"strings"
)

// BuildSelect renders a Query as parameterized SQL using $n placeholders.
func BuildSelect(table string, query Query) (string, []any, error) {
	if err := query.Validate(); err != nil {
		return "", nil, err
	}

	projection := "*"
	if len(query.Columns) > 0 {
		quoted := make([]string, 0, len(query.Columns))
		for _, column := range query.Columns {
			quoted = append(quoted, QuoteIdent(column))
		}
		projection = strings.Join(quoted, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", projection, QuoteIdent(table))
	where, args := buildWhere(query.Filters, 0)
	b.WriteString(where)
	if query.Order != nil {
		direction := "ASC"
		if query.Order.Desc {
			direction = "DESC"
		}
		fmt.Fprintf(&b, " ORDER BY %s %s", QuoteIdent(query.Order.Column), direction)
	}
	if query.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", query.Limit)
	}
	return b.String(), args, nil
}

func BuildCount(table string, filters []Filter) (string, []any, error) {
	if err := ValidateFilters(filters); err != nil {
		return "", nil, err
	}
	where, args := buildWhere(filters, 0)
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", QuoteIdent(table), where), args, nil
}

func buildWhere(filters []Filter, offset int) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	clauses := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, filter := range filters {
		column := QuoteIdent(filter.Column)
		if filter.Op == OpNotNull {
			clauses = append(clauses, column+" IS NOT NULL")
			continue
		}
		args = append(args, filter.Value)
		placeholder := fmt.Sprintf("$%d", offset+len(args))
		clauses = append(clauses, fmt.Sprintf("%s %s %s", column, sqlOperator(filter.Op), placeholder))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func sqlOperator(op Op) string {
	switch op {
	case OpEq:
		return "="
	case OpNeq:
		return "<>"
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpILike:
		return "ILIKE"
	default:
		return "="
	}
}

func QuoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
