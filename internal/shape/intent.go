package shape

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/stockpilot/stockpilot/internal/backend"
	"github.com/stockpilot/stockpilot/internal/inventory"
)

type Shape string

const (
	Count          Shape = "count"
	Sum            Shape = "sum"
	Avg            Shape = "avg"
	GroupBy        Shape = "groupBy"
	FilteredSelect Shape = "filteredSelect"
	OrderedSelect  Shape = "orderedSelect"
	Unrecognized   Shape = "unrecognized"
)

// Comparison is a predicate between two columns of the same row. The hosted store
// cannot express it, so it is evaluated after the rows are fetched.
type Comparison struct {
	Left  string     `json:"left"`
	Op    backend.Op `json:"op"`
	Right string     `json:"right"`
}

type Params struct {
	Column      string           `json:"column,omitempty"`
	Columns     []string         `json:"columns,omitempty"`
	Filters     []backend.Filter `json:"filters,omitempty"`
	Comparisons []Comparison     `json:"comparisons,omitempty"`
	Order       *backend.Order   `json:"order,omitempty"`
	Limit       int              `json:"limit,omitempty"`
}

type Intent struct {
	RawText      string `json:"raw_text"`
	CandidateSQL string `json:"candidate_sql"`
	Shape        Shape  `json:"shape"`
	Params       Params `json:"params"`
}

const ident = `([a-z_][a-z0-9_]*)`

var (
	countPattern   = regexp.MustCompile(`count\(\s*\*\s*\)`)
	sumPattern     = regexp.MustCompile(`sum\(\s*"?` + ident + `"?\s*\)`)
	avgPattern     = regexp.MustCompile(`avg\(\s*"?` + ident + `"?\s*\)`)
	groupByPattern = regexp.MustCompile(`group\s+by\s+"?` + ident)
	orderPattern   = regexp.MustCompile(`order\s+by\s+"?` + ident + `"?(?:\s+(asc|desc))?`)
	limitPattern   = regexp.MustCompile(`\blimit\s+(\d+)`)
	wherePattern   = regexp.MustCompile(`(?s)\bwhere\b(.*?)(?:\bgroup\s+by\b|\border\s+by\b|\blimit\b|;|$)`)
	selectPattern  = regexp.MustCompile(`(?s)^\s*select\s+(.*?)\s+from\b`)
	andPattern     = regexp.MustCompile(`\s+and\s+`)
	orPattern      = regexp.MustCompile(`\bor\b`)

	notNullCondition = regexp.MustCompile(`^"?` + ident + `"?\s+is\s+not\s+null$`)
	likeCondition    = regexp.MustCompile(`^"?` + ident + `"?\s+i?like\s+'([^']*)'$`)
	compareCondition = regexp.MustCompile(`^"?` + ident + `"?\s*(<=|>=|<>|!=|=|<|>)\s*(.+)$`)
	numberLiteral    = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	stringLiteral    = regexp.MustCompile(`^'([^']*)'$`)
	columnLiteral    = regexp.MustCompile(`^"?` + ident + `"?$`)
)

var operators = map[string]backend.Op{
	"=":  backend.OpEq,
	"!=": backend.OpNeq,
	"<>": backend.OpNeq,
	"<":  backend.OpLt,
	"<=": backend.OpLte,
	">":  backend.OpGt,
	">=": backend.OpGte,
}

// Recognize classifies guarded SQL into one of a closed set of shapes. Patterns are
// tested in priority order and the first match wins: count, sum, avg, group by,
// where, order by, limit. Aggregate shapes do not compose with other clauses except
// count, which honors its WHERE clause. The select shapes keep their WHERE, ORDER BY
// and LIMIT together. Recognize is deterministic and does no I/O.
func Recognize(sql string) Intent {
	// Only ASCII is folded so byte offsets line up with the original text, which
	// keeps string literals in their original case. Clause patterns run against
	// masked text so keywords inside literals are not taken for syntax.
	lowered := asciiLower(sql)
	masked := stripQuoted(lowered)
	intent := Intent{CandidateSQL: sql, Shape: Unrecognized}

	if countPattern.MatchString(masked) {
		intent.Shape = Count
		intent.Params.Filters, intent.Params.Comparisons = parseWhere(sql, lowered, masked)
		return intent
	}
	if column, ok := matchColumn(sumPattern, masked); ok {
		intent.Shape = Sum
		intent.Params.Column = column
		return intent
	}
	if column, ok := matchColumn(avgPattern, masked); ok {
		intent.Shape = Avg
		intent.Params.Column = column
		return intent
	}
	if column, ok := matchColumn(groupByPattern, masked); ok {
		intent.Shape = GroupBy
		intent.Params.Column = column
		return intent
	}

	filters, comparisons := parseWhere(sql, lowered, masked)
	order := parseOrder(masked)
	limit := parseLimit(masked)
	switch {
	case len(filters) > 0 || len(comparisons) > 0:
		intent.Shape = FilteredSelect
	case order != nil:
		intent.Shape = OrderedSelect
	case limit > 0:
		intent.Shape = OrderedSelect
	default:
		return intent
	}
	intent.Params.Columns = parseProjection(masked)
	intent.Params.Filters = filters
	intent.Params.Comparisons = comparisons
	intent.Params.Order = order
	intent.Params.Limit = limit
	return intent
}

func matchColumn(pattern *regexp.Regexp, text string) (string, bool) {
	match := pattern.FindStringSubmatch(text)
	if match == nil || !inventory.HasColumn(match[1]) {
		return "", false
	}
	return match[1], true
}

// parseWhere extracts the conjunctive conditions it understands. Conditions that
// name unknown columns or use unsupported syntax are ignored. A WHERE clause using
// OR is not pushed down at all. The three inputs share byte offsets: clause
// boundaries come from masked, values from original.
func parseWhere(original, lowered, masked string) ([]backend.Filter, []Comparison) {
	loc := wherePattern.FindStringSubmatchIndex(masked)
	if loc == nil {
		return nil, nil
	}
	start, end := trimParenSpan(masked, loc[2], loc[3])
	if start >= end || orPattern.MatchString(masked[start:end]) {
		return nil, nil
	}

	var filters []backend.Filter
	var comparisons []Comparison
	bounds := andPattern.FindAllStringIndex(masked[start:end], -1)
	pos := start
	for i := 0; i <= len(bounds); i++ {
		stop := end
		if i < len(bounds) {
			stop = start + bounds[i][0]
		}
		from, to := trimParenSpan(masked, pos, stop)
		if i < len(bounds) {
			pos = start + bounds[i][1]
		}
		filter, comparison, ok := parseCondition(lowered[from:to], original[from:to])
		if !ok {
			continue
		}
		if comparison != nil {
			comparisons = append(comparisons, *comparison)
			continue
		}
		filters = append(filters, filter)
	}
	return filters, comparisons
}

func parseCondition(condition, original string) (backend.Filter, *Comparison, bool) {
	if match := notNullCondition.FindStringSubmatch(condition); match != nil {
		if !inventory.HasColumn(match[1]) {
			return backend.Filter{}, nil, false
		}
		return backend.Filter{Column: match[1], Op: backend.OpNotNull}, nil, true
	}
	if match := likeCondition.FindStringSubmatchIndex(condition); match != nil {
		column := condition[match[2]:match[3]]
		if !inventory.HasColumn(column) {
			return backend.Filter{}, nil, false
		}
		return backend.Filter{Column: column, Op: backend.OpILike, Value: original[match[4]:match[5]]}, nil, true
	}
	match := compareCondition.FindStringSubmatchIndex(condition)
	if match == nil {
		return backend.Filter{}, nil, false
	}
	column := condition[match[2]:match[3]]
	op := operators[condition[match[4]:match[5]]]
	rhs := strings.TrimSpace(condition[match[6]:match[7]])
	originalRHS := strings.TrimSpace(original[match[6]:match[7]])
	if !inventory.HasColumn(column) {
		return backend.Filter{}, nil, false
	}

	switch {
	case rhs == "true" || rhs == "false":
		return backend.Filter{Column: column, Op: op, Value: rhs == "true"}, nil, true
	case numberLiteral.MatchString(rhs):
		return backend.Filter{Column: column, Op: op, Value: parseNumber(rhs)}, nil, true
	case stringLiteral.MatchString(rhs):
		value := stringLiteral.FindStringSubmatch(originalRHS)
		if value == nil {
			return backend.Filter{}, nil, false
		}
		return backend.Filter{Column: column, Op: op, Value: value[1]}, nil, true
	case columnLiteral.MatchString(rhs):
		right := columnLiteral.FindStringSubmatch(rhs)[1]
		if !inventory.HasColumn(right) {
			return backend.Filter{}, nil, false
		}
		return backend.Filter{}, &Comparison{Left: column, Op: op, Right: right}, true
	default:
		return backend.Filter{}, nil, false
	}
}

func parseOrder(masked string) *backend.Order {
	match := orderPattern.FindStringSubmatch(masked)
	if match == nil || !inventory.HasColumn(match[1]) {
		return nil
	}
	return &backend.Order{Column: match[1], Desc: match[2] == "desc"}
}

// parseLimit returns 0 when there is no LIMIT clause. An explicit LIMIT 0 reads the
// same way.
func parseLimit(masked string) int {
	match := limitPattern.FindStringSubmatch(masked)
	if match == nil {
		return 0
	}
	limit, err := strconv.Atoi(match[1])
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

// parseProjection returns the selected columns, or nil for * and for select lists
// containing anything other than plain known columns.
func parseProjection(masked string) []string {
	match := selectPattern.FindStringSubmatch(masked)
	if match == nil {
		return nil
	}
	var columns []string
	for _, part := range strings.Split(match[1], ",") {
		name := strings.Trim(strings.TrimSpace(part), `"`)
		if name == "*" || !inventory.HasColumn(name) {
			return nil
		}
		columns = append(columns, name)
	}
	return columns
}

func parseNumber(raw string) any {
	if !strings.Contains(raw, ".") {
		if value, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return value
		}
	}
	value, _ := strconv.ParseFloat(raw, 64)
	return value
}

// trimParenSpan narrows [start, end) past surrounding whitespace and parentheses
// that wrap the whole expression.
func trimParenSpan(value string, start, end int) (int, int) {
	start, end = trimSpan(value, start, end)
	for end-start >= 2 && value[start] == '(' && start+closingParen(value[start:end]) == end-1 {
		start, end = trimSpan(value, start+1, end-1)
	}
	return start, end
}

func trimSpan(value string, start, end int) (int, int) {
	for start < end && isSpace(value[start]) {
		start++
	}
	for end > start && isSpace(value[end-1]) {
		end--
	}
	return start, end
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func closingParen(value string) int {
	depth := 0
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// stripQuoted blanks out the contents of single-quoted literals. The result has
// the same length as value.
func stripQuoted(value string) string {
	var b strings.Builder
	quoted := false
	for i := 0; i < len(value); i++ {
		if value[i] == '\'' {
			quoted = !quoted
			b.WriteByte('\'')
			continue
		}
		if quoted {
			b.WriteByte(' ')
			continue
		}
		b.WriteByte(value[i])
	}
	return b.String()
}

func asciiLower(value string) string {
	buf := []byte(value)
	for i, c := range buf {
		if 'A' <= c && c <= 'Z' {
			buf[i] = c + ('a' - 'A')
		}
	}
	return string(buf)
}
