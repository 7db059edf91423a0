package chart

type Type string

const (
	Bar      Type = "bar"
	Line     Type = "line"
	Pie      Type = "pie"
	Doughnut Type = "doughnut"
)

type AggregateFunc string

const (
	AggregateCount AggregateFunc = "count"
	AggregateSum   AggregateFunc = "sum"
	AggregateAvg   AggregateFunc = "avg"
)

// Directive is one chart suggestion: group rows by a column, aggregate each group,
// sort and truncate.
type Directive struct {
	Type            Type          `json:"type"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	GroupBy         string        `json:"group_by"`
	Aggregate       AggregateFunc `json:"aggregate"`
	AggregateColumn string        `json:"aggregate_column,omitempty"`
	SortDirection   string        `json:"sort_direction,omitempty"`
	Limit           int           `json:"limit"`
}

type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type Series struct {
	Directive Directive `json:"directive"`
	Points    []Point   `json:"points"`
}

func normalizeType(value string) Type {
	switch t := Type(value); t {
	case Bar, Line, Pie, Doughnut:
		return t
	default:
		return Bar
	}
}

func normalizeAggregate(value string) AggregateFunc {
	switch a := AggregateFunc(value); a {
	case AggregateCount, AggregateSum, AggregateAvg:
		return a
	default:
		return AggregateCount
	}
}
