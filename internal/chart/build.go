package chart

import (
	"math"
	"sort"

	"github.com/stockpilot/stockpilot/internal/aggregate"
	"github.com/stockpilot/stockpilot/internal/inventory"
)

const defaultLimit = 10

// Build executes a directive against the full row set. Groups keep their first
// appearance order until sorted, values are rounded to two decimals and groups
// whose value is not positive are dropped.
func Build(rows []inventory.Row, directive Directive) Series {
	series := Series{Directive: directive, Points: []Point{}}
	if !anyRowHas(rows, directive.GroupBy) {
		return series
	}

	type group struct {
		label string
		sum   float64
		count int
	}
	index := map[string]int{}
	var groups []group
	for _, row := range rows {
		label := aggregate.GroupLabel(row[directive.GroupBy])
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, group{label: label})
		}
		groups[i].count++
		if directive.AggregateColumn != "" {
			groups[i].sum += inventory.Number(row[directive.AggregateColumn])
		}
	}

	fn := directive.Aggregate
	if directive.AggregateColumn == "" {
		fn = AggregateCount
	}
	for _, g := range groups {
		var value float64
		switch fn {
		case AggregateSum:
			value = g.sum
		case AggregateAvg:
			value = g.sum / float64(g.count)
		default:
			value = float64(g.count)
		}
		value = math.Round(value*100) / 100
		if value > 0 {
			series.Points = append(series.Points, Point{Label: g.label, Value: value})
		}
	}

	switch directive.SortDirection {
	case "desc":
		sort.SliceStable(series.Points, func(i, j int) bool { return series.Points[i].Value > series.Points[j].Value })
	case "asc":
		sort.SliceStable(series.Points, func(i, j int) bool { return series.Points[i].Value < series.Points[j].Value })
	}

	limit := directive.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if len(series.Points) > limit {
		series.Points = series.Points[:limit]
	}
	return series
}

func anyRowHas(rows []inventory.Row, column string) bool {
	if column == "" {
		return false
	}
	for _, row := range rows {
		if _, ok := row[column]; ok {
			return true
		}
	}
	return false
}
