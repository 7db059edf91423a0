package shape

import "github.com/stockpilot/stockpilot/internal/inventory"

type Aggregate struct {
	Func   string  `json:"func"`
	Column string  `json:"column"`
	Value  float64 `json:"value"`
}

type Group struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// Result holds exactly one populated field, chosen by Shape.
type Result struct {
	Shape     Shape           `json:"shape"`
	Count     int64           `json:"count,omitempty"`
	Aggregate *Aggregate      `json:"aggregate,omitempty"`
	Groups    []Group         `json:"groups,omitempty"`
	Rows      []inventory.Row `json:"rows,omitempty"`
	// GroupColumn names the column Groups were built from.
	GroupColumn string `json:"group_column,omitempty"`
}

// Table renders the result as rows. Aggregates use the legacy alias rows so
// existing consumers find the keys they expect.
func (r Result) Table() []inventory.Row {
	switch r.Shape {
	case Count:
		return []inventory.Row{LegacyCountRow(r.Count)}
	case Sum:
		if r.Aggregate == nil {
			return nil
		}
		return []inventory.Row{LegacySumRow(r.Aggregate.Column, r.Aggregate.Value)}
	case Avg:
		if r.Aggregate == nil {
			return nil
		}
		return []inventory.Row{LegacyAvgRow(r.Aggregate.Column, r.Aggregate.Value)}
	case GroupBy:
		rows := make([]inventory.Row, 0, len(r.Groups))
		for _, group := range r.Groups {
			rows = append(rows, inventory.Row{r.GroupColumn: group.Label, "count": group.Count})
		}
		return rows
	default:
		return r.Rows
	}
}

// LegacyCountRow exposes a count under every key older consumers look for.
func LegacyCountRow(count int64) inventory.Row {
	return inventory.Row{
		"count":           count,
		"total_items":     count,
		"low_stock_items": count,
		"out_of_stock":    count,
	}
}

func LegacySumRow(column string, value float64) inventory.Row {
	return inventory.Row{
		"sum_" + column: value,
		"total_value":   value,
	}
}

func LegacyAvgRow(column string, value float64) inventory.Row {
	return inventory.Row{
		"avg_" + column:   value,
		"avg_stock_level": value,
	}
}
