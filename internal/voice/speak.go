package voice

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stockpilot/stockpilot/internal/intent"
	"github.com/stockpilot/stockpilot/internal/inventory"
	"github.com/stockpilot/stockpilot/internal/pipeline"
	"github.com/stockpilot/stockpilot/internal/reports"
	"github.com/stockpilot/stockpilot/internal/shape"
)

const spokenItems = 3

// Speak renders a short sentence suitable for text-to-speech. It names at most
// three items and prefers the shaped result over the written insight.
func Speak(in intent.Intent, answer pipeline.Answer, summary *reports.Summary) string {
	if summary != nil {
		return fmt.Sprintf("Your inventory has %d items valued at $%.0f. %d need reordering and %d are out of stock.",
			summary.TotalItems, summary.TotalValue, summary.LowStockCount, summary.OutOfStockCount)
	}

	result := answer.Result
	switch answer.Shape {
	case shape.Count:
		return speakCount(in.Kind, result.Count)
	case shape.Sum:
		if result.Aggregate == nil {
			break
		}
		if result.Aggregate.Column == "total_stock_value" {
			return fmt.Sprintf("Your total inventory value is $%.2f.", result.Aggregate.Value)
		}
		return fmt.Sprintf("The total %s is %s.", humanize(result.Aggregate.Column), number(result.Aggregate.Value))
	case shape.Avg:
		if result.Aggregate == nil {
			break
		}
		return fmt.Sprintf("The average %s is %s.", humanize(result.Aggregate.Column), number(result.Aggregate.Value))
	case shape.GroupBy:
		if len(result.Groups) == 0 {
			break
		}
		largest := result.Groups[0]
		for _, group := range result.Groups[1:] {
			if group.Count > largest.Count {
				largest = group
			}
		}
		return fmt.Sprintf("Your items fall into %d groups by %s. The largest is %s with %d items.",
			len(result.Groups), humanize(result.GroupColumn), largest.Label, largest.Count)
	}
	return speakRows(in.Kind, answer)
}

func speakCount(kind intent.Kind, count int64) string {
	switch kind {
	case intent.LowStock:
		return fmt.Sprintf("You have %d items running low.", count)
	case intent.OutOfStock:
		return fmt.Sprintf("%d items are completely out of stock.", count)
	case intent.Expired:
		return fmt.Sprintf("%d items have expired.", count)
	default:
		return fmt.Sprintf("You have %d items matching that.", count)
	}
}

func speakRows(kind intent.Kind, answer pipeline.Answer) string {
	rows := answer.Rows
	if len(rows) == 0 {
		return "There aren't any items matching that in your inventory."
	}
	head := rows
	if len(head) > spokenItems {
		head = head[:spokenItems]
	}

	switch kind {
	case intent.LowStock:
		return fmt.Sprintf("You have %d items running low: %s.", len(rows), list(head, func(row inventory.Row) string {
			name := row.Text("item_name")
			if brand := row.Text("brand"); brand != "" {
				name += " by " + brand
			}
			return fmt.Sprintf("%s with only %s left", name, number(row.Number("quantity")))
		}))
	case intent.OutOfStock:
		return fmt.Sprintf("%d items are out of stock, including %s.", len(rows), list(head, itemName))
	case intent.TopSelling:
		return "Your top performers are " + list(head, func(row inventory.Row) string {
			return fmt.Sprintf("%s with %s sales velocity", row.Text("item_name"), number(row.Number("sales_velocity")))
		}) + "."
	case intent.Expensive:
		return "Your most expensive items are " + list(head, func(row inventory.Row) string {
			return fmt.Sprintf("%s at $%.2f", row.Text("item_name"), row.Number("selling_price"))
		}) + "."
	case intent.Suppliers:
		if names := distinct(rows, "supplier_name"); len(names) > 0 {
			if len(names) > spokenItems {
				names = names[:spokenItems]
			}
			return "Your suppliers include " + strings.Join(names, ", ") + "."
		}
	case intent.General:
		if !answer.InsightDegraded {
			if sentence := firstSentence(answer.Prose); sentence != "" {
				return sentence
			}
		}
	}

	named := rows
	if len(named) > 2 {
		named = named[:2]
	}
	var names []string
	for _, row := range named {
		if name := itemName(row); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("You have %d items matching that.", len(rows))
	}
	return fmt.Sprintf("You have %d items matching that. Top ones include %s.", len(rows), strings.Join(names, " and "))
}

func itemName(row inventory.Row) string {
	return row.Text("item_name")
}

func list(rows []inventory.Row, describe func(inventory.Row) string) string {
	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		parts = append(parts, describe(row))
	}
	return strings.Join(parts, ", ")
}

func distinct(rows []inventory.Row, column string) []string {
	seen := map[string]bool{}
	var out []string
	for _, row := range rows {
		value := row.Text(column)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		out = append(out, value)
	}
	return out
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, ".!?"); i >= 0 {
		return text[:i+1]
	}
	return text
}

func humanize(column string) string {
	return strings.ReplaceAll(column, "_", " ")
}

func number(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', 2, 64)
}
