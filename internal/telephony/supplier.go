package telephony

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/stockpilot/stockpilot/internal/backend"
	"github.com/stockpilot/stockpilot/internal/inventory"
)

const minReorderQuantity = 50

var supplierColumns = []string{
	"item_id", "item_name", "supplier_name", "supplier_contact", "supplier_rating",
	"unit_cost", "selling_price", "quantity", "threshold",
}

// Supplier is what the negotiation needs to know about the item being restocked.
type Supplier struct {
	ItemID           string  `json:"item_id"`
	Item             string  `json:"item"`
	Name             string  `json:"name"`
	Phone            string  `json:"phone"`
	Rating           float64 `json:"rating"`
	CurrentStock     int64   `json:"current_stock"`
	ReorderThreshold int64   `json:"reorder_threshold"`
	UnitCost         float64 `json:"unit_cost"`
	SellingPrice     float64 `json:"selling_price"`
}

// ReorderQuantity tops the item up to its threshold, never ordering fewer than 50 units.
func (s Supplier) ReorderQuantity() int64 {
	return max(s.ReorderThreshold-s.CurrentStock, minReorderQuantity)
}

// FindSupplier returns the supplier of the first item whose name contains itemName.
func FindSupplier(ctx context.Context, store backend.Store, itemName string) (Supplier, error) {
	itemName = strings.TrimSpace(itemName)
	if itemName == "" {
		return Supplier{}, fmt.Errorf("item name is required")
	}
	pattern := "%" + strings.NewReplacer("%", "", "_", "").Replace(itemName) + "%"
	rows, err := store.Select(ctx, backend.Query{
		Columns: supplierColumns,
		Filters: []backend.Filter{{Column: "item_name", Op: backend.OpILike, Value: pattern}},
		Limit:   1,
	})
	if err != nil {
		return Supplier{}, &backend.Error{Op: "select", Err: err}
	}
	if len(rows) == 0 {
		return Supplier{}, fmt.Errorf("no supplier found for item %q: %w", itemName, backend.ErrNotFound)
	}
	return supplierFromRow(rows[0]), nil
}

func supplierFromRow(row inventory.Row) Supplier {
	return Supplier{
		ItemID:           row.Text("item_id"),
		Item:             row.Text("item_name"),
		Name:             row.Text("supplier_name"),
		Phone:            row.Text("supplier_contact"),
		Rating:           row.Number("supplier_rating"),
		CurrentStock:     int64(row.Number("quantity")),
		ReorderThreshold: int64(row.Number("threshold")),
		UnitCost:         row.Number("unit_cost"),
		SellingPrice:     row.Number("selling_price"),
	}
}

type Script struct {
	Opening  string   `json:"opening"`
	Points   []string `json:"points"`
	Closing  string   `json:"closing"`
	Fallback string   `json:"fallback"`
}

// NewScript builds the talking points for a bulk purchase of quantity units at price.
func NewScript(item string, quantity int64, price float64) Script {
	return Script{
		Opening: fmt.Sprintf("Hi! I'm interested in bulk purchasing your %s. You have %d units at $%s each.", item, quantity, money(price)),
		Points: []string{
			fmt.Sprintf("Can you offer a volume discount for purchasing all %d units?", quantity),
			"What's your best price per unit for a bulk order?",
			fmt.Sprintf("Are you flexible on the $%s per unit price?", money(price)),
			fmt.Sprintf("Would you consider %d per unit for the entire inventory?", int64(math.Round(price*0.8))),
		},
		Closing:  "I'm ready to make a deal today if we can agree on pricing. What's your lowest price per unit?",
		Fallback: "Thank you for your time. I'll follow up via email with our offer.",
	}
}

// Assess grades a quoted restock price against the current one.
func Assess(item string, quantity int64, currentPrice, targetPrice float64) string {
	if currentPrice <= 0 {
		return fmt.Sprintf("I don't have a current price for %s, so let me connect you directly to the supplier.", item)
	}
	savings := (currentPrice - targetPrice) * float64(quantity)
	discount := (currentPrice - targetPrice) / currentPrice * 100
	switch {
	case targetPrice < currentPrice*0.8:
		return fmt.Sprintf("Excellent! Getting %d units of %s for $%s per unit is a fantastic deal. That's a %.1f%% discount, saving you $%.2f total.",
			quantity, item, money(targetPrice), discount, savings)
	case targetPrice < currentPrice*0.9:
		return fmt.Sprintf("Good negotiation! $%s per unit for %d units of %s represents %.1f%% savings. You'll save $%.2f on this restock order.",
			money(targetPrice), quantity, item, discount, savings)
	default:
		return fmt.Sprintf("The price of $%s per unit is close to your current cost of $%s. For bulk orders like %d units, we might be able to negotiate better pricing.",
			money(targetPrice), money(currentPrice), quantity)
	}
}

func money(value float64) string {
	if value == math.Trunc(value) {
		return fmt.Sprintf("%.0f", value)
	}
	return fmt.Sprintf("%.2f", value)
}
