package inventory

import (
	"fmt"
	"strings"
)

// TableName is the single queryable entity exposed to the assistant.
const TableName = "Inventory"

type ColumnType string

const (
	TypeText      ColumnType = "text"
	TypeInteger   ColumnType = "integer"
	TypeNumeric   ColumnType = "numeric"
	TypeBoolean   ColumnType = "boolean"
	TypeDate      ColumnType = "date"
	TypeTimestamp ColumnType = "timestamptz"
)

type Column struct {
	Name        string
	Type        ColumnType
	Description string
}

// Schema lists every column of the Inventory table in declaration order.
var Schema = []Column{
	{"item_id", TypeText, "Unique identifier for each item"},
	{"sku", TypeText, "Stock Keeping Unit code"},
	{"item_name", TypeText, "Name of the product"},
	{"brand", TypeText, "Brand name"},
	{"description", TypeText, "Product description"},
	{"category", TypeText, "Main product category"},
	{"subcategory", TypeText, "Product subcategory"},
	{"tags", TypeText, "Product tags for search"},
	{"status", TypeText, "Item status (active, discontinued, etc.)"},
	{"quantity", TypeInteger, "Current stock quantity"},
	{"threshold", TypeInteger, "Minimum stock level before reorder"},
	{"initial_quantity", TypeInteger, "Starting stock quantity"},
	{"sold_today", TypeInteger, "Items sold today"},
	{"sales_velocity", TypeNumeric, "Rate of sales"},
	{"stock_health", TypeText, "Overall stock condition"},
	{"days_out_of_stock", TypeInteger, "Days item has been out of stock"},
	{"stock_turnover_rate", TypeNumeric, "How quickly stock turns over"},
	{"storage_type", TypeText, "Type of storage required"},
	{"location_in_store", TypeText, "Physical location in store"},
	{"unit_cost", TypeNumeric, "Cost per unit"},
	{"selling_price", TypeNumeric, "Price sold to customers"},
	{"margin_percent", TypeNumeric, "Profit margin percentage"},
	{"markup_percent", TypeNumeric, "Markup percentage"},
	{"potential_revenue", TypeNumeric, "Potential revenue from current stock"},
	{"total_stock_value", TypeNumeric, "Total value of stock on hand"},
	{"discount_active", TypeBoolean, "Whether discount is currently active"},
	{"discount_percent", TypeNumeric, "Discount percentage if active"},
	{"loyalty_points", TypeInteger, "Points earned per purchase"},
	{"supplier_name", TypeText, "Name of supplier"},
	{"supplier_contact", TypeText, "Supplier contact number"},
	{"supplier_email", TypeText, "Supplier email address"},
	{"supplier_address", TypeText, "Supplier address"},
	{"supplier_rating", TypeNumeric, "Rating of supplier"},
	{"restock_lead_days", TypeInteger, "Days needed for restocking"},
	{"last_restock_date", TypeDate, "Date of last restock"},
	{"next_expected_restock", TypeDate, "Expected next restock date"},
	{"last_restock_qty", TypeInteger, "Quantity of last restock"},
	{"auto_reorder_enabled", TypeBoolean, "Whether auto-reorder is enabled"},
	{"predicted_demand_next_7d", TypeNumeric, "Predicted demand for next 7 days"},
	{"days_until_stockout", TypeNumeric, "Predicted days until stock runs out"},
	{"expiry_days", TypeInteger, "Days until expiry"},
	{"expiry_date", TypeDate, "Expiration date"},
	{"days_until_expiry", TypeInteger, "Days until item expires"},
	{"expired", TypeBoolean, "Whether item is expired"},
	{"sales_history", TypeText, "Historical sales data"},
	{"weekly_sales_volume", TypeNumeric, "Weekly sales volume"},
	{"sales_trend", TypeText, "Current sales trend"},
	{"country_of_origin", TypeText, "Country where item originates"},
	{"organic", TypeBoolean, "Whether item is organic"},
	{"rating", TypeNumeric, "Customer rating"},
	{"barcode", TypeText, "Product barcode"},
	{"created_at", TypeTimestamp, "When item was created"},
	{"last_updated", TypeTimestamp, "When item was last updated"},
}

var columnIndex = func() map[string]Column {
	index := make(map[string]Column, len(Schema))
	for _, column := range Schema {
		index[column.Name] = column
	}
	return index
}()

func LookupColumn(name string) (Column, bool) {
	column, ok := columnIndex[strings.ToLower(strings.TrimSpace(name))]
	return column, ok
}

func HasColumn(name string) bool {
	_, ok := LookupColumn(name)
	return ok
}

func ColumnNames() []string {
	names := make([]string, 0, len(Schema))
	for _, column := range Schema {
		names = append(names, column.Name)
	}
	return names
}

// Describe renders the schema as prompt context for the language model.
func Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Database Table: %s\n\nColumns and their descriptions:\n", TableName)
	for _, column := range Schema {
		fmt.Fprintf(&b, "- %s: %s\n", column.Name, column.Description)
	}
	return b.String()
}
