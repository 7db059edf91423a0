package inventory

import (
	"encoding/json"
	"fmt"
)

// Record is the typed form of an Inventory row, used for seeding and parquet snapshots.
// Dates and timestamps are carried as ISO-8601 strings.
type Record struct {
	ItemID                string   `json:"item_id" parquet:"item_id"`
	SKU                   *string  `json:"sku" parquet:"sku,optional"`
	ItemName              *string  `json:"item_name" parquet:"item_name,optional"`
	Brand                 *string  `json:"brand" parquet:"brand,optional"`
	Description           *string  `json:"description" parquet:"description,optional"`
	Category              *string  `json:"category" parquet:"category,optional"`
	Subcategory           *string  `json:"subcategory" parquet:"subcategory,optional"`
	Tags                  *string  `json:"tags" parquet:"tags,optional"`
	Status                *string  `json:"status" parquet:"status,optional"`
	Quantity              *int64   `json:"quantity" parquet:"quantity,optional"`
	Threshold             *int64   `json:"threshold" parquet:"threshold,optional"`
	InitialQuantity       *int64   `json:"initial_quantity" parquet:"initial_quantity,optional"`
	SoldToday             *int64   `json:"sold_today" parquet:"sold_today,optional"`
	SalesVelocity         *float64 `json:"sales_velocity" parquet:"sales_velocity,optional"`
	StockHealth           *string  `json:"stock_health" parquet:"stock_health,optional"`
	DaysOutOfStock        *int64   `json:"days_out_of_stock" parquet:"days_out_of_stock,optional"`
	StockTurnoverRate     *float64 `json:"stock_turnover_rate" parquet:"stock_turnover_rate,optional"`
	StorageType           *string  `json:"storage_type" parquet:"storage_type,optional"`
	LocationInStore       *string  `json:"location_in_store" parquet:"location_in_store,optional"`
	UnitCost              *float64 `json:"unit_cost" parquet:"unit_cost,optional"`
	SellingPrice          *float64 `json:"selling_price" parquet:"selling_price,optional"`
	MarginPercent         *float64 `json:"margin_percent" parquet:"margin_percent,optional"`
	MarkupPercent         *float64 `json:"markup_percent" parquet:"markup_percent,optional"`
	PotentialRevenue      *float64 `json:"potential_revenue" parquet:"potential_revenue,optional"`
	TotalStockValue       *float64 `json:"total_stock_value" parquet:"total_stock_value,optional"`
	DiscountActive        *bool    `json:"discount_active" parquet:"discount_active,optional"`
	DiscountPercent       *float64 `json:"discount_percent" parquet:"discount_percent,optional"`
	LoyaltyPoints         *int64   `json:"loyalty_points" parquet:"loyalty_points,optional"`
	SupplierName          *string  `json:"supplier_name" parquet:"supplier_name,optional"`
	SupplierContact       *string  `json:"supplier_contact" parquet:"supplier_contact,optional"`
	SupplierEmail         *string  `json:"supplier_email" parquet:"supplier_email,optional"`
	SupplierAddress       *string  `json:"supplier_address" parquet:"supplier_address,optional"`
	SupplierRating        *float64 `json:"supplier_rating" parquet:"supplier_rating,optional"`
	RestockLeadDays       *int64   `json:"restock_lead_days" parquet:"restock_lead_days,optional"`
	LastRestockDate       *string  `json:"last_restock_date" parquet:"last_restock_date,optional"`
	NextExpectedRestock   *string  `json:"next_expected_restock" parquet:"next_expected_restock,optional"`
	LastRestockQty        *int64   `json:"last_restock_qty" parquet:"last_restock_qty,optional"`
	AutoReorderEnabled    *bool    `json:"auto_reorder_enabled" parquet:"auto_reorder_enabled,optional"`
	PredictedDemandNext7d *float64 `json:"predicted_demand_next_7d" parquet:"predicted_demand_next_7d,optional"`
	DaysUntilStockout     *float64 `json:"days_until_stockout" parquet:"days_until_stockout,optional"`
	ExpiryDays            *int64   `json:"expiry_days" parquet:"expiry_days,optional"`
	ExpiryDate            *string  `json:"expiry_date" parquet:"expiry_date,optional"`
	DaysUntilExpiry       *int64   `json:"days_until_expiry" parquet:"days_until_expiry,optional"`
	Expired               *bool    `json:"expired" parquet:"expired,optional"`
	SalesHistory          *string  `json:"sales_history" parquet:"sales_history,optional"`
	WeeklySalesVolume     *float64 `json:"weekly_sales_volume" parquet:"weekly_sales_volume,optional"`
	SalesTrend            *string  `json:"sales_trend" parquet:"sales_trend,optional"`
	CountryOfOrigin       *string  `json:"country_of_origin" parquet:"country_of_origin,optional"`
	Organic               *bool    `json:"organic" parquet:"organic,optional"`
	Rating                *float64 `json:"rating" parquet:"rating,optional"`
	Barcode               *string  `json:"barcode" parquet:"barcode,optional"`
	CreatedAt             *string  `json:"created_at" parquet:"created_at,optional"`
	LastUpdated           *string  `json:"last_updated" parquet:"last_updated,optional"`
}

// Row converts the record into the loosely typed form the query pipeline works on.
// Null fields are kept as explicit nil values.
func (r Record) Row() (Row, error) {
	encoded, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode inventory record: %w", err)
	}
	row := Row{}
	if err := json.Unmarshal(encoded, &row); err != nil {
		return nil, fmt.Errorf("decode inventory record: %w", err)
	}
	return row, nil
}

// RecordFromRow is the inverse of Record.Row. Numeric strings are accepted for numeric fields.
func RecordFromRow(row Row) (Record, error) {
	normalized := make(map[string]any, len(row))
	for key, value := range row {
		column, ok := LookupColumn(key)
		if !ok || value == nil {
			continue
		}
		switch column.Type {
		case TypeInteger:
			normalized[key] = int64(Number(value))
		case TypeNumeric:
			normalized[key] = Number(value)
		case TypeBoolean:
			normalized[key] = Truthy(value)
		default:
			normalized[key] = Text(value)
		}
	}
	encoded, err := json.Marshal(normalized)
	if err != nil {
		return Record{}, fmt.Errorf("encode inventory row: %w", err)
	}
	var record Record
	if err := json.Unmarshal(encoded, &record); err != nil {
		return Record{}, fmt.Errorf("decode inventory row: %w", err)
	}
	return record, nil
}

// Values returns the record's fields in Schema order, with nil for null fields.
func (r Record) Values() ([]any, error) {
	row, err := r.Row()
	if err != nil {
		return nil, err
	}
	values := make([]any, 0, len(Schema))
	for _, column := range Schema {
		value := row[column.Name]
		if value != nil && column.Type == TypeInteger {
			value = int64(Number(value))
		}
		values = append(values, value)
	}
	return values, nil
}
