package reports

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stockpilot/stockpilot/internal/backend"
	"github.com/stockpilot/stockpilot/internal/backend/memory"
	"github.com/stockpilot/stockpilot/internal/inventory"
)

func fixture() *Service {
	return NewService(memory.New([]inventory.Row{
		{"item_name": "Milk", "brand": "Farm Co", "category": "Food", "quantity": 2, "threshold": 10, "total_stock_value": 10.5, "status": "active", "expired": false, "supplier_name": "FoodDist", "supplier_rating": 4.0, "supplier_contact": "555-1", "sales_velocity": 9.1, "selling_price": 3.5, "days_out_of_stock": 0},
		{"item_name": "Laptop", "brand": "Dell", "category": "Electronics", "quantity": 0, "threshold": 5, "total_stock_value": 0, "status": "active", "expired": false, "supplier_name": "TechCorp", "supplier_rating": nil, "supplier_contact": "555-2", "sales_velocity": 1.2, "selling_price": 999.0, "days_out_of_stock": 4},
		{"item_name": "Bread", "brand": "Bakers", "category": "Food", "quantity": 30, "threshold": 10, "total_stock_value": 60, "status": "discontinued", "expired": true, "supplier_name": "FoodDist", "supplier_rating": 4.6, "supplier_contact": "555-1", "sales_velocity": 20.0, "selling_price": 2.0, "days_out_of_stock": 0},
		{"item_name": "Headphones", "brand": "Sony", "category": "Electronics", "quantity": 0, "threshold": 3, "total_stock_value": 0, "status": "active", "expired": false, "supplier_name": nil, "sales_velocity": 5.0, "selling_price": 150.0, "days_out_of_stock": 9},
	}))
}

func names(rows []inventory.Row) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Text("item_name"))
	}
	return out
}

func TestLowStockSortsByQuantity(t *testing.T) {
	rows, err := fixture().LowStock(context.Background(), 0)
	if err != nil {
		t.Fatalf("LowStock() error = %v", err)
	}
	if got, want := names(rows), []string{"Laptop", "Headphones", "Milk"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("LowStock() = %v, want %v", got, want)
	}
}

func TestOutOfStockOrdersByDaysOut(t *testing.T) {
	rows, err := fixture().OutOfStock(context.Background(), 0)
	if err != nil {
		t.Fatalf("OutOfStock() error = %v", err)
	}
	if got, want := names(rows), []string{"Headphones", "Laptop"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("OutOfStock() = %v, want %v", got, want)
	}
}

func TestTopSellingAndMostExpensive(t *testing.T) {
	svc := fixture()
	top, err := svc.TopSelling(context.Background(), 2)
	if err != nil {
		t.Fatalf("TopSelling() error = %v", err)
	}
	if got, want := names(top), []string{"Bread", "Milk"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("TopSelling() = %v, want %v", got, want)
	}
	expensive, err := svc.MostExpensive(context.Background(), 1)
	if err != nil {
		t.Fatalf("MostExpensive() error = %v", err)
	}
	if got := names(expensive); !reflect.DeepEqual(got, []string{"Laptop"}) {
		t.Fatalf("MostExpensive() = %v", got)
	}
}

func TestByCategoryIsCaseInsensitive(t *testing.T) {
	rows, err := fixture().ByCategory(context.Background(), "electronics", 0)
	if err != nil {
		t.Fatalf("ByCategory() error = %v", err)
	}
	if got, want := names(rows), []string{"Headphones", "Laptop"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ByCategory() = %v, want %v", got, want)
	}
}

func TestSuppliersAverageRatings(t *testing.T) {
	suppliers, err := fixture().Suppliers(context.Background())
	if err != nil {
		t.Fatalf("Suppliers() error = %v", err)
	}
	want := []Supplier{
		{Name: "FoodDist", Contact: "555-1", AvgRating: "4.3"},
		{Name: "TechCorp", Contact: "555-2", AvgRating: "N/A"},
	}
	if !reflect.DeepEqual(suppliers, want) {
		t.Fatalf("Suppliers() = %#v, want %#v", suppliers, want)
	}
}

func TestSummary(t *testing.T) {
	summary, err := fixture().Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	want := Summary{TotalItems: 4, TotalValue: 70.5, LowStockCount: 3, OutOfStockCount: 2, ExpiredCount: 1, ActiveCount: 3}
	if summary != want {
		t.Fatalf("Summary() = %+v, want %+v", summary, want)
	}
}

type failingStore struct{}

func (failingStore) Select(context.Context, backend.Query) ([]inventory.Row, error) {
	return nil, errors.New("down")
}

func (failingStore) Count(context.Context, []backend.Filter) (int64, error) {
	return 0, errors.New("down")
}

func TestSummaryWrapsBackendError(t *testing.T) {
	_, err := NewService(failingStore{}).Summary(context.Background())
	var backendErr *backend.Error
	if !errors.As(err, &backendErr) {
		t.Fatalf("Summary() error = %v, want backend.Error", err)
	}
}

func TestSuggestions(t *testing.T) {
	got := Suggestions(Summary{LowStockCount: 3, OutOfStockCount: 2})
	want := []string{
		"You have 3 items running low - want to see which ones?",
		"2 items are completely out of stock",
		"View your top selling products",
		"Show me my most expensive inventory",
		"What's my total inventory value?",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Suggestions() = %#v", got)
	}
	if got := Suggestions(Summary{}); len(got) != 3 {
		t.Fatalf("Suggestions(empty) = %#v", got)
	}
}
