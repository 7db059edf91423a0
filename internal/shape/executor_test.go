package shape

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stockpilot/stockpilot/internal/backend"
	"github.com/stockpilot/stockpilot/internal/backend/memory"
	"github.com/stockpilot/stockpilot/internal/inventory"
)

type recordingStore struct {
	inner   backend.Store
	selects []backend.Query
	counts  [][]backend.Filter
	err     error
}

func (s *recordingStore) Select(ctx context.Context, query backend.Query) ([]inventory.Row, error) {
	s.selects = append(s.selects, query)
	if s.err != nil {
		return nil, s.err
	}
	return s.inner.Select(ctx, query)
}

func (s *recordingStore) Count(ctx context.Context, filters []backend.Filter) (int64, error) {
	s.counts = append(s.counts, filters)
	if s.err != nil {
		return 0, s.err
	}
	return s.inner.Count(ctx, filters)
}

func (s *recordingStore) calls() int {
	return len(s.selects) + len(s.counts)
}

func fixtureStore() *recordingStore {
	return &recordingStore{inner: memory.New([]inventory.Row{
		{"item_name": "Milk", "category": "Dairy", "quantity": 5, "threshold": 10, "total_stock_value": 20.5, "status": "active"},
		{"item_name": "Bread", "category": "Bakery", "quantity": 15, "threshold": 10, "total_stock_value": "30", "status": "active"},
		{"item_name": "Cheese", "category": "Dairy", "quantity": 0, "threshold": 5, "total_stock_value": 0, "status": "inactive"},
		{"item_name": "Apples", "category": nil, "quantity": 20, "threshold": 1, "total_stock_value": 49.5, "status": "active"},
	})}
}

func TestExecuteMakesExactlyOneBackendCall(t *testing.T) {
	queries := []string{
		"SELECT COUNT(*) FROM Inventory WHERE quantity < threshold",
		"SELECT COUNT(*) FROM Inventory WHERE quantity = 0",
		"SELECT COUNT(*) FROM Inventory",
		"SELECT SUM(total_stock_value) FROM Inventory",
		"SELECT AVG(quantity) FROM Inventory",
		"SELECT category, COUNT(*) FROM Inventory GROUP BY category",
		"SELECT * FROM Inventory WHERE quantity < threshold ORDER BY quantity LIMIT 1",
		"SELECT * FROM Inventory WHERE status = 'active'",
		"SELECT * FROM Inventory ORDER BY quantity DESC",
		"SELECT * FROM Inventory",
	}
	for _, sql := range queries {
		store := fixtureStore()
		if _, err := NewExecutor(store, nil).Execute(context.Background(), Recognize(sql)); err != nil {
			t.Fatalf("Execute(%q) error = %v", sql, err)
		}
		if store.calls() != 1 {
			t.Fatalf("Execute(%q) made %d backend calls, want 1", sql, store.calls())
		}
	}
}

func TestExecuteCountColumnComparison(t *testing.T) {
	store := fixtureStore()
	intent := Recognize("SELECT COUNT(*) FROM Inventory WHERE quantity < threshold")
	result, err := NewExecutor(store, nil).Execute(context.Background(), intent)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Count != 2 {
		t.Fatalf("Count = %d, want 2", result.Count)
	}
	if len(store.selects) != 1 || !reflect.DeepEqual(store.selects[0].Columns, []string{"quantity", "threshold"}) {
		t.Fatalf("selects = %#v", store.selects)
	}
	table := result.Table()
	want := []inventory.Row{LegacyCountRow(2)}
	if !reflect.DeepEqual(table, want) {
		t.Fatalf("Table() = %#v, want %#v", table, want)
	}
}

func TestExecuteCountLiteralUsesCount(t *testing.T) {
	store := fixtureStore()
	result, err := NewExecutor(store, nil).Execute(context.Background(), Recognize("SELECT COUNT(*) FROM Inventory WHERE quantity = 0"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Count != 1 || len(store.counts) != 1 {
		t.Fatalf("Count = %d counts = %#v", result.Count, store.counts)
	}
}

func TestExecuteSumAndAvg(t *testing.T) {
	executor := NewExecutor(fixtureStore(), nil)
	sum, err := executor.Execute(context.Background(), Recognize("SELECT SUM(total_stock_value) FROM Inventory"))
	if err != nil {
		t.Fatalf("Execute(sum) error = %v", err)
	}
	if sum.Aggregate == nil || sum.Aggregate.Value != 100 {
		t.Fatalf("sum = %#v", sum.Aggregate)
	}
	row := sum.Table()[0]
	if row["sum_total_stock_value"] != 100.0 || row["total_value"] != 100.0 {
		t.Fatalf("sum row = %#v", row)
	}

	avg, err := executor.Execute(context.Background(), Recognize("SELECT AVG(quantity) FROM Inventory"))
	if err != nil {
		t.Fatalf("Execute(avg) error = %v", err)
	}
	if avg.Aggregate == nil || avg.Aggregate.Value != 10 {
		t.Fatalf("avg = %#v", avg.Aggregate)
	}
	if got := avg.Table()[0]; got["avg_quantity"] != 10.0 || got["avg_stock_level"] != 10.0 {
		t.Fatalf("avg row = %#v", got)
	}
}

func TestExecuteAvgOverEmptySetIsZero(t *testing.T) {
	executor := NewExecutor(&recordingStore{inner: memory.New(nil)}, nil)
	result, err := executor.Execute(context.Background(), Recognize("SELECT AVG(quantity) FROM Inventory"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Aggregate.Value != 0 {
		t.Fatalf("avg = %v, want 0", result.Aggregate.Value)
	}
}

func TestExecuteGroupByKeepsFirstAppearanceOrder(t *testing.T) {
	result, err := NewExecutor(fixtureStore(), nil).Execute(context.Background(), Recognize("SELECT category, COUNT(*) FROM Inventory GROUP BY category"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	want := []Group{{Label: "Dairy", Count: 2}, {Label: "Bakery", Count: 1}, {Label: "Unknown", Count: 1}}
	if !reflect.DeepEqual(result.Groups, want) {
		t.Fatalf("Groups = %#v, want %#v", result.Groups, want)
	}
	if table := result.Table(); table[0]["category"] != "Dairy" || table[0]["count"] != int64(2) {
		t.Fatalf("Table() = %#v", table)
	}
}

func TestExecuteFilteredSelectWithComparison(t *testing.T) {
	store := fixtureStore()
	intent := Recognize("SELECT item_name FROM Inventory WHERE quantity < threshold ORDER BY quantity ASC LIMIT 5")
	result, err := NewExecutor(store, nil).Execute(context.Background(), intent)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	want := []inventory.Row{{"item_name": "Cheese"}, {"item_name": "Milk"}}
	if !reflect.DeepEqual(result.Rows, want) {
		t.Fatalf("Rows = %#v, want %#v", result.Rows, want)
	}
	if store.selects[0].Limit != 0 || store.selects[0].Order != nil {
		t.Fatalf("comparison fetch should not push down order or limit: %#v", store.selects[0])
	}
}

func TestExecutePushesDownLiteralSelect(t *testing.T) {
	store := fixtureStore()
	intent := Recognize("SELECT * FROM Inventory WHERE status = 'active' ORDER BY quantity DESC LIMIT 2")
	result, err := NewExecutor(store, nil).Execute(context.Background(), intent)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	query := store.selects[0]
	if query.Limit != 2 || query.Order == nil || !query.Order.Desc || len(query.Filters) != 1 {
		t.Fatalf("query = %#v", query)
	}
	if len(result.Rows) != 2 || result.Rows[0]["item_name"] != "Apples" || result.Rows[1]["item_name"] != "Bread" {
		t.Fatalf("Rows = %#v", result.Rows)
	}
}

func TestExecuteUnrecognizedReturnsAllRows(t *testing.T) {
	store := fixtureStore()
	result, err := NewExecutor(store, nil).Execute(context.Background(), Recognize("SELECT * FROM Inventory"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Shape != Unrecognized || len(result.Rows) != 4 {
		t.Fatalf("result = %#v", result)
	}
	if !reflect.DeepEqual(store.selects[0], backend.Query{}) {
		t.Fatalf("query = %#v", store.selects[0])
	}
}

func TestExecuteWrapsBackendErrors(t *testing.T) {
	cause := errors.New("connection reset")
	for _, sql := range []string{"SELECT COUNT(*) FROM Inventory", "SELECT * FROM Inventory LIMIT 2"} {
		store := fixtureStore()
		store.err = cause
		_, err := NewExecutor(store, nil).Execute(context.Background(), Recognize(sql))
		var backendErr *backend.Error
		if !errors.As(err, &backendErr) {
			t.Fatalf("Execute(%q) error = %v, want backend.Error", sql, err)
		}
		if !errors.Is(err, cause) {
			t.Fatalf("Execute(%q) error does not wrap cause", sql)
		}
	}
}

func TestExecuteIsDeterministic(t *testing.T) {
	sql := "SELECT * FROM Inventory WHERE quantity < threshold LIMIT 10"
	first, second := fixtureStore(), fixtureStore()
	if _, err := NewExecutor(first, nil).Execute(context.Background(), Recognize(sql)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if _, err := NewExecutor(second, nil).Execute(context.Background(), Recognize(sql)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !reflect.DeepEqual(first.selects, second.selects) || !reflect.DeepEqual(first.counts, second.counts) {
		t.Fatalf("calls differ: %#v vs %#v", first.selects, second.selects)
	}
}
