package backend

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stockpilot/stockpilot/internal/inventory"
)

func TestBuildSelect(t *testing.T) {
	sqlText, args, err := BuildSelect("Inventory", Query{
		Columns: []string{"item_name", "quantity"},
		Filters: []Filter{
			{Column: "status", Op: OpEq, Value: "active"},
			{Column: "supplier_name", Op: OpNotNull},
			{Column: "quantity", Op: OpLt, Value: 5.0},
		},
		Order: &Order{Column: "quantity", Desc: true},
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("BuildSelect() error = %v", err)
	}
	want := `SELECT "item_name", "quantity" FROM "Inventory" WHERE "status" = $1 AND "supplier_name" IS NOT NULL AND "quantity" < $2 ORDER BY "quantity" DESC LIMIT 10`
	if sqlText != want {
		t.Fatalf("sql = %q\nwant %q", sqlText, want)
	}
	if !reflect.DeepEqual(args, []any{"active", 5.0}) {
		t.Fatalf("args = %#v", args)
	}
}

func TestBuildCountWithoutFilters(t *testing.T) {
	sqlText, args, err := BuildCount("Inventory", nil)
	if err != nil {
		t.Fatalf("BuildCount() error = %v", err)
	}
	if sqlText != `SELECT COUNT(*) FROM "Inventory"` || len(args) != 0 {
		t.Fatalf("sql = %q args = %#v", sqlText, args)
	}
}

func TestBuildSelectRejectsUnknownColumn(t *testing.T) {
	if _, _, err := BuildSelect("Inventory", Query{Columns: []string{"password"}}); err == nil {
		t.Fatal("expected unknown column error")
	}
	if _, _, err := BuildCount("Inventory", []Filter{{Column: "quantity", Op: "between"}}); err == nil {
		t.Fatal("expected unsupported op error")
	}
}

func TestFilterMatches(t *testing.T) {
	row := inventory.Row{
		"item_name": "Organic Whole Milk",
		"quantity":  "0",
		"expired":   true,
		"brand":     nil,
	}
	tests := []struct {
		filter Filter
		want   bool
	}{
		{Filter{Column: "quantity", Op: OpEq, Value: 0.0}, true},
		{Filter{Column: "quantity", Op: OpGt, Value: 0.0}, false},
		{Filter{Column: "expired", Op: OpEq, Value: true}, true},
		{Filter{Column: "item_name", Op: OpILike, Value: "%whole milk%"}, true},
		{Filter{Column: "item_name", Op: OpILike, Value: "milk%"}, false},
		{Filter{Column: "item_name", Op: OpILike, Value: "organic_whole%"}, true},
		{Filter{Column: "brand", Op: OpNotNull}, false},
		{Filter{Column: "brand", Op: OpEq, Value: "x"}, false},
		{Filter{Column: "item_name", Op: OpNeq, Value: "Bread"}, true},
	}
	for _, tc := range tests {
		if got := tc.filter.Matches(row); got != tc.want {
			t.Fatalf("%s: Matches() = %v, want %v", tc.filter, got, tc.want)
		}
	}
}

func TestErrorUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(&Error{Op: "select", Err: cause})
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find cause")
	}
	var backendErr *Error
	if !errors.As(err, &backendErr) || backendErr.Op != "select" {
		t.Fatalf("errors.As() = %#v", backendErr)
	}
}
