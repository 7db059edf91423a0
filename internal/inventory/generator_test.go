package inventory

import (
	"reflect"
	"testing"
	"time"
)

func TestGeneratorDeterministicForSeed(t *testing.T) {
	fixedNow := time.Date(2026, 2, 19, 7, 30, 0, 0, time.UTC)

	g1 := NewGenerator(42)
	g2 := NewGenerator(42)
	g1.now = func() time.Time { return fixedNow }
	g2.now = func() time.Time { return fixedNow }

	for i := 0; i < 5; i++ {
		r1 := g1.NextRecord()
		r2 := g2.NextRecord()
		if !reflect.DeepEqual(r1, r2) {
			t.Fatalf("record %d differs: %#v vs %#v", i, r1, r2)
		}
	}
}

func TestGeneratorItemIDsUniqueAndStockConsistent(t *testing.T) {
	g := NewGenerator(7)
	g.now = func() time.Time { return time.Unix(0, 0).UTC() }

	seen := map[string]struct{}{}
	for _, record := range g.Generate(200) {
		if _, ok := seen[record.ItemID]; ok {
			t.Fatalf("duplicate item id: %s", record.ItemID)
		}
		seen[record.ItemID] = struct{}{}

		if record.Quantity == nil || record.Threshold == nil {
			t.Fatalf("record %s missing stock fields", record.ItemID)
		}
		wantHealth := "good"
		if *record.Quantity < *record.Threshold {
			wantHealth = "critical"
		}
		if *record.StockHealth != wantHealth {
			t.Fatalf("record %s stock_health = %q, want %q", record.ItemID, *record.StockHealth, wantHealth)
		}
	}
}
