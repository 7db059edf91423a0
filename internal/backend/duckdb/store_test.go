package duckdb

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stockpilot/stockpilot/internal/backend"
	backendmemory "github.com/stockpilot/stockpilot/internal/backend/memory"
	"github.com/stockpilot/stockpilot/internal/inventory"
	"github.com/stockpilot/stockpilot/internal/snapshot"
	"github.com/stockpilot/stockpilot/internal/storage"
	storagememory "github.com/stockpilot/stockpilot/internal/storage/memory"
)

func exportFixture(t *testing.T, records []inventory.Record) *storagememory.Store {
	t.Helper()
	source, err := backendmemory.FromRecords(records)
	if err != nil {
		t.Fatalf("FromRecords() error = %v", err)
	}
	objects := storagememory.New()
	if _, err := snapshot.NewExporter(source, objects).Export(context.Background()); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	return objects
}

func TestStoreQueriesLatestSnapshot(t *testing.T) {
	records := inventory.NewGenerator(21).Generate(30)
	objects := exportFixture(t, records)

	store, err := OpenLatest(context.Background(), objects)
	if err != nil {
		t.Fatalf("OpenLatest() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	total, err := store.Count(context.Background(), nil)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if total != 30 {
		t.Fatalf("Count() = %d, want 30", total)
	}

	var wantZero int64
	for _, record := range records {
		if *record.Quantity == 0 {
			wantZero++
		}
	}
	zero, err := store.Count(context.Background(), []backend.Filter{{Column: "quantity", Op: backend.OpEq, Value: 0}})
	if err != nil {
		t.Fatalf("Count(quantity=0) error = %v", err)
	}
	if zero != wantZero {
		t.Fatalf("Count(quantity=0) = %d, want %d", zero, wantZero)
	}

	rows, err := store.Select(context.Background(), backend.Query{
		Columns: []string{"item_name", "selling_price"},
		Order:   &backend.Order{Column: "selling_price", Desc: true},
		Limit:   5,
	})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("len(rows) = %d, want 5", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i-1].Number("selling_price") < rows[i].Number("selling_price") {
			t.Fatalf("rows not sorted desc: %#v", rows)
		}
	}
	if store.SnapshotKey() == "" {
		t.Fatal("expected snapshot key to be recorded")
	}
}

func TestOpenLatestWithoutSnapshot(t *testing.T) {
	if _, err := OpenLatest(context.Background(), storagememory.New()); err == nil {
		t.Fatal("expected error when no snapshot exists")
	}
}

func TestStoreWithoutSnapshot(t *testing.T) {
	store := New(storagememory.New())
	if _, err := store.Select(context.Background(), backend.Query{}); err == nil {
		t.Fatal("expected error without loaded snapshot")
	}
	if err := store.Load(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty key")
	}
	if err := store.Load(context.Background(), "missing.parquet"); err == nil || errors.Is(err, context.Canceled) {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestRefreshPicksUpNewSnapshot(t *testing.T) {
	objects := exportFixture(t, inventory.NewGenerator(3).Generate(10))
	store, err := OpenLatest(context.Background(), objects)
	if err != nil {
		t.Fatalf("OpenLatest() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	changed, err := store.Refresh(context.Background())
	if err != nil || changed {
		t.Fatalf("Refresh() = %v, %v; want false, nil", changed, err)
	}

	source, err := backendmemory.FromRecords(inventory.NewGenerator(4).Generate(12))
	if err != nil {
		t.Fatalf("FromRecords() error = %v", err)
	}
	if _, err := snapshot.NewExporter(source, objects).Export(context.Background()); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	changed, err = store.Refresh(context.Background())
	if err != nil || !changed {
		t.Fatalf("Refresh() = %v, %v; want true, nil", changed, err)
	}
	total, err := store.Count(context.Background(), nil)
	if err != nil || total != 12 {
		t.Fatalf("Count() = %d, %v; want 12", total, err)
	}
}

func TestLoadRejectsEmptySnapshot(t *testing.T) {
	objects := storagememory.New()
	key := "Inventory/snapshots/empty.parquet"
	if _, err := objects.Put(context.Background(), key, strings.NewReader(""), 0, storage.PutOptions{}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	store := New(objects)
	t.Cleanup(func() { _ = store.Close() })

	err := store.Load(context.Background(), key)
	if err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("Load() error = %v, want empty snapshot error", err)
	}
	if store.SnapshotKey() != "" {
		t.Fatalf("SnapshotKey() = %q, want none loaded", store.SnapshotKey())
	}
}
