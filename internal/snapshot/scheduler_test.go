package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	backendmemory "github.com/stockpilot/stockpilot/internal/backend/memory"
	"github.com/stockpilot/stockpilot/internal/inventory"
	storagememory "github.com/stockpilot/stockpilot/internal/storage/memory"
)

type countingRefresher struct {
	calls int
	err   error
}

func (c *countingRefresher) Refresh(context.Context) (bool, error) {
	c.calls++
	return c.err == nil, c.err
}

func TestSchedulerRunOnceExportsAndRefreshes(t *testing.T) {
	source, err := backendmemory.FromRecords(inventory.NewGenerator(5).Generate(4))
	if err != nil {
		t.Fatalf("FromRecords() error = %v", err)
	}
	objects := storagememory.New()
	refresher := &countingRefresher{}
	scheduler := &Scheduler{Exporter: NewExporter(source, objects), Refresher: refresher, Interval: time.Minute}

	scheduler.RunOnce(context.Background())

	if _, err := Latest(context.Background(), objects); err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if refresher.calls != 1 {
		t.Fatalf("refresh calls = %d", refresher.calls)
	}

	refresher.err = errors.New("boom")
	scheduler.RunOnce(context.Background())
	if refresher.calls != 2 {
		t.Fatalf("refresh calls = %d", refresher.calls)
	}
}

func TestSchedulerRunOncePrunesAfterExport(t *testing.T) {
	source, err := backendmemory.FromRecords(inventory.NewGenerator(6).Generate(2))
	if err != nil {
		t.Fatalf("FromRecords() error = %v", err)
	}
	objects := storagememory.New()
	scheduler := &Scheduler{Exporter: NewExporter(source, objects), Interval: time.Minute, Keep: 1}
	for i := 0; i < 3; i++ {
		scheduler.RunOnce(context.Background())
	}

	listed, err := objects.List(context.Background(), "Inventory/snapshots/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	// one parquet snapshot plus the LATEST pointer
	if len(listed) != 2 {
		t.Fatalf("List() = %#v", listed)
	}
}

func TestSchedulerRunValidatesAndStops(t *testing.T) {
	if err := (&Scheduler{Interval: time.Second}).Run(context.Background()); err == nil {
		t.Fatal("expected error without exporter or refresher")
	}
	if err := (&Scheduler{Refresher: &countingRefresher{}}).Run(context.Background()); err == nil {
		t.Fatal("expected error without interval")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (&Scheduler{Refresher: &countingRefresher{}, Interval: time.Hour}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}
