package storage

import (
	"testing"
	"time"
)

func TestBuildSnapshotPath(t *testing.T) {
	ts := time.Date(2026, time.February, 19, 22, 5, 0, 0, time.FixedZone("x", -5*3600))
	key, err := BuildSnapshotPath("Inventory", ts, "0192f7c2")
	if err != nil {
		t.Fatalf("BuildSnapshotPath() error = %v", err)
	}
	want := "Inventory/snapshots/date=2026-02-20/snapshot-0192f7c2.parquet"
	if key != want {
		t.Fatalf("BuildSnapshotPath() = %q, want %q", key, want)
	}
}

func TestBuildLatestPointerPath(t *testing.T) {
	key, err := BuildLatestPointerPath("Inventory")
	if err != nil {
		t.Fatalf("BuildLatestPointerPath() error = %v", err)
	}
	if key != "Inventory/snapshots/LATEST" {
		t.Fatalf("BuildLatestPointerPath() = %q", key)
	}
}

func TestSnapshotPrefix(t *testing.T) {
	prefix, err := SnapshotPrefix("Inventory")
	if err != nil || prefix != "Inventory/snapshots/" {
		t.Fatalf("SnapshotPrefix() = %q, %v", prefix, err)
	}
	if _, err := SnapshotPrefix(""); err == nil {
		t.Fatal("expected invalid table name error")
	}
}

func TestBuildPathRejectsInvalidComponent(t *testing.T) {
	if _, err := BuildSnapshotPath("../oops", time.Now(), "1"); err == nil {
		t.Fatal("expected invalid component error")
	}
	if _, err := BuildSnapshotPath("Inventory", time.Now(), ""); err == nil {
		t.Fatal("expected invalid snapshot id error")
	}
}
