package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stockpilot/stockpilot/internal/storage"
)

func TestPutGetStatDelete(t *testing.T) {
	store := New()
	ctx := context.Background()

	info, err := store.Put(ctx, "/a/b.txt", strings.NewReader("hello"), 5, storage.PutOptions{Metadata: map[string]string{"k": "v"}})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if info.Key != "a/b.txt" || info.Size != 5 || info.ETag == "" {
		t.Fatalf("unexpected info: %#v", info)
	}

	reader, err := store.Get(ctx, "a/b.txt")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	body, _ := io.ReadAll(reader)
	if string(body) != "hello" {
		t.Fatalf("body = %q", body)
	}

	stat, err := store.Stat(ctx, "a/b.txt")
	if err != nil || stat.Metadata["k"] != "v" {
		t.Fatalf("Stat() = %#v, %v", stat, err)
	}

	if err := store.Delete(ctx, "a/b.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "a/b.txt"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Get() after delete error = %v", err)
	}
}

func TestListFiltersByPrefix(t *testing.T) {
	store := New()
	ctx := context.Background()
	for _, key := range []string{"Inventory/snapshots/b.parquet", "Inventory/snapshots/a.parquet", "other/c.txt"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), 1, storage.PutOptions{}); err != nil {
			t.Fatalf("Put(%q) error = %v", key, err)
		}
	}
	objects, err := store.List(ctx, "/Inventory/snapshots/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objects) != 2 || objects[0].Key != "Inventory/snapshots/a.parquet" || objects[1].Key != "Inventory/snapshots/b.parquet" {
		t.Fatalf("List() = %#v", objects)
	}
}
