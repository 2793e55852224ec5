package storage

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestFSStoreRoundTrip(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := store.PutObject(ctx, "orders/2026-01-03/pos_1_orders.json", []byte(`[]`)); err != nil {
		t.Fatal(err)
	}

	data, err := store.GetObject(ctx, "orders/2026-01-03/pos_1_orders.json")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte(`[]`)) {
		t.Errorf("got %q", data)
	}
}

func TestFSStoreGetMissing(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	_, err = store.GetObject(context.Background(), "orders/2026-01-03/missing.json")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFSStoreListPrefix(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	keys := []string{
		"orders/2026-01-03/pos_2_orders.json",
		"orders/2026-01-03/pos_1_orders.json",
		"orders/2026-01-04/pos_1_orders.json",
		"stock/2026-01-03/wh_1_stock.csv",
	}
	for _, key := range keys {
		if err := store.PutObject(ctx, key, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}

	objects, err := store.ListObjects(ctx, "orders/2026-01-03/")
	if err != nil {
		t.Fatal(err)
	}
	if len(objects) != 2 {
		t.Fatalf("listed %d objects, want 2", len(objects))
	}
	if objects[0].Key != "orders/2026-01-03/pos_1_orders.json" {
		t.Errorf("listing not sorted: first key %s", objects[0].Key)
	}
}

func TestFSStoreListEmptyPrefix(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	objects, err := store.ListObjects(context.Background(), "orders/2099-01-01/")
	if err != nil {
		t.Fatal(err)
	}
	if len(objects) != 0 {
		t.Fatalf("expected empty listing, got %v", objects)
	}
}

func TestFSStoreMoveIsIdempotent(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	src := "orders/2026-01-03/pos_1_orders.json"
	dst := "processed/" + src

	if err := store.PutObject(ctx, src, []byte(`[]`)); err != nil {
		t.Fatal(err)
	}
	if err := store.MoveObject(ctx, src, dst); err != nil {
		t.Fatal(err)
	}

	if _, err := store.GetObject(ctx, src); !errors.Is(err, ErrNotFound) {
		t.Fatal("source still present after move")
	}
	if _, err := store.GetObject(ctx, dst); err != nil {
		t.Fatalf("destination missing after move: %v", err)
	}

	// Re-moving the already-moved key must be a no-op, not an error.
	if err := store.MoveObject(ctx, src, dst); err != nil {
		t.Fatalf("repeat move failed: %v", err)
	}

	// Moving a key that exists nowhere is a real failure.
	if err := store.MoveObject(ctx, "orders/2026-01-03/ghost.json", "processed/orders/2026-01-03/ghost.json"); err == nil {
		t.Fatal("expected error moving a nonexistent key")
	}
}

func TestMemoryStoreMoveIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.PutObject(ctx, "a/k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := store.MoveObject(ctx, "a/k", "b/k"); err != nil {
		t.Fatal(err)
	}
	if err := store.MoveObject(ctx, "a/k", "b/k"); err != nil {
		t.Fatalf("repeat move failed: %v", err)
	}
	if err := store.MoveObject(ctx, "a/ghost", "b/ghost"); err == nil {
		t.Fatal("expected error moving a nonexistent key")
	}

	data, err := store.GetObject(ctx, "b/k")
	if err != nil || string(data) != "v" {
		t.Fatalf("destination wrong after move: %q %v", data, err)
	}
}

func TestFSStoreRemoveMissingKey(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := store.RemoveObject(context.Background(), "output/2026-01-03/nothing.txt"); err != nil {
		t.Fatalf("removing a missing key must not fail: %v", err)
	}
}
