package memory

import (
	"context"
	"errors"
	"testing"

	"stockpulse/internal/domain"
	"stockpulse/internal/storage"
)

func snapshot(id, storeID string, takenAt int64, skus ...string) *domain.Snapshot {
	snap := &domain.Snapshot{SnapshotID: id, StoreID: storeID, TakenAt: takenAt}
	for _, sku := range skus {
		snap.Items = append(snap.Items, domain.InventoryItem{SKU: sku, Name: "Item " + sku, Quantity: 1})
	}
	return snap
}

func TestSnapshotStore_InsertAndDuplicate(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshotStore()

	if err := s.Insert(ctx, snapshot("snap-1", "s1", 100, "A")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Insert(ctx, snapshot("snap-1", "s1", 200, "A")); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	if err := s.Insert(ctx, &domain.Snapshot{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSnapshotStore_GetLatest(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshotStore()

	if _, err := s.GetLatest(ctx, "s1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	s.Insert(ctx, snapshot("snap-1", "s1", 100, "A"))
	s.Insert(ctx, snapshot("snap-2", "s1", 300, "A"))
	s.Insert(ctx, snapshot("snap-3", "s1", 200, "A"))
	s.Insert(ctx, snapshot("other", "s2", 900, "A"))

	got, err := s.GetLatest(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SnapshotID != "snap-2" {
		t.Errorf("expected snap-2, got %s", got.SnapshotID)
	}
}

func TestSnapshotStore_GetPreviousIsStrict(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshotStore()
	s.Insert(ctx, snapshot("snap-1", "s1", 100, "A"))
	s.Insert(ctx, snapshot("snap-2", "s1", 200, "A"))

	// Strictly before: the snapshot at the boundary is excluded
	got, err := s.GetPrevious(ctx, "s1", 200)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SnapshotID != "snap-1" {
		t.Errorf("expected snap-1, got %s", got.SnapshotID)
	}

	if _, err := s.GetPrevious(ctx, "s1", 100); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSnapshotStore_CountForSKUSince(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshotStore()
	s.Insert(ctx, snapshot("snap-1", "s1", 100, "A", "B"))
	s.Insert(ctx, snapshot("snap-2", "s1", 200, "A"))
	s.Insert(ctx, snapshot("snap-3", "s1", 300, "B"))

	count, err := s.CountForSKUSince(ctx, "s1", "A", 150)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	// Only snap-2 is both recent enough and contains A
	if count != 1 {
		t.Errorf("expected 1, got %d", count)
	}

	count, _ = s.CountForSKUSince(ctx, "s1", "B", 0)
	if count != 2 {
		t.Errorf("expected 2, got %d", count)
	}
}

func TestSnapshotStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshotStore()
	s.Insert(ctx, snapshot("snap-1", "s1", 100, "A"))

	got, _ := s.GetLatest(ctx, "s1")
	got.Items[0].Quantity = 999

	again, _ := s.GetLatest(ctx, "s1")
	if again.Items[0].Quantity != 1 {
		t.Error("store state leaked through returned snapshot")
	}
}
