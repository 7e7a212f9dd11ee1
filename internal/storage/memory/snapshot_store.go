package memory

import (
	"context"
	"sync"

	"stockpulse/internal/domain"
	"stockpulse/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data []*domain.Snapshot
	keys map[string]bool
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make([]*domain.Snapshot, 0),
		keys: make(map[string]bool),
	}
}

// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.Snapshot) error {
	if snap == nil || snap.SnapshotID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keys[snap.SnapshotID] {
		return storage.ErrDuplicateKey
	}

	s.data = append(s.data, copySnapshot(snap))
	s.keys[snap.SnapshotID] = true

	return nil
}

// GetLatest retrieves the most recent snapshot for a store.
func (s *SnapshotStore) GetLatest(_ context.Context, storeID string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.Snapshot
	for _, snap := range s.data {
		if snap.StoreID != storeID {
			continue
		}
		if latest == nil || snap.TakenAt > latest.TakenAt {
			latest = snap
		}
	}

	if latest == nil {
		return nil, storage.ErrNotFound
	}

	return copySnapshot(latest), nil
}

// GetPrevious retrieves the most recent snapshot taken strictly before the
// given timestamp.
func (s *SnapshotStore) GetPrevious(_ context.Context, storeID string, before int64) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var prev *domain.Snapshot
	for _, snap := range s.data {
		if snap.StoreID != storeID || snap.TakenAt >= before {
			continue
		}
		if prev == nil || snap.TakenAt > prev.TakenAt {
			prev = snap
		}
	}

	if prev == nil {
		return nil, storage.ErrNotFound
	}

	return copySnapshot(prev), nil
}

// CountForSKUSince counts snapshots since the given timestamp containing the SKU.
func (s *SnapshotStore) CountForSKUSince(_ context.Context, storeID, sku string, since int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, snap := range s.data {
		if snap.StoreID != storeID || snap.TakenAt < since {
			continue
		}
		if _, ok := snap.ItemByID(sku); ok {
			count++
		}
	}

	return count, nil
}

// copySnapshot deep-copies a snapshot so callers never share item slices.
func copySnapshot(snap *domain.Snapshot) *domain.Snapshot {
	cp := *snap
	cp.Items = make([]domain.InventoryItem, len(snap.Items))
	copy(cp.Items, snap.Items)
	return &cp
}

// Verify interface compliance at compile time.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)
