package memory

import (
	"context"
	"sort"
	"sync"

	"stockpulse/internal/domain"
	"stockpulse/internal/storage"
)

// VelocityHistoryStore is an in-memory implementation of storage.VelocityHistoryStore.
type VelocityHistoryStore struct {
	mu   sync.RWMutex
	data []*domain.VelocityPoint
}

// NewVelocityHistoryStore creates a new in-memory velocity history store.
func NewVelocityHistoryStore() *VelocityHistoryStore {
	return &VelocityHistoryStore{
		data: make([]*domain.VelocityPoint, 0),
	}
}

// InsertBulk adds multiple points.
func (s *VelocityHistoryStore) InsertBulk(_ context.Context, points []*domain.VelocityPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		if p == nil {
			return storage.ErrInvalidInput
		}
		cp := *p
		s.data = append(s.data, &cp)
	}

	return nil
}

// GetBySKUTimeRange retrieves points for a SKU within [start, end).
func (s *VelocityHistoryStore) GetBySKUTimeRange(_ context.Context, storeID, sku string, start, end int64) ([]*domain.VelocityPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.VelocityPoint
	for _, p := range s.data {
		if p.StoreID == storeID && p.SKU == sku && p.Timestamp >= start && p.Timestamp < end {
			cp := *p
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.VelocityHistoryStore = (*VelocityHistoryStore)(nil)
