package memory

import (
	"context"
	"sort"
	"sync"

	"stockpulse/internal/domain"
	"stockpulse/internal/storage"
)

// SalesEventStore is an in-memory implementation of storage.SalesEventStore.
type SalesEventStore struct {
	mu   sync.RWMutex
	data []*domain.SalesEvent
	keys map[string]bool
}

// NewSalesEventStore creates a new in-memory sales event store.
func NewSalesEventStore() *SalesEventStore {
	return &SalesEventStore{
		data: make([]*domain.SalesEvent, 0),
		keys: make(map[string]bool),
	}
}

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *SalesEventStore) Insert(_ context.Context, e *domain.SalesEvent) error {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keys[e.EventID] {
		return storage.ErrDuplicateKey
	}

	// Store a copy
	cp := *e
	s.data = append(s.data, &cp)
	s.keys[e.EventID] = true

	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *SalesEventStore) InsertBulk(_ context.Context, events []*domain.SalesEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check for duplicates (both existing and intra-batch)
	batchKeys := make(map[string]bool)
	for _, e := range events {
		if e == nil || e.EventID == "" {
			return storage.ErrInvalidInput
		}
		if s.keys[e.EventID] || batchKeys[e.EventID] {
			return storage.ErrDuplicateKey
		}
		batchKeys[e.EventID] = true
	}

	for _, e := range events {
		cp := *e
		s.data = append(s.data, &cp)
		s.keys[e.EventID] = true
	}

	return nil
}

// GetByStoreTimeRange retrieves events for a store within [start, end).
func (s *SalesEventStore) GetByStoreTimeRange(_ context.Context, storeID string, start, end int64) ([]*domain.SalesEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SalesEvent
	for _, e := range s.data {
		if e.StoreID == storeID && e.SoldAt >= start && e.SoldAt < end {
			cp := *e
			result = append(result, &cp)
		}
	}

	sortSalesEvents(result)

	return result, nil
}

// GetBySKUTimeRange retrieves events for one SKU within [start, end).
func (s *SalesEventStore) GetBySKUTimeRange(_ context.Context, storeID, sku string, start, end int64) ([]*domain.SalesEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SalesEvent
	for _, e := range s.data {
		if e.StoreID == storeID && e.SKU == sku && e.SoldAt >= start && e.SoldAt < end {
			cp := *e
			result = append(result, &cp)
		}
	}

	sortSalesEvents(result)

	return result, nil
}

// GetDistinctSKUsByTimeRange returns all SKUs with sales in [start, end), sorted.
func (s *SalesEventStore) GetDistinctSKUsByTimeRange(_ context.Context, storeID string, start, end int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	skus := make(map[string]bool)
	for _, e := range s.data {
		if e.StoreID == storeID && e.SoldAt >= start && e.SoldAt < end {
			skus[e.SKU] = true
		}
	}

	result := make([]string, 0, len(skus))
	for sku := range skus {
		result = append(result, sku)
	}

	// Sort for deterministic ordering
	sort.Strings(result)

	return result, nil
}

// GetLastSaleTime returns the most recent sold_at for a SKU.
func (s *SalesEventStore) GetLastSaleTime(_ context.Context, storeID, sku string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last int64
	found := false
	for _, e := range s.data {
		if e.StoreID == storeID && e.SKU == sku {
			if !found || e.SoldAt > last {
				last = e.SoldAt
			}
			found = true
		}
	}

	if !found {
		return 0, storage.ErrNotFound
	}

	return last, nil
}

// sortSalesEvents sorts events by (sold_at, sku, event_id).
func sortSalesEvents(events []*domain.SalesEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].SoldAt != events[j].SoldAt {
			return events[i].SoldAt < events[j].SoldAt
		}
		if events[i].SKU != events[j].SKU {
			return events[i].SKU < events[j].SKU
		}
		return events[i].EventID < events[j].EventID
	})
}

// Verify interface compliance at compile time.
var _ storage.SalesEventStore = (*SalesEventStore)(nil)
