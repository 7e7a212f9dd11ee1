package storage

import (
	"context"

	"stockpulse/internal/domain"
)

// SalesEventStore provides access to sales_events storage.
// The store is append-only: events are never updated or deleted, and the
// store never fabricates rows for periods without sales.
type SalesEventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
	Insert(ctx context.Context, e *domain.SalesEvent) error

	// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, events []*domain.SalesEvent) error

	// GetByStoreTimeRange retrieves events for a store within [start, end),
	// ordered by (sold_at, sku, event_id) ASC.
	GetByStoreTimeRange(ctx context.Context, storeID string, start, end int64) ([]*domain.SalesEvent, error)

	// GetBySKUTimeRange retrieves events for one SKU within [start, end),
	// ordered by sold_at ASC.
	GetBySKUTimeRange(ctx context.Context, storeID, sku string, start, end int64) ([]*domain.SalesEvent, error)

	// GetDistinctSKUsByTimeRange returns all SKUs with sales in [start, end), sorted.
	GetDistinctSKUsByTimeRange(ctx context.Context, storeID string, start, end int64) ([]string, error)

	// GetLastSaleTime returns the most recent sold_at for a SKU across all
	// recorded history. Returns ErrNotFound if the SKU never sold.
	GetLastSaleTime(ctx context.Context, storeID, sku string) (int64, error)
}

// SnapshotStore provides access to inventory snapshot history.
type SnapshotStore interface {
	// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
	Insert(ctx context.Context, s *domain.Snapshot) error

	// GetLatest retrieves the most recent snapshot for a store.
	// Returns ErrNotFound if the store has no snapshots.
	GetLatest(ctx context.Context, storeID string) (*domain.Snapshot, error)

	// GetPrevious retrieves the most recent snapshot taken strictly before
	// the given timestamp. Returns ErrNotFound if none exists.
	GetPrevious(ctx context.Context, storeID string, before int64) (*domain.Snapshot, error)

	// CountForSKUSince counts snapshots since the given timestamp that
	// contain the SKU, used for confidence evolution across periods.
	CountForSKUSince(ctx context.Context, storeID, sku string, since int64) (int, error)
}

// VelocityHistoryStore persists per-run velocity points for trend queries.
type VelocityHistoryStore interface {
	// InsertBulk adds multiple points.
	InsertBulk(ctx context.Context, points []*domain.VelocityPoint) error

	// GetBySKUTimeRange retrieves points for a SKU within [start, end),
	// ordered by timestamp ASC.
	GetBySKUTimeRange(ctx context.Context, storeID, sku string, start, end int64) ([]*domain.VelocityPoint, error)
}
