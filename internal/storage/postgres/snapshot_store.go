package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"stockpulse/internal/domain"
	"stockpulse/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
// Snapshot items are stored as a JSONB document; snapshots are immutable so
// there is no partial-update concern.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil || snap.SnapshotID == "" {
		return storage.ErrInvalidInput
	}

	items, err := json.Marshal(snap.Items)
	if err != nil {
		return fmt.Errorf("marshal snapshot items: %w", err)
	}

	query := `
		INSERT INTO inventory_snapshots (
			snapshot_id, store_id, taken_at, items, total_revenue, avg_margin_pct
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = s.pool.Exec(ctx, query,
		snap.SnapshotID,
		snap.StoreID,
		snap.TakenAt,
		items,
		snap.TotalRevenue,
		snap.AvgMarginPct,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// GetLatest retrieves the most recent snapshot for a store.
func (s *SnapshotStore) GetLatest(ctx context.Context, storeID string) (*domain.Snapshot, error) {
	query := `
		SELECT snapshot_id, store_id, taken_at, items, total_revenue, avg_margin_pct
		FROM inventory_snapshots
		WHERE store_id = $1
		ORDER BY taken_at DESC
		LIMIT 1
	`

	return s.scanOne(ctx, query, storeID)
}

// GetPrevious retrieves the most recent snapshot taken strictly before the
// given timestamp.
func (s *SnapshotStore) GetPrevious(ctx context.Context, storeID string, before int64) (*domain.Snapshot, error) {
	query := `
		SELECT snapshot_id, store_id, taken_at, items, total_revenue, avg_margin_pct
		FROM inventory_snapshots
		WHERE store_id = $1 AND taken_at < $2
		ORDER BY taken_at DESC
		LIMIT 1
	`

	return s.scanOne(ctx, query, storeID, before)
}

// CountForSKUSince counts snapshots since the given timestamp containing the SKU.
func (s *SnapshotStore) CountForSKUSince(ctx context.Context, storeID, sku string, since int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM inventory_snapshots
		WHERE store_id = $1
		  AND taken_at >= $2
		  AND items @> $3::jsonb
	`

	match, err := json.Marshal([]map[string]string{{"SKU": sku}})
	if err != nil {
		return 0, fmt.Errorf("marshal sku match: %w", err)
	}

	var count int
	if err := s.pool.QueryRow(ctx, query, storeID, since, match).Scan(&count); err != nil {
		return 0, fmt.Errorf("count snapshots for sku: %w", err)
	}

	return count, nil
}

// scanOne runs a single-row snapshot query and unmarshals items.
func (s *SnapshotStore) scanOne(ctx context.Context, query string, args ...any) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	var items []byte

	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&snap.SnapshotID,
		&snap.StoreID,
		&snap.TakenAt,
		&items,
		&snap.TotalRevenue,
		&snap.AvgMarginPct,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	if err := json.Unmarshal(items, &snap.Items); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot items: %w", err)
	}

	return &snap, nil
}
