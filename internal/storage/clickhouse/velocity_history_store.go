package clickhouse

import (
	"context"
	"fmt"

	"stockpulse/internal/domain"
	"stockpulse/internal/storage"
)

// VelocityHistoryStore implements storage.VelocityHistoryStore using ClickHouse.
// Velocity points are write-once analytics rows; MergeTree ordering gives
// cheap per-SKU range scans.
type VelocityHistoryStore struct {
	conn *Conn
}

// NewVelocityHistoryStore creates a new VelocityHistoryStore.
func NewVelocityHistoryStore(conn *Conn) *VelocityHistoryStore {
	return &VelocityHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.VelocityHistoryStore = (*VelocityHistoryStore)(nil)

// InsertBulk adds multiple velocity points in one batch.
func (s *VelocityHistoryStore) InsertBulk(ctx context.Context, points []*domain.VelocityPoint) error {
	if len(points) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO velocity_history (store_id, sku, timestamp, daily_velocity, confidence)
	`)
	if err != nil {
		return fmt.Errorf("prepare velocity history batch: %w", err)
	}

	for _, p := range points {
		if p == nil {
			return storage.ErrInvalidInput
		}
		if err := batch.Append(p.StoreID, p.SKU, p.Timestamp, p.DailyVelocity, string(p.Confidence)); err != nil {
			return fmt.Errorf("append velocity point: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send velocity history batch: %w", err)
	}

	return nil
}

// GetBySKUTimeRange retrieves points for a SKU within [start, end), ordered by timestamp ASC.
func (s *VelocityHistoryStore) GetBySKUTimeRange(ctx context.Context, storeID, sku string, start, end int64) ([]*domain.VelocityPoint, error) {
	query := `
		SELECT store_id, sku, timestamp, daily_velocity, confidence
		FROM velocity_history
		WHERE store_id = ? AND sku = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query, storeID, sku, start, end)
	if err != nil {
		return nil, fmt.Errorf("get velocity points by sku/time range: %w", err)
	}
	defer rows.Close()

	var points []*domain.VelocityPoint
	for rows.Next() {
		var p domain.VelocityPoint
		var confidence string

		err := rows.Scan(&p.StoreID, &p.SKU, &p.Timestamp, &p.DailyVelocity, &confidence)
		if err != nil {
			return nil, fmt.Errorf("scan velocity point row: %w", err)
		}

		p.Confidence = domain.Confidence(confidence)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate velocity point rows: %w", err)
	}

	return points, nil
}
