package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"stockpulse/internal/domain"
	"stockpulse/internal/storage"
)

// SalesEventStore implements storage.SalesEventStore using PostgreSQL.
type SalesEventStore struct {
	pool *Pool
}

// NewSalesEventStore creates a new SalesEventStore.
func NewSalesEventStore(pool *Pool) *SalesEventStore {
	return &SalesEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SalesEventStore = (*SalesEventStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *SalesEventStore) Insert(ctx context.Context, e *domain.SalesEvent) error {
	query := `
		INSERT INTO sales_events (
			event_id, store_id, sku, quantity, sold_price, sold_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		e.EventID,
		e.StoreID,
		e.SKU,
		e.Quantity,
		e.SoldPrice,
		e.SoldAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert sales event: %w", err)
	}
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *SalesEventStore) InsertBulk(ctx context.Context, events []*domain.SalesEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO sales_events (
			event_id, store_id, sku, quantity, sold_price, sold_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, e := range events {
		_, err := tx.Exec(ctx, query,
			e.EventID,
			e.StoreID,
			e.SKU,
			e.Quantity,
			e.SoldPrice,
			e.SoldAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert sales event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByStoreTimeRange retrieves events for a store within [start, end).
func (s *SalesEventStore) GetByStoreTimeRange(ctx context.Context, storeID string, start, end int64) ([]*domain.SalesEvent, error) {
	query := `
		SELECT event_id, store_id, sku, quantity, sold_price, sold_at
		FROM sales_events
		WHERE store_id = $1 AND sold_at >= $2 AND sold_at < $3
		ORDER BY sold_at ASC, sku ASC, event_id ASC
	`

	rows, err := s.pool.Query(ctx, query, storeID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get sales events by store/time range: %w", err)
	}
	defer rows.Close()

	return scanSalesEvents(rows)
}

// GetBySKUTimeRange retrieves events for one SKU within [start, end).
func (s *SalesEventStore) GetBySKUTimeRange(ctx context.Context, storeID, sku string, start, end int64) ([]*domain.SalesEvent, error) {
	query := `
		SELECT event_id, store_id, sku, quantity, sold_price, sold_at
		FROM sales_events
		WHERE store_id = $1 AND sku = $2 AND sold_at >= $3 AND sold_at < $4
		ORDER BY sold_at ASC, event_id ASC
	`

	rows, err := s.pool.Query(ctx, query, storeID, sku, start, end)
	if err != nil {
		return nil, fmt.Errorf("get sales events by sku/time range: %w", err)
	}
	defer rows.Close()

	return scanSalesEvents(rows)
}

// GetDistinctSKUsByTimeRange returns all SKUs with sales in [start, end), sorted.
func (s *SalesEventStore) GetDistinctSKUsByTimeRange(ctx context.Context, storeID string, start, end int64) ([]string, error) {
	query := `
		SELECT DISTINCT sku
		FROM sales_events
		WHERE store_id = $1 AND sold_at >= $2 AND sold_at < $3
		ORDER BY sku ASC
	`

	rows, err := s.pool.Query(ctx, query, storeID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get distinct skus by time range: %w", err)
	}
	defer rows.Close()

	var skus []string
	for rows.Next() {
		var sku string
		if err := rows.Scan(&sku); err != nil {
			return nil, fmt.Errorf("scan sku: %w", err)
		}
		skus = append(skus, sku)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sku rows: %w", err)
	}

	return skus, nil
}

// GetLastSaleTime returns the most recent sold_at for a SKU.
func (s *SalesEventStore) GetLastSaleTime(ctx context.Context, storeID, sku string) (int64, error) {
	query := `
		SELECT sold_at
		FROM sales_events
		WHERE store_id = $1 AND sku = $2
		ORDER BY sold_at DESC
		LIMIT 1
	`

	var soldAt int64
	err := s.pool.QueryRow(ctx, query, storeID, sku).Scan(&soldAt)
	if err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("get last sale time: %w", err)
	}

	return soldAt, nil
}

// scanSalesEvents scans multiple rows into a slice of SalesEvent.
func scanSalesEvents(rows pgx.Rows) ([]*domain.SalesEvent, error) {
	var events []*domain.SalesEvent

	for rows.Next() {
		var e domain.SalesEvent

		err := rows.Scan(
			&e.EventID,
			&e.StoreID,
			&e.SKU,
			&e.Quantity,
			&e.SoldPrice,
			&e.SoldAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sales event row: %w", err)
		}

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales event rows: %w", err)
	}

	return events, nil
}
