package domain

// SalesEvent is a single recorded sale for one SKU at one store.
// Corresponds to sales_events table in PostgreSQL. Append-only: events are
// never mutated and never synthesized for missing periods.
type SalesEvent struct {
	EventID   string   // PRIMARY KEY, caller-supplied (webhook/event id)
	StoreID   string   // retail location
	SKU       string   // stock keeping unit
	Quantity  int      // units sold, > 0
	SoldPrice *float64 // per-unit sale price (nullable; unknown is not zero)
	SoldAt    int64    // Unix timestamp in milliseconds
}
