package domain

// SalesFact is one row of the sold-this-period table. Only SKUs with
// resolvable identity and units_sold > 0 qualify; anything else is dropped,
// never defaulted.
type SalesFact struct {
	SKU           string
	Name          string
	UnitsSold     int     // > 0
	Revenue       float64 // sum(quantity * sold_price) over the period
	AvgUnitPrice  float64 // Revenue / UnitsSold
	UnitCost      *float64
	UnitMargin    *float64 // AvgUnitPrice - UnitCost, only when cost>0 and revenue>0
	MarginPercent *float64 // UnitMargin / AvgUnitPrice * 100
	DailyVelocity float64
	DaysOfCover   *float64 // on-hand / velocity; nil when velocity is 0
}

// InventoryFact is one row of the all-sellable-items table.
// A velocity of exactly 0 is a meaningful value (genuinely dead SKU),
// distinct from a row excluded for missing data.
type InventoryFact struct {
	SKU               string
	Name              string
	AvailableQuantity int // >= 0
	DailyVelocity     float64
	UnitCost          *float64
	UnitMargin        *float64
	DaysSinceLastSale *int // nil when the SKU never sold in recorded history
	IsSlowMover       bool
}

// FactTables is the strict two-table model feeding decision rules.
type FactTables struct {
	Sales     []SalesFact
	Inventory []InventoryFact
	// DroppedRows counts inputs excluded for missing SKU/name, kept for
	// observability. The rows themselves are never synthesized.
	DroppedRows int
}

// MarginSummary is the revenue-weighted average margin over sales facts.
// AverageMargin is nil, with Reason set, when no sales fact carries a
// margin; it is never zeroed by margin-less rows.
type MarginSummary struct {
	AverageMargin   *float64
	Reason          string
	FactsConsidered int
}
