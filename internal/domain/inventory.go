package domain

// Pricing holds the cost/retail side of an inventory item.
// Missing values stay nil; margin is never derived from a fabricated cost.
type Pricing struct {
	Cost          *float64 // unit cost (nullable)
	Retail        *float64 // unit retail price (nullable)
	MarginPercent *float64 // (retail-cost)/retail * 100 when both known
}

// InventoryItem is one sellable line in a store snapshot, as supplied by
// the catalog/webhook resolution layer. SKU uniqueness is guaranteed upstream.
type InventoryItem struct {
	SKU      string
	Name     string
	Quantity int // on-hand units; negative means defective source data
	Pricing  Pricing
}

// Snapshot is a point-in-time inventory picture for one store.
type Snapshot struct {
	SnapshotID   string
	StoreID      string
	TakenAt      int64 // Unix timestamp in milliseconds
	Items        []InventoryItem
	TotalRevenue *float64 // period revenue at snapshot time (nullable)
	AvgMarginPct *float64 // period average margin in points (nullable)
}

// ItemDelta describes movement of one SKU between two snapshots.
// Built by comparing the current snapshot against the prior one; absent
// when there is no prior snapshot for the SKU.
type ItemDelta struct {
	SKU                  string
	QuantityDelta        int     // current - prior on-hand
	QuantityDeltaPercent float64 // relative to prior on-hand
	VelocityDeltaPercent float64 // relative to prior velocity
	HasAccelerated       bool    // velocity rose beyond the acceleration threshold
}

// ItemByID returns the snapshot item for a SKU, or false if absent.
func (s *Snapshot) ItemByID(sku string) (InventoryItem, bool) {
	for _, item := range s.Items {
		if item.SKU == sku {
			return item, true
		}
	}
	return InventoryItem{}, false
}
