// Package facts builds the strict two-table fact model feeding decision
// rules: items that sold this period (sales facts) and all sellable items
// (inventory facts). The tables are gated independently; rows that fail
// validation are dropped, never patched with fabricated values.
package facts

import (
	"log"
	"math"
	"time"

	"stockpulse/internal/domain"
)

// Config holds the tuned fact-table thresholds. Zero values are replaced
// with defaults by NewBuilder.
type Config struct {
	// SlowMoverVelocity: velocity strictly below this marks a slow mover.
	SlowMoverVelocity float64
	// SlowMoverIdleDays: this many days without a sale also marks a slow mover.
	SlowMoverIdleDays int
}

// DefaultConfig returns the hand-tuned defaults.
func DefaultConfig() Config {
	return Config{
		SlowMoverVelocity: 0.1,
		SlowMoverIdleDays: 14,
	}
}

// PeriodSales aggregates one SKU's sales over the observation period.
type PeriodSales struct {
	SKU       string
	UnitsSold int
	Revenue   float64 // sum(quantity * sold_price) over priced events
}

// AggregatePeriodSales groups events by SKU. Events without a price
// contribute units but no revenue; revenue is never estimated.
func AggregatePeriodSales(events []*domain.SalesEvent) map[string]PeriodSales {
	out := make(map[string]PeriodSales)
	for _, e := range events {
		ps := out[e.SKU]
		ps.SKU = e.SKU
		ps.UnitsSold += e.Quantity
		if e.SoldPrice != nil {
			ps.Revenue += float64(e.Quantity) * *e.SoldPrice
		}
		out[e.SKU] = ps
	}
	return out
}

// Input is the envelope the builder consumes for one item: the snapshot row
// with its derived velocity and the most recent sale time, if any.
type Input struct {
	Item          domain.InventoryItem
	DailyVelocity float64
	VelocityKnown bool   // false when the velocity stage produced nothing
	LastSoldAt    *int64 // Unix ms; nil when the SKU never sold
}

// Builder assembles fact tables.
type Builder struct {
	cfg Config
}

// NewBuilder creates a fact-table builder.
func NewBuilder(cfg Config) *Builder {
	def := DefaultConfig()
	if cfg.SlowMoverVelocity == 0 {
		cfg.SlowMoverVelocity = def.SlowMoverVelocity
	}
	if cfg.SlowMoverIdleDays == 0 {
		cfg.SlowMoverIdleDays = def.SlowMoverIdleDays
	}
	return &Builder{cfg: cfg}
}

// Build produces both tables from the same enriched input. Gates:
//
//	SALES_FACT:     resolvable SKU and name, units_sold > 0
//	INVENTORY_FACT: resolvable SKU and name, available_quantity >= 0
//
// A velocity of exactly 0 is retained in inventory facts: it distinguishes
// a genuinely dead SKU from one excluded for missing data.
func (b *Builder) Build(inputs []Input, sales map[string]PeriodSales, now int64) *domain.FactTables {
	tables := &domain.FactTables{}

	for _, in := range inputs {
		if in.Item.SKU == "" || in.Item.Name == "" {
			log.Printf("[facts] dropping row sku=%q name=%q: missing required field", in.Item.SKU, in.Item.Name)
			tables.DroppedRows++
			continue
		}

		if ps, ok := sales[in.Item.SKU]; ok && ps.UnitsSold > 0 {
			tables.Sales = append(tables.Sales, b.buildSalesFact(in, ps))
		}

		if in.Item.Quantity >= 0 {
			tables.Inventory = append(tables.Inventory, b.buildInventoryFact(in, now))
		}
	}

	return tables
}

// buildSalesFact derives one sold-this-period row. Margin is computed only
// when unit cost and revenue are both positive; otherwise it stays nil.
func (b *Builder) buildSalesFact(in Input, ps PeriodSales) domain.SalesFact {
	fact := domain.SalesFact{
		SKU:           in.Item.SKU,
		Name:          in.Item.Name,
		UnitsSold:     ps.UnitsSold,
		Revenue:       ps.Revenue,
		UnitCost:      in.Item.Pricing.Cost,
		DailyVelocity: in.DailyVelocity,
	}

	fact.AvgUnitPrice = ps.Revenue / float64(ps.UnitsSold)

	if in.Item.Pricing.Cost != nil && *in.Item.Pricing.Cost > 0 && ps.Revenue > 0 {
		margin := fact.AvgUnitPrice - *in.Item.Pricing.Cost
		fact.UnitMargin = &margin
		if fact.AvgUnitPrice > 0 {
			pct := margin / fact.AvgUnitPrice * 100
			fact.MarginPercent = &pct
		}
	}

	if in.DailyVelocity > 0 && in.Item.Quantity >= 0 {
		cover := float64(in.Item.Quantity) / in.DailyVelocity
		fact.DaysOfCover = &cover
	}

	return fact
}

// buildInventoryFact derives one all-sellable row.
func (b *Builder) buildInventoryFact(in Input, now int64) domain.InventoryFact {
	fact := domain.InventoryFact{
		SKU:               in.Item.SKU,
		Name:              in.Item.Name,
		AvailableQuantity: in.Item.Quantity,
		DailyVelocity:     in.DailyVelocity,
		UnitCost:          in.Item.Pricing.Cost,
	}

	if in.Item.Pricing.Cost != nil && in.Item.Pricing.Retail != nil && *in.Item.Pricing.Cost > 0 {
		margin := *in.Item.Pricing.Retail - *in.Item.Pricing.Cost
		fact.UnitMargin = &margin
	}

	if in.LastSoldAt != nil {
		days := int(math.Floor(float64(now-*in.LastSoldAt) / float64(24*time.Hour/time.Millisecond)))
		if days < 0 {
			days = 0
		}
		fact.DaysSinceLastSale = &days
	}

	fact.IsSlowMover = in.DailyVelocity < b.cfg.SlowMoverVelocity ||
		(fact.DaysSinceLastSale != nil && *fact.DaysSinceLastSale >= b.cfg.SlowMoverIdleDays)

	return fact
}

// ComputeWeightedMargin is the revenue-weighted average margin over sales
// facts only: sum(unit_margin * units_sold) / sum(revenue). Inventory-only
// SKUs without sales never suppress or zero the average. When no sales fact
// carries a margin the result is nil with an explicit reason.
func ComputeWeightedMargin(sales []domain.SalesFact) domain.MarginSummary {
	var weightedSum, revenueSum float64
	considered := 0

	for _, f := range sales {
		if f.UnitMargin == nil || f.Revenue <= 0 {
			continue
		}
		weightedSum += *f.UnitMargin * float64(f.UnitsSold)
		revenueSum += f.Revenue
		considered++
	}

	if considered == 0 || revenueSum == 0 {
		return domain.MarginSummary{
			AverageMargin: nil,
			Reason:        "no sales with known margin in the period",
		}
	}

	avg := weightedSum / revenueSum
	return domain.MarginSummary{
		AverageMargin:   &avg,
		FactsConsidered: considered,
	}
}
