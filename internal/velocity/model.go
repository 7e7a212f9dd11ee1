// Package velocity derives per-SKU sale rates and depletion forecasts from
// a bounded window of sales events.
package velocity

import (
	"context"
	"log"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"stockpulse/internal/domain"
	"stockpulse/internal/storage"
)

// Config holds the tuned thresholds of the velocity model. Zero values are
// replaced with defaults by New.
type Config struct {
	// MinObservationDays is the shortest window velocity may be computed over.
	MinObservationDays int
	// High/Medium confidence gates: both days-with-sales and units-sold must pass.
	HighDaysWithSales   int
	HighUnitsSold       int
	MediumDaysWithSales int
	MediumUnitsSold     int
	// NearTermDays upgrades forecast confidence below this horizon;
	// FarTermDays downgrades it beyond.
	NearTermDays int
	FarTermDays  int
	// Concurrency bounds the per-SKU fan-out.
	Concurrency int
}

// DefaultConfig returns the hand-tuned defaults.
func DefaultConfig() Config {
	return Config{
		MinObservationDays:  7,
		HighDaysWithSales:   20,
		HighUnitsSold:       10,
		MediumDaysWithSales: 10,
		MediumUnitsSold:     5,
		NearTermDays:        3,
		FarTermDays:         90,
		Concurrency:         8,
	}
}

// Model computes sale velocity from the append-only event store.
type Model struct {
	events storage.SalesEventStore
	cfg    Config
	now    func() time.Time
}

// New creates a velocity model over the given event store.
func New(events storage.SalesEventStore, cfg Config) *Model {
	def := DefaultConfig()
	if cfg.MinObservationDays == 0 {
		cfg.MinObservationDays = def.MinObservationDays
	}
	if cfg.HighDaysWithSales == 0 {
		cfg.HighDaysWithSales = def.HighDaysWithSales
	}
	if cfg.HighUnitsSold == 0 {
		cfg.HighUnitsSold = def.HighUnitsSold
	}
	if cfg.MediumDaysWithSales == 0 {
		cfg.MediumDaysWithSales = def.MediumDaysWithSales
	}
	if cfg.MediumUnitsSold == 0 {
		cfg.MediumUnitsSold = def.MediumUnitsSold
	}
	if cfg.NearTermDays == 0 {
		cfg.NearTermDays = def.NearTermDays
	}
	if cfg.FarTermDays == 0 {
		cfg.FarTermDays = def.FarTermDays
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}

	return &Model{
		events: events,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock for deterministic output.
func (m *Model) WithClock(now func() time.Time) *Model {
	m.now = now
	return m
}

// ComputeVelocity derives the sale rate for one SKU over the trailing
// observation window. It never returns an error: windows that are too short
// and store failures degrade confidence instead.
func (m *Model) ComputeVelocity(ctx context.Context, storeID, sku string, observationDays int) *domain.VelocityMetric {
	metric := &domain.VelocityMetric{
		SKU:             sku,
		StoreID:         storeID,
		ObservationDays: observationDays,
	}

	if observationDays < m.cfg.MinObservationDays {
		metric.Confidence = domain.ConfidenceInsufficientData
		return metric
	}

	end := m.now().UnixMilli()
	start := end - int64(observationDays)*int64(24*time.Hour/time.Millisecond)

	events, err := m.events.GetBySKUTimeRange(ctx, storeID, sku, start, end)
	if err != nil {
		log.Printf("[velocity] event store query failed for sku=%s: %v", sku, err)
		metric.Confidence = domain.ConfidenceError
		return metric
	}

	totalUnits := 0
	days := make(map[string]bool)
	for _, e := range events {
		totalUnits += e.Quantity
		days[time.UnixMilli(e.SoldAt).UTC().Format("2006-01-02")] = true
	}
	metric.TotalUnitsSold = totalUnits
	metric.DaysWithSales = len(days)

	if totalUnits == 0 {
		// High confidence that there were no sales, not a missing-data penalty.
		metric.Confidence = domain.ConfidenceHigh
		return metric
	}

	metric.DailyVelocity = float64(totalUnits) / float64(observationDays)
	metric.WeeklyVelocity = metric.DailyVelocity * 7
	metric.Confidence = m.tierConfidence(metric.DaysWithSales, totalUnits)

	return metric
}

// tierConfidence grades observation density.
func (m *Model) tierConfidence(daysWithSales, unitsSold int) domain.Confidence {
	switch {
	case daysWithSales >= m.cfg.HighDaysWithSales && unitsSold >= m.cfg.HighUnitsSold:
		return domain.ConfidenceHigh
	case daysWithSales >= m.cfg.MediumDaysWithSales && unitsSold >= m.cfg.MediumUnitsSold:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// ComputeDaysUntilDepletion forecasts when on-hand stock reaches zero.
//
//	velocity 0 or unknown  → nil days ("cannot forecast")
//	onHand 0               → 0 days (already out, regardless of velocity)
//	onHand < 0             → 0 days at error confidence (data defect)
//	otherwise              → ceil(onHand / dailyVelocity)
//
// Near-term horizons (< NearTermDays) upgrade confidence one tier;
// far-future extrapolation (> FarTermDays) downgrades one tier.
func (m *Model) ComputeDaysUntilDepletion(sku string, onHand int, dailyVelocity float64, velocityConfidence domain.Confidence) *domain.DepletionForecast {
	forecast := &domain.DepletionForecast{SKU: sku}

	if onHand < 0 {
		zero := 0
		forecast.DaysUntilDepletion = &zero
		forecast.Confidence = domain.ConfidenceError
		forecast.Message = "on-hand quantity is negative: source data defect, treating as out of stock"
		return forecast
	}

	if onHand == 0 {
		zero := 0
		forecast.DaysUntilDepletion = &zero
		forecast.Confidence = domain.ConfidenceHigh
		forecast.Message = "already out of stock"
		return forecast
	}

	if dailyVelocity <= 0 {
		forecast.DaysUntilDepletion = nil
		forecast.Confidence = velocityConfidence
		forecast.Message = "no sales velocity: cannot forecast depletion"
		return forecast
	}

	days := int(math.Ceil(float64(onHand) / dailyVelocity))
	forecast.DaysUntilDepletion = &days
	forecast.Confidence = velocityConfidence
	forecast.Message = "depletion forecast from current velocity"

	if days < m.cfg.NearTermDays {
		forecast.Confidence = domain.UpgradeConfidence(forecast.Confidence)
	} else if days > m.cfg.FarTermDays {
		forecast.Confidence = domain.DowngradeConfidence(forecast.Confidence)
	}

	return forecast
}

// ItemVelocity pairs a snapshot item with its derived velocity and forecast.
type ItemVelocity struct {
	Item      domain.InventoryItem
	Metric    *domain.VelocityMetric
	Depletion *domain.DepletionForecast
}

// ComputeInventoryVelocities fans ComputeVelocity out over a snapshot with
// bounded concurrency. Items without a SKU are skipped with a logged warning,
// never defaulted. A store failure degrades that SKU only; the batch
// continues.
func (m *Model) ComputeInventoryVelocities(ctx context.Context, storeID string, items []domain.InventoryItem, observationDays int) []ItemVelocity {
	results := make([]*ItemVelocity, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)

	for i, item := range items {
		if item.SKU == "" {
			log.Printf("[velocity] skipping item %q: missing SKU", item.Name)
			continue
		}

		g.Go(func() error {
			metric := m.ComputeVelocity(gctx, storeID, item.SKU, observationDays)
			results[i] = &ItemVelocity{
				Item:      item,
				Metric:    metric,
				Depletion: m.ComputeDaysUntilDepletion(item.SKU, item.Quantity, metric.DailyVelocity, metric.Confidence),
			}
			return nil
		})
	}

	// Workers never return errors; Wait only synchronizes.
	_ = g.Wait()

	out := make([]ItemVelocity, 0, len(items))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
