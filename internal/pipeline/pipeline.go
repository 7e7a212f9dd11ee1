// Package pipeline provides the velocity-to-verdict orchestration.
// It coordinates: velocity → signals → fact tables → decisions → verdict.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"stockpulse/internal/decay"
	"stockpulse/internal/decision"
	"stockpulse/internal/domain"
	"stockpulse/internal/facts"
	"stockpulse/internal/signal"
	"stockpulse/internal/storage"
	"stockpulse/internal/velocity"
	"stockpulse/internal/verdict"
)

// Options for creating a Pipeline.
type Options struct {
	// EventStore is required; all velocity and fact inputs come from it.
	EventStore storage.SalesEventStore

	// SnapshotStore is optional. Without it no prior-period deltas or
	// snapshot-count confidence evolution are computed.
	SnapshotStore storage.SnapshotStore

	// VelocityHistory is optional. When set, each run records per-SKU
	// velocity points and prior-period velocity deltas use the stored points.
	VelocityHistory storage.VelocityHistoryStore

	// Stage configs; zero values take stage defaults.
	VelocityConfig velocity.Config
	SignalConfig   signal.Config
	FactsConfig    facts.Config
	DecisionConfig decision.Config
	VerdictConfig  verdict.Config

	// ObservationDays is the trailing velocity window. Default 30.
	ObservationDays int

	// AccelerationPercent is the velocity rise vs the prior period that
	// counts as acceleration. Default 25.
	AccelerationPercent float64

	Verbose bool
}

// Pipeline executes the full decision pipeline for one store.
// Every stage consumes and produces immutable values; caller inputs are
// never mutated.
type Pipeline struct {
	events          storage.SalesEventStore
	snapshots       storage.SnapshotStore
	velocityHistory storage.VelocityHistoryStore

	model      *velocity.Model
	classifier *signal.Classifier
	builder    *facts.Builder
	engine     *decision.Engine
	ranker     *verdict.Ranker

	observationDays     int
	accelerationPercent float64
	verbose             bool
	now                 func() time.Time
}

// New creates a Pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.EventStore == nil {
		return nil, errors.New("pipeline: EventStore is required")
	}
	if opts.ObservationDays == 0 {
		opts.ObservationDays = 30
	}
	if opts.AccelerationPercent == 0 {
		opts.AccelerationPercent = 25
	}

	return &Pipeline{
		events:              opts.EventStore,
		snapshots:           opts.SnapshotStore,
		velocityHistory:     opts.VelocityHistory,
		model:               velocity.New(opts.EventStore, opts.VelocityConfig),
		classifier:          signal.NewClassifier(opts.SignalConfig),
		builder:             facts.NewBuilder(opts.FactsConfig),
		engine:              decision.NewEngine(opts.DecisionConfig),
		ranker:              verdict.NewRanker(opts.VerdictConfig),
		observationDays:     opts.ObservationDays,
		accelerationPercent: opts.AccelerationPercent,
		verbose:             opts.Verbose,
		now:                 func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock sets a custom clock for deterministic output.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.model.WithClock(now)
	p.now = now
	return p
}

// Result contains everything one pipeline invocation produced.
type Result struct {
	StoreID     string
	Signals     []domain.Signal
	Tables      *domain.FactTables
	Decisions   []domain.Decision
	Brief       *domain.ActionBrief
	Verdict     *domain.Verdict
	Margin      domain.MarginSummary
	Errors      []string
	GeneratedAt int64 // Unix ms; the only non-deterministic output field
}

// Run executes the full pipeline over the given snapshot.
// Phases:
//  1. Per-SKU velocity and depletion (bounded concurrent fan-out)
//  2. Prior-snapshot deltas
//  3. Signal classification
//  4. Fact tables and weighted margin
//  5. Decisions and action brief
//  6. Verdict ranking
//  7. Velocity history recording (best effort)
func (p *Pipeline) Run(ctx context.Context, snap *domain.Snapshot) (*Result, error) {
	if snap == nil {
		return nil, errors.New("pipeline: snapshot is required")
	}

	now := p.now()
	result := &Result{
		StoreID:     snap.StoreID,
		GeneratedAt: now.UnixMilli(),
	}

	// Phase 1: velocities
	p.log("Phase 1: Computing velocities for %d items...", len(snap.Items))
	itemVelocities := p.model.ComputeInventoryVelocities(ctx, snap.StoreID, snap.Items, p.observationDays)
	p.log("  Computed %d velocities", len(itemVelocities))

	// Phase 2: prior-period deltas
	p.log("Phase 2: Loading prior snapshot...")
	prior := p.loadPrior(ctx, snap, result)
	deltas := p.computeDeltas(ctx, snap, prior, itemVelocities, result)
	p.log("  Computed %d deltas", len(deltas))

	// Phase 3: signals
	p.log("Phase 3: Classifying signals...")
	result.Signals = p.classifySignals(ctx, snap, itemVelocities, deltas, now)
	p.log("  Emitted %d signals", len(result.Signals))

	// Phase 4: fact tables
	p.log("Phase 4: Building fact tables...")
	tables, err := p.buildTables(ctx, snap, itemVelocities, now)
	if err != nil {
		return nil, fmt.Errorf("phase 4 (fact tables) failed: %w", err)
	}
	result.Tables = tables
	result.Margin = facts.ComputeWeightedMargin(tables.Sales)
	p.log("  %d sales facts, %d inventory facts (%d dropped)",
		len(tables.Sales), len(tables.Inventory), tables.DroppedRows)

	// Phase 5: decisions
	p.log("Phase 5: Evaluating decisions...")
	result.Decisions = p.engine.Evaluate(tables)
	result.Brief = p.engine.BuildBrief(result.Decisions, result.Margin, result.GeneratedAt)
	p.log("  %d decisions", len(result.Decisions))

	// Phase 6: verdict
	p.log("Phase 6: Ranking verdict...")
	result.Verdict = p.ranker.Rank(verdict.Input{
		Tables:     tables,
		Depletions: depletionsBySKU(itemVelocities),
		Current:    summarize(snap),
		Prior:      summarize(prior),
	}, result.GeneratedAt)
	p.log("  Verdict: %s", result.Verdict.Type)

	// Phase 7: velocity history
	if p.velocityHistory != nil {
		if err := p.recordVelocityHistory(ctx, snap.StoreID, itemVelocities, now); err != nil {
			// Recording is observability, not output; keep the result.
			result.Errors = append(result.Errors, fmt.Sprintf("record velocity history: %v", err))
		}
	}

	return result, nil
}

// loadPrior fetches the snapshot preceding the current one, if any.
func (p *Pipeline) loadPrior(ctx context.Context, snap *domain.Snapshot, result *Result) *domain.Snapshot {
	if p.snapshots == nil {
		return nil
	}
	prior, err := p.snapshots.GetPrevious(ctx, snap.StoreID, snap.TakenAt)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			result.Errors = append(result.Errors, fmt.Sprintf("load prior snapshot: %v", err))
		}
		return nil
	}
	return prior
}

// computeDeltas derives per-SKU movement vs the prior snapshot. Velocity
// deltas come from recorded history near the prior snapshot time; without
// either source the SKU simply has no delta.
func (p *Pipeline) computeDeltas(ctx context.Context, snap, prior *domain.Snapshot, itemVelocities []velocity.ItemVelocity, result *Result) map[string]*domain.ItemDelta {
	deltas := make(map[string]*domain.ItemDelta)
	if prior == nil {
		return deltas
	}

	for _, iv := range itemVelocities {
		priorItem, ok := prior.ItemByID(iv.Item.SKU)
		if !ok {
			continue
		}

		d := &domain.ItemDelta{
			SKU:           iv.Item.SKU,
			QuantityDelta: iv.Item.Quantity - priorItem.Quantity,
		}
		if priorItem.Quantity != 0 {
			d.QuantityDeltaPercent = float64(d.QuantityDelta) / float64(priorItem.Quantity) * 100
		}

		if priorVel := p.priorVelocity(ctx, snap.StoreID, iv.Item.SKU, prior.TakenAt, result); priorVel != nil && *priorVel > 0 && iv.Metric != nil {
			d.VelocityDeltaPercent = (iv.Metric.DailyVelocity - *priorVel) / *priorVel * 100
			d.HasAccelerated = d.VelocityDeltaPercent > p.accelerationPercent
		}

		deltas[iv.Item.SKU] = d
	}

	return deltas
}

// priorVelocity looks up the recorded velocity closest to the prior
// snapshot. Nil when no history is available.
func (p *Pipeline) priorVelocity(ctx context.Context, storeID, sku string, priorTakenAt int64, result *Result) *float64 {
	if p.velocityHistory == nil {
		return nil
	}

	const window = int64(24 * time.Hour / time.Millisecond)
	points, err := p.velocityHistory.GetBySKUTimeRange(ctx, storeID, sku, priorTakenAt-window, priorTakenAt+window)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("prior velocity for %s: %v", sku, err))
		return nil
	}
	if len(points) == 0 {
		return nil
	}

	// Points are ordered by timestamp; the last is closest to the snapshot.
	v := points[len(points)-1].DailyVelocity
	return &v
}

// classifySignals runs the classifier per item, evolves confidence by
// snapshot persistence, and caps it by the snapshot's age.
func (p *Pipeline) classifySignals(ctx context.Context, snap *domain.Snapshot, itemVelocities []velocity.ItemVelocity, deltas map[string]*domain.ItemDelta, now time.Time) []domain.Signal {
	windowStart := now.UnixMilli() - int64(p.observationDays)*int64(24*time.Hour/time.Millisecond)

	signals := make([]domain.Signal, 0, len(itemVelocities))
	for _, iv := range itemVelocities {
		sig := p.classifier.Classify(signal.Input{
			Item:      iv.Item,
			Metric:    iv.Metric,
			Depletion: iv.Depletion,
		}, deltas[iv.Item.SKU])

		if p.snapshots != nil {
			count, err := p.snapshots.CountForSKUSince(ctx, snap.StoreID, iv.Item.SKU, windowStart)
			if err != nil {
				log.Printf("[pipeline] snapshot count for %s failed: %v", iv.Item.SKU, err)
			} else {
				sig.Confidence = signal.EvolveConfidence(sig.Confidence, count)
			}
		}

		// A snapshot older than the recency window cannot carry a fresh
		// confidence, however persistent the signal is.
		sig.Confidence = decay.AdjustConfidenceForAge(sig.Confidence, snap.TakenAt, now.UnixMilli())

		signals = append(signals, sig)
	}

	return signals
}

// buildTables aggregates period sales and assembles both fact tables.
func (p *Pipeline) buildTables(ctx context.Context, snap *domain.Snapshot, itemVelocities []velocity.ItemVelocity, now time.Time) (*domain.FactTables, error) {
	end := now.UnixMilli()
	start := end - int64(p.observationDays)*int64(24*time.Hour/time.Millisecond)

	events, err := p.events.GetByStoreTimeRange(ctx, snap.StoreID, start, end)
	if err != nil {
		return nil, fmt.Errorf("load period events: %w", err)
	}
	periodSales := facts.AggregatePeriodSales(events)

	inputs := make([]facts.Input, 0, len(itemVelocities))
	for _, iv := range itemVelocities {
		in := facts.Input{Item: iv.Item}
		if iv.Metric != nil {
			in.DailyVelocity = iv.Metric.DailyVelocity
			in.VelocityKnown = iv.Metric.Confidence != domain.ConfidenceError
		}

		lastSale, err := p.events.GetLastSaleTime(ctx, snap.StoreID, iv.Item.SKU)
		if err == nil {
			in.LastSoldAt = &lastSale
		} else if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("[pipeline] last sale time for %s failed: %v", iv.Item.SKU, err)
		}

		inputs = append(inputs, in)
	}

	return p.builder.Build(inputs, periodSales, end), nil
}

// recordVelocityHistory persists this run's velocity points.
func (p *Pipeline) recordVelocityHistory(ctx context.Context, storeID string, itemVelocities []velocity.ItemVelocity, now time.Time) error {
	points := make([]*domain.VelocityPoint, 0, len(itemVelocities))
	for _, iv := range itemVelocities {
		if iv.Metric == nil {
			continue
		}
		points = append(points, &domain.VelocityPoint{
			StoreID:       storeID,
			SKU:           iv.Item.SKU,
			Timestamp:     now.UnixMilli(),
			DailyVelocity: iv.Metric.DailyVelocity,
			Confidence:    iv.Metric.Confidence,
		})
	}
	return p.velocityHistory.InsertBulk(ctx, points)
}

// depletionsBySKU indexes forecasts for the verdict ranker.
func depletionsBySKU(itemVelocities []velocity.ItemVelocity) map[string]*domain.DepletionForecast {
	out := make(map[string]*domain.DepletionForecast, len(itemVelocities))
	for _, iv := range itemVelocities {
		if iv.Depletion != nil {
			out[iv.Item.SKU] = iv.Depletion
		}
	}
	return out
}

// summarize extracts the period aggregates the verdict families compare.
func summarize(snap *domain.Snapshot) *verdict.PeriodSummary {
	if snap == nil {
		return nil
	}
	return &verdict.PeriodSummary{
		TakenAt:      snap.TakenAt,
		TotalRevenue: snap.TotalRevenue,
		AvgMarginPct: snap.AvgMarginPct,
	}
}

func (p *Pipeline) log(format string, args ...interface{}) {
	if p.verbose {
		log.Printf("[pipeline] "+format, args...)
	}
}
