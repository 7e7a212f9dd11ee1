package pipeline

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"stockpulse/internal/domain"
	"stockpulse/internal/storage/memory"
)

const dayMs = int64(24 * time.Hour / time.Millisecond)

var analysisTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func floatPtr(v float64) *float64 { return &v }

// seedStore builds a memory fixture: one fast seller, one slow mover and one
// out-of-stock SKU, plus a prior snapshot for delta computation.
func seedStore(t *testing.T) (*memory.SalesEventStore, *memory.SnapshotStore, *domain.Snapshot) {
	t.Helper()
	ctx := context.Background()
	now := analysisTime.UnixMilli()

	events := memory.NewSalesEventStore()
	var batch []*domain.SalesEvent
	// FAST: 2 units/day for 25 days
	for d := 1; d <= 25; d++ {
		batch = append(batch, &domain.SalesEvent{
			EventID: fmt.Sprintf("fast-%d", d), StoreID: "s1", SKU: "FAST",
			Quantity: 2, SoldPrice: floatPtr(10), SoldAt: now - int64(d)*dayMs,
		})
	}
	// SLOW: a single sale 20 days ago
	batch = append(batch, &domain.SalesEvent{
		EventID: "slow-1", StoreID: "s1", SKU: "SLOW",
		Quantity: 1, SoldPrice: floatPtr(25), SoldAt: now - 20*dayMs,
	})
	if err := events.InsertBulk(ctx, batch); err != nil {
		t.Fatalf("seed events: %v", err)
	}

	items := []domain.InventoryItem{
		{SKU: "FAST", Name: "Fast Seller", Quantity: 8, Pricing: domain.Pricing{Cost: floatPtr(4), Retail: floatPtr(10)}},
		{SKU: "SLOW", Name: "Slow Mover", Quantity: 40, Pricing: domain.Pricing{Cost: floatPtr(15), Retail: floatPtr(25)}},
		{SKU: "GONE", Name: "Out Of Stock", Quantity: 0},
	}

	snapshots := memory.NewSnapshotStore()
	prior := &domain.Snapshot{
		SnapshotID: "snap-0", StoreID: "s1", TakenAt: now - 7*dayMs,
		Items:        []domain.InventoryItem{{SKU: "FAST", Name: "Fast Seller", Quantity: 22}, {SKU: "SLOW", Name: "Slow Mover", Quantity: 41}},
		TotalRevenue: floatPtr(600),
	}
	if err := snapshots.Insert(ctx, prior); err != nil {
		t.Fatalf("seed prior snapshot: %v", err)
	}

	current := &domain.Snapshot{
		SnapshotID: "snap-1", StoreID: "s1", TakenAt: now,
		Items:        items,
		TotalRevenue: floatPtr(525),
	}
	if err := snapshots.Insert(ctx, current); err != nil {
		t.Fatalf("seed current snapshot: %v", err)
	}

	return events, snapshots, current
}

func newTestPipeline(t *testing.T, events *memory.SalesEventStore, snapshots *memory.SnapshotStore) *Pipeline {
	t.Helper()
	p, err := New(Options{
		EventStore:      events,
		SnapshotStore:   snapshots,
		VelocityHistory: memory.NewVelocityHistoryStore(),
		ObservationDays: 30,
	})
	if err != nil {
		t.Fatalf("create pipeline: %v", err)
	}
	return p.WithClock(func() time.Time { return analysisTime })
}

func TestRun_FullPipeline(t *testing.T) {
	events, snapshots, snap := seedStore(t)
	p := newTestPipeline(t, events, snapshots)

	result, err := p.Run(context.Background(), snap)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.StoreID != "s1" {
		t.Errorf("expected store s1, got %s", result.StoreID)
	}
	if len(result.Signals) != 3 {
		t.Fatalf("expected 3 signals, got %d", len(result.Signals))
	}
	if result.Tables == nil || len(result.Tables.Inventory) != 3 {
		t.Fatalf("expected 3 inventory facts, got %+v", result.Tables)
	}
	// Only FAST and SLOW sold in the window
	if len(result.Tables.Sales) != 2 {
		t.Errorf("expected 2 sales facts, got %d", len(result.Tables.Sales))
	}

	// FAST sells ~1.67/day with 8 on hand: roughly 5 days of cover → reorder
	var reorder *domain.Decision
	for i := range result.Decisions {
		if result.Decisions[i].SKU == "FAST" && result.Decisions[i].Type == domain.DecisionReorderNow {
			reorder = &result.Decisions[i]
		}
	}
	if reorder == nil {
		t.Fatalf("expected REORDER_NOW for FAST, got %+v", result.Decisions)
	}

	if result.Verdict == nil || result.Verdict.Type != domain.VerdictStockoutRisk {
		t.Errorf("expected stockout_risk verdict, got %+v", result.Verdict)
	}
	if result.Brief == nil || result.Brief.TotalDecisions != len(result.Decisions) {
		t.Errorf("brief out of sync with decisions: %+v", result.Brief)
	}
	if result.Margin.AverageMargin == nil {
		t.Error("expected period margin over priced sales")
	}
}

func TestRun_DeterministicWithFixedClock(t *testing.T) {
	events, snapshots, snap := seedStore(t)
	p := newTestPipeline(t, events, snapshots)

	first, err := p.Run(context.Background(), snap)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := p.Run(context.Background(), snap)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if !reflect.DeepEqual(first.Signals, second.Signals) {
		t.Error("signals differ between identical runs")
	}
	if !reflect.DeepEqual(first.Decisions, second.Decisions) {
		t.Error("decisions differ between identical runs")
	}
	if !reflect.DeepEqual(first.Tables, second.Tables) {
		t.Error("fact tables differ between identical runs")
	}
	if first.Verdict.Type != second.Verdict.Type || first.Verdict.Verdict != second.Verdict.Verdict {
		t.Error("verdict differs between identical runs")
	}
}

func TestRun_NoPriorSnapshotStillProducesResult(t *testing.T) {
	ctx := context.Background()
	events := memory.NewSalesEventStore()
	snapshots := memory.NewSnapshotStore()

	snap := &domain.Snapshot{
		SnapshotID: "only", StoreID: "s1", TakenAt: analysisTime.UnixMilli(),
		Items: []domain.InventoryItem{{SKU: "A", Name: "Item A", Quantity: 10}},
	}
	if err := snapshots.Insert(ctx, snap); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	p := newTestPipeline(t, events, snapshots)
	result, err := p.Run(ctx, snap)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// Never sold: stagnant signal, stable verdict
	if len(result.Signals) != 1 || result.Signals[0].Type != domain.SignalStagnant {
		t.Errorf("expected single STAGNANT signal, got %+v", result.Signals)
	}
	if result.Verdict.Type != domain.VerdictStable {
		t.Errorf("expected stable verdict, got %s", result.Verdict.Type)
	}
	if result.Margin.AverageMargin != nil {
		t.Error("expected nil margin with no sales")
	}
}

func TestRun_OldSnapshotCapsSignalConfidence(t *testing.T) {
	ctx := context.Background()
	events := memory.NewSalesEventStore()
	snapshots := memory.NewSnapshotStore()

	// Taken 20 days before the analysis clock
	snap := &domain.Snapshot{
		SnapshotID: "old", StoreID: "s1", TakenAt: analysisTime.UnixMilli() - 20*dayMs,
		Items: []domain.InventoryItem{{SKU: "A", Name: "Item A", Quantity: 10}},
	}
	if err := snapshots.Insert(ctx, snap); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	p := newTestPipeline(t, events, snapshots)
	result, err := p.Run(ctx, snap)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(result.Signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(result.Signals))
	}
	if result.Signals[0].Confidence != domain.ConfidenceStale {
		t.Errorf("expected stale confidence for 20-day-old snapshot, got %s", result.Signals[0].Confidence)
	}
}

func TestRun_NilSnapshotRejected(t *testing.T) {
	events, snapshots, _ := seedStore(t)
	p := newTestPipeline(t, events, snapshots)

	if _, err := p.Run(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil snapshot")
	}
}

func TestNew_RequiresEventStore(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without event store")
	}
}
