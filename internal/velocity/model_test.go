package velocity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"stockpulse/internal/domain"
	"stockpulse/internal/storage/memory"
)

const dayMs = int64(24 * time.Hour / time.Millisecond)

var analysisTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// seedEvents inserts one-unit sales on n distinct days ending yesterday.
func seedEvents(t *testing.T, store *memory.SalesEventStore, storeID, sku string, unitsPerDay, days int) {
	t.Helper()
	now := analysisTime.UnixMilli()
	var events []*domain.SalesEvent
	for d := 1; d <= days; d++ {
		events = append(events, &domain.SalesEvent{
			EventID:  fmt.Sprintf("%s-d%d", sku, d),
			StoreID:  storeID,
			SKU:      sku,
			Quantity: unitsPerDay,
			SoldAt:   now - int64(d)*dayMs,
		})
	}
	if err := store.InsertBulk(context.Background(), events); err != nil {
		t.Fatalf("seed events: %v", err)
	}
}

func newTestModel(store *memory.SalesEventStore) *Model {
	return New(store, Config{}).WithClock(func() time.Time { return analysisTime })
}

func TestComputeVelocity_MediumConfidence(t *testing.T) {
	store := memory.NewSalesEventStore()
	// 12 units over 12 distinct days in a 30-day window
	seedEvents(t, store, "s1", "WIDGET", 1, 12)
	m := newTestModel(store)

	metric := m.ComputeVelocity(context.Background(), "s1", "WIDGET", 30)

	if math.Abs(metric.DailyVelocity-0.4) > 1e-9 {
		t.Errorf("expected 0.4/day, got %f", metric.DailyVelocity)
	}
	if math.Abs(metric.WeeklyVelocity-2.8) > 1e-9 {
		t.Errorf("expected 2.8/week, got %f", metric.WeeklyVelocity)
	}
	if metric.TotalUnitsSold != 12 {
		t.Errorf("expected 12 units, got %d", metric.TotalUnitsSold)
	}
	if metric.DaysWithSales != 12 {
		t.Errorf("expected 12 days with sales, got %d", metric.DaysWithSales)
	}
	// 12 days >= 10 and 12 units >= 5, but below the 20-day high gate
	if metric.Confidence != domain.ConfidenceMedium {
		t.Errorf("expected medium, got %s", metric.Confidence)
	}
}

func TestComputeVelocity_HighConfidence(t *testing.T) {
	store := memory.NewSalesEventStore()
	seedEvents(t, store, "s1", "WIDGET", 1, 22)
	m := newTestModel(store)

	metric := m.ComputeVelocity(context.Background(), "s1", "WIDGET", 30)

	if metric.Confidence != domain.ConfidenceHigh {
		t.Errorf("expected high, got %s", metric.Confidence)
	}
}

func TestComputeVelocity_SparseSalesLowConfidence(t *testing.T) {
	store := memory.NewSalesEventStore()
	seedEvents(t, store, "s1", "WIDGET", 1, 3)
	m := newTestModel(store)

	metric := m.ComputeVelocity(context.Background(), "s1", "WIDGET", 30)

	if metric.Confidence != domain.ConfidenceLow {
		t.Errorf("expected low, got %s", metric.Confidence)
	}
}

func TestComputeVelocity_WindowTooShort(t *testing.T) {
	store := memory.NewSalesEventStore()
	seedEvents(t, store, "s1", "WIDGET", 1, 3)
	m := newTestModel(store)

	metric := m.ComputeVelocity(context.Background(), "s1", "WIDGET", 5)

	if metric.Confidence != domain.ConfidenceInsufficientData {
		t.Errorf("expected insufficient_data, got %s", metric.Confidence)
	}
	if metric.DailyVelocity != 0 {
		t.Errorf("expected no velocity, got %f", metric.DailyVelocity)
	}
}

func TestComputeVelocity_ZeroSalesIsHighConfidence(t *testing.T) {
	store := memory.NewSalesEventStore()
	m := newTestModel(store)

	metric := m.ComputeVelocity(context.Background(), "s1", "NEVER-SOLD", 30)

	if metric.DailyVelocity != 0 {
		t.Errorf("expected 0 velocity, got %f", metric.DailyVelocity)
	}
	// Zero observed sales is reliable information, not missing data
	if metric.Confidence != domain.ConfidenceHigh {
		t.Errorf("expected high, got %s", metric.Confidence)
	}
}

// failingEventStore fails every query.
type failingEventStore struct {
	memory.SalesEventStore
}

func (f *failingEventStore) GetBySKUTimeRange(context.Context, string, string, int64, int64) ([]*domain.SalesEvent, error) {
	return nil, errors.New("connection refused")
}

func TestComputeVelocity_StoreFailureDegradesToError(t *testing.T) {
	m := New(&failingEventStore{}, Config{}).WithClock(func() time.Time { return analysisTime })

	metric := m.ComputeVelocity(context.Background(), "s1", "WIDGET", 30)

	if metric.Confidence != domain.ConfidenceError {
		t.Errorf("expected error confidence, got %s", metric.Confidence)
	}
}

func TestComputeDaysUntilDepletion(t *testing.T) {
	m := newTestModel(memory.NewSalesEventStore())

	// 20 on hand at 0.4/day → ceil(50) = 50 days, confidence unchanged
	f := m.ComputeDaysUntilDepletion("WIDGET", 20, 0.4, domain.ConfidenceMedium)
	if f.DaysUntilDepletion == nil || *f.DaysUntilDepletion != 50 {
		t.Fatalf("expected 50 days, got %v", f.DaysUntilDepletion)
	}
	if f.Confidence != domain.ConfidenceMedium {
		t.Errorf("expected medium, got %s", f.Confidence)
	}
}

func TestComputeDaysUntilDepletion_OutOfStock(t *testing.T) {
	m := newTestModel(memory.NewSalesEventStore())

	f := m.ComputeDaysUntilDepletion("WIDGET", 0, 0, domain.ConfidenceHigh)
	if f.DaysUntilDepletion == nil || *f.DaysUntilDepletion != 0 {
		t.Fatalf("expected 0 days, got %v", f.DaysUntilDepletion)
	}
	if f.Confidence != domain.ConfidenceHigh {
		t.Errorf("expected high, got %s", f.Confidence)
	}
}

func TestComputeDaysUntilDepletion_NegativeOnHand(t *testing.T) {
	m := newTestModel(memory.NewSalesEventStore())

	f := m.ComputeDaysUntilDepletion("WIDGET", -3, 1.0, domain.ConfidenceHigh)
	if f.DaysUntilDepletion == nil || *f.DaysUntilDepletion != 0 {
		t.Fatalf("expected 0 days, got %v", f.DaysUntilDepletion)
	}
	if f.Confidence != domain.ConfidenceError {
		t.Errorf("expected error confidence, got %s", f.Confidence)
	}
}

func TestComputeDaysUntilDepletion_NoVelocity(t *testing.T) {
	m := newTestModel(memory.NewSalesEventStore())

	f := m.ComputeDaysUntilDepletion("WIDGET", 10, 0, domain.ConfidenceHigh)
	if f.DaysUntilDepletion != nil {
		t.Errorf("expected nil days, got %d", *f.DaysUntilDepletion)
	}
}

func TestComputeDaysUntilDepletion_HorizonAdjustsConfidence(t *testing.T) {
	m := newTestModel(memory.NewSalesEventStore())

	// 2 days out: near-term upgrade
	near := m.ComputeDaysUntilDepletion("WIDGET", 2, 1.0, domain.ConfidenceMedium)
	if near.Confidence != domain.ConfidenceHigh {
		t.Errorf("expected high for near-term, got %s", near.Confidence)
	}

	// 100 days out: far-future downgrade
	far := m.ComputeDaysUntilDepletion("WIDGET", 100, 1.0, domain.ConfidenceMedium)
	if far.Confidence != domain.ConfidenceLow {
		t.Errorf("expected low for far-future, got %s", far.Confidence)
	}
}

func TestComputeInventoryVelocities(t *testing.T) {
	store := memory.NewSalesEventStore()
	seedEvents(t, store, "s1", "A", 1, 12)
	m := newTestModel(store)

	items := []domain.InventoryItem{
		{SKU: "A", Name: "Item A", Quantity: 20},
		{SKU: "", Name: "nameless"}, // skipped, never defaulted
		{SKU: "B", Name: "Item B", Quantity: 5},
	}

	out := m.ComputeInventoryVelocities(context.Background(), "s1", items, 30)

	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
	// Input order is preserved
	if out[0].Item.SKU != "A" || out[1].Item.SKU != "B" {
		t.Errorf("unexpected order: %s, %s", out[0].Item.SKU, out[1].Item.SKU)
	}
	if out[0].Depletion == nil || out[0].Depletion.DaysUntilDepletion == nil || *out[0].Depletion.DaysUntilDepletion != 50 {
		t.Errorf("expected 50-day depletion for A, got %+v", out[0].Depletion)
	}
	// B never sold: zero velocity at high confidence, no depletion horizon
	if out[1].Metric.Confidence != domain.ConfidenceHigh || out[1].Depletion.DaysUntilDepletion != nil {
		t.Errorf("unexpected result for B: %+v", out[1])
	}
}
