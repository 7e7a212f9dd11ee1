package verdict

import (
	"math"
	"testing"

	"stockpulse/internal/domain"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func emptyInput() Input {
	return Input{Tables: &domain.FactTables{}}
}

func TestRank_StableDefaultWhenNothingFires(t *testing.T) {
	r := NewRanker(Config{})

	v := r.Rank(emptyInput(), 1000)

	if v.Type != domain.VerdictStable {
		t.Errorf("expected stable, got %s", v.Type)
	}
	if v.Verdict == "" || v.Reason == "" {
		t.Errorf("expected populated stable verdict, got %+v", v)
	}
	if v.RunnerUp != nil {
		t.Error("expected no runner-up for stable verdict")
	}
}

func TestRank_StockoutRisk(t *testing.T) {
	r := NewRanker(Config{})
	in := Input{
		Tables: &domain.FactTables{
			Sales: []domain.SalesFact{{
				SKU: "A", Name: "Item A",
				UnitsSold: 30, Revenue: 300, AvgUnitPrice: 10,
				DailyVelocity: 1.0,
			}},
		},
		Depletions: map[string]*domain.DepletionForecast{
			"A": {SKU: "A", DaysUntilDepletion: intPtr(5), Confidence: domain.ConfidenceMedium},
		},
	}

	v := r.Rank(in, 1000)

	if v.Type != domain.VerdictStockoutRisk {
		t.Fatalf("expected stockout_risk, got %s", v.Type)
	}
	if v.FocusItem != "Item A" {
		t.Errorf("expected focus on Item A, got %s", v.FocusItem)
	}
	// Weekly revenue consequence: 10 * 1.0 * 7 = 70
	top := v.AllSignals[0]
	if top.Consequence == nil || math.Abs(*top.Consequence-70) > 1e-9 {
		t.Errorf("expected consequence 70, got %v", top.Consequence)
	}
}

func TestRank_SlowSellerNotAStockoutRisk(t *testing.T) {
	r := NewRanker(Config{})
	in := Input{
		Tables: &domain.FactTables{
			Sales: []domain.SalesFact{{
				SKU: "A", Name: "Item A",
				UnitsSold: 2, Revenue: 20, AvgUnitPrice: 10,
				DailyVelocity: 0.1,
			}},
		},
		Depletions: map[string]*domain.DepletionForecast{
			"A": {SKU: "A", DaysUntilDepletion: intPtr(5)},
		},
	}

	if v := r.Rank(in, 1000); v.Type != domain.VerdictStable {
		t.Errorf("expected stable, got %s", v.Type)
	}
}

func TestRank_UnderPromotion(t *testing.T) {
	r := NewRanker(Config{})
	in := Input{
		Tables: &domain.FactTables{
			Inventory: []domain.InventoryFact{{
				SKU: "B", Name: "Item B",
				AvailableQuantity: 15, DailyVelocity: 0.1,
				UnitCost: floatPtr(4), UnitMargin: floatPtr(6),
			}},
		},
	}

	v := r.Rank(in, 1000)

	if v.Type != domain.VerdictUnderPromotion {
		t.Fatalf("expected under_promotion, got %s", v.Type)
	}
	// Opportunity: 6 * 15 = 90
	top := v.AllSignals[0]
	if top.Consequence == nil || math.Abs(*top.Consequence-90) > 1e-9 {
		t.Errorf("expected consequence 90, got %v", top.Consequence)
	}
}

func TestRank_RevenueDecline(t *testing.T) {
	r := NewRanker(Config{})
	in := emptyInput()
	in.Current = &PeriodSummary{TakenAt: 2000, TotalRevenue: floatPtr(800)}
	in.Prior = &PeriodSummary{TakenAt: 1000, TotalRevenue: floatPtr(1000)}

	v := r.Rank(in, 1000)

	// 20% decline clears the 15% threshold
	if v.Type != domain.VerdictRevenueDecline {
		t.Fatalf("expected revenue_decline, got %s", v.Type)
	}
	top := v.AllSignals[0]
	if top.Consequence == nil || math.Abs(*top.Consequence-200) > 1e-9 {
		t.Errorf("expected consequence 200, got %v", top.Consequence)
	}
}

func TestRank_SmallRevenueDipDoesNotFire(t *testing.T) {
	r := NewRanker(Config{})
	in := emptyInput()
	in.Current = &PeriodSummary{TakenAt: 2000, TotalRevenue: floatPtr(950)}
	in.Prior = &PeriodSummary{TakenAt: 1000, TotalRevenue: floatPtr(1000)}

	if v := r.Rank(in, 1000); v.Type != domain.VerdictStable {
		t.Errorf("expected stable, got %s", v.Type)
	}
}

func TestRank_DeadStockNeedsCapitalFloor(t *testing.T) {
	r := NewRanker(Config{})
	deadStock := func(qty int, cost float64) Input {
		return Input{
			Tables: &domain.FactTables{
				Inventory: []domain.InventoryFact{{
					SKU: "D", Name: "Dust", AvailableQuantity: qty,
					DailyVelocity: 0.01, UnitCost: floatPtr(cost),
					IsSlowMover: true,
				}},
			},
		}
	}

	// $600 tied up fires
	if v := r.Rank(deadStock(60, 10), 1000); v.Type != domain.VerdictDeadStock {
		t.Errorf("expected dead_stock, got %s", v.Type)
	}
	// $200 tied up does not
	if v := r.Rank(deadStock(20, 10), 1000); v.Type != domain.VerdictStable {
		t.Errorf("expected stable, got %s", v.Type)
	}
}

func TestRank_MarginCompression(t *testing.T) {
	r := NewRanker(Config{})
	in := emptyInput()
	in.Current = &PeriodSummary{TakenAt: 2000, AvgMarginPct: floatPtr(32), TotalRevenue: floatPtr(1000)}
	in.Prior = &PeriodSummary{TakenAt: 1000, AvgMarginPct: floatPtr(40), TotalRevenue: floatPtr(1000)}

	v := r.Rank(in, 1000)

	// 8 points of compression clears the 5-point threshold; revenue dropped 0%
	if v.Type != domain.VerdictMarginCompression {
		t.Fatalf("expected margin_compression, got %s", v.Type)
	}
	// Dollar consequence at current revenue: 8/100 * 1000 = 80
	top := v.AllSignals[0]
	if top.Consequence == nil || math.Abs(*top.Consequence-80) > 1e-9 {
		t.Errorf("expected consequence 80, got %v", top.Consequence)
	}
}

func TestRank_StockoutOutranksEverything(t *testing.T) {
	r := NewRanker(Config{})
	in := Input{
		Tables: &domain.FactTables{
			Sales: []domain.SalesFact{{
				SKU: "A", Name: "Item A",
				UnitsSold: 30, Revenue: 300, AvgUnitPrice: 10,
				DailyVelocity: 1.0,
			}},
			Inventory: []domain.InventoryFact{{
				SKU: "B", Name: "Item B",
				AvailableQuantity: 100, DailyVelocity: 0.1,
				UnitCost: floatPtr(4), UnitMargin: floatPtr(6),
			}},
		},
		Depletions: map[string]*domain.DepletionForecast{
			"A": {SKU: "A", DaysUntilDepletion: intPtr(5)},
		},
		Current: &PeriodSummary{TakenAt: 2000, TotalRevenue: floatPtr(500)},
		Prior:   &PeriodSummary{TakenAt: 1000, TotalRevenue: floatPtr(1000)},
	}

	v := r.Rank(in, 1000)

	if v.Type != domain.VerdictStockoutRisk {
		t.Fatalf("expected stockout_risk on top, got %s", v.Type)
	}
	if v.RunnerUp == nil {
		t.Fatal("expected a runner-up")
	}
	// Both priority-2 families fired; the under-promotion opportunity ($600)
	// outweighs the revenue decline ($500)
	if v.RunnerUp.Type != domain.VerdictUnderPromotion {
		t.Errorf("expected under_promotion runner-up, got %s", v.RunnerUp.Type)
	}
	if len(v.AllSignals) != 3 {
		t.Errorf("expected 3 ranked signals, got %d", len(v.AllSignals))
	}
}

func TestRank_ShortHorizonForecasts(t *testing.T) {
	r := NewRanker(Config{})
	in := Input{
		Tables: &domain.FactTables{
			Inventory: []domain.InventoryFact{
				{SKU: "A", Name: "Item A", AvailableQuantity: 5, DailyVelocity: 1},
				{SKU: "B", Name: "Item B", AvailableQuantity: 0, DailyVelocity: 1},
				{SKU: "C", Name: "Item C", AvailableQuantity: 100, DailyVelocity: 1},
			},
		},
		Depletions: map[string]*domain.DepletionForecast{
			"A": {SKU: "A", DaysUntilDepletion: intPtr(5), Confidence: domain.ConfidenceMedium},
			"B": {SKU: "B", DaysUntilDepletion: intPtr(0), Confidence: domain.ConfidenceHigh},
			"C": {SKU: "C", DaysUntilDepletion: intPtr(100), Confidence: domain.ConfidenceLow},
		},
	}

	v := r.Rank(in, 1000)

	// C is beyond the 14-day horizon; soonest depletion first
	if len(v.Forecasts) != 2 {
		t.Fatalf("expected 2 forecasts, got %d", len(v.Forecasts))
	}
	if v.Forecasts[0].SKU != "B" || v.Forecasts[1].SKU != "A" {
		t.Errorf("unexpected forecast order: %s, %s", v.Forecasts[0].SKU, v.Forecasts[1].SKU)
	}
}
