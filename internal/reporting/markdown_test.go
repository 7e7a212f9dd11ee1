package reporting

import (
	"strings"
	"testing"

	"stockpulse/internal/domain"
	"stockpulse/internal/pipeline"
)

func floatPtr(v float64) *float64 { return &v }

func sampleResult() *pipeline.Result {
	impact := 140.0
	return &pipeline.Result{
		StoreID:     "s1",
		GeneratedAt: 1767225600000, // 2026-01-01T00:00:00Z
		Signals: []domain.Signal{
			{SKU: "B", ItemName: "Item B", Type: domain.SignalStagnant, Severity: domain.SeverityLow, PriorityScore: 10, Confidence: domain.ConfidenceHigh, Reason: "no units sold in the observation window"},
			{SKU: "A", ItemName: "Item A", Type: domain.SignalStableLowStock, Severity: domain.SeverityHigh, PriorityScore: 40, Confidence: domain.ConfidenceMedium, Reason: "only 5 units on hand with steady sales"},
		},
		Decisions: []domain.Decision{{
			Type: domain.DecisionReorderNow, SKU: "A", Name: "Item A",
			Reason: "selling 2.0/day with 4.0 days of cover left",
			Action: "Reorder Item A now", DollarImpact: &impact,
			Timeframe: "within 5 days", Urgency: 3,
		}},
		Brief: &domain.ActionBrief{
			Headline:       "1 actions recommended, $140 at stake",
			TotalDecisions: 1,
			DollarExposure: 140,
		},
		Verdict: &domain.Verdict{
			Type:        domain.VerdictStockoutRisk,
			Verdict:     "Reorder Item A before it stocks out",
			Reason:      "Item A depletes in 4 days at current velocity",
			Consequence: "$140/week revenue lost while out of stock",
			FocusItem:   "Item A",
		},
		Margin: domain.MarginSummary{AverageMargin: floatPtr(0.3), FactsConsidered: 2},
		Tables: &domain.FactTables{
			Inventory:   []domain.InventoryFact{{SKU: "A"}, {SKU: "B"}},
			DroppedRows: 1,
		},
	}
}

func TestBuildReport_SortsSignalsByPriority(t *testing.T) {
	report := BuildReport(sampleResult())

	if report.Signals[0].SKU != "A" || report.Signals[1].SKU != "B" {
		t.Errorf("expected priority order A, B; got %s, %s", report.Signals[0].SKU, report.Signals[1].SKU)
	}
	if report.ItemCount != 2 || report.DroppedRows != 1 {
		t.Errorf("unexpected counts: %d items, %d dropped", report.ItemCount, report.DroppedRows)
	}
}

func TestRenderMarkdown_Sections(t *testing.T) {
	md := RenderMarkdown(BuildReport(sampleResult()))

	for _, want := range []string{
		"# Inventory Decision Report",
		"Generated: 2026-01-01T00:00:00Z",
		"## Verdict",
		"**Reorder Item A before it stocks out**",
		"## Action Brief",
		"## Decisions",
		"| REORDER_NOW | A | Item A | 3 | $140 |",
		"## Signals",
		"## Period Margin",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMarkdown_MissingMarginShowsReason(t *testing.T) {
	result := sampleResult()
	result.Margin = domain.MarginSummary{Reason: "no sales with known margin in the period"}

	md := RenderMarkdown(BuildReport(result))

	if !strings.Contains(md, "Average margin unavailable: no sales with known margin in the period.") {
		t.Error("expected explicit margin reason in markdown")
	}
}

func TestRenderCSV(t *testing.T) {
	impact := 160.0
	csv := RenderCSV([]domain.Decision{{
		Type: domain.DecisionDiscountSlow, SKU: "C", Name: "Candle, Vanilla",
		Reason: "20 units on hand moving at 0.02/day",
		Action: `Discount "Candle, Vanilla" to clear slow stock`,
		DollarImpact: &impact, Timeframe: "next 2 weeks", Urgency: 1,
	}})

	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if lines[0] != "type,sku,name,urgency,dollar_impact,timeframe,reason,action" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	// Fields with commas and quotes are escaped
	if !strings.Contains(lines[1], `"Candle, Vanilla"`) {
		t.Errorf("expected quoted name, got %s", lines[1])
	}
	if !strings.Contains(lines[1], `"Discount ""Candle, Vanilla"" to clear slow stock"`) {
		t.Errorf("expected escaped quotes, got %s", lines[1])
	}
	if !strings.Contains(lines[1], "160.00") {
		t.Errorf("expected impact 160.00, got %s", lines[1])
	}
}

func TestRenderCSV_NilImpactIsEmptyField(t *testing.T) {
	csv := RenderCSV([]domain.Decision{{
		Type: domain.DecisionDiscountSlow, SKU: "C", Name: "C",
		Reason: "r", Action: "a", Timeframe: "t", Urgency: 1,
	}})

	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if !strings.Contains(lines[1], ",1,,t,") {
		t.Errorf("expected empty impact field, got %s", lines[1])
	}
}
