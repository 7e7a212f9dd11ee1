// Package reporting renders pipeline results as Markdown and CSV.
package reporting

import (
	"sort"

	"stockpulse/internal/domain"
	"stockpulse/internal/pipeline"
)

// BuildReport assembles a Report from one pipeline result. Signals are
// re-sorted by priority score descending (SKU ascending on ties); all other
// orderings come from the pipeline.
func BuildReport(result *pipeline.Result) *Report {
	signals := make([]domain.Signal, len(result.Signals))
	copy(signals, result.Signals)
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].PriorityScore != signals[j].PriorityScore {
			return signals[i].PriorityScore > signals[j].PriorityScore
		}
		return signals[i].SKU < signals[j].SKU
	})

	r := &Report{
		StoreID:     result.StoreID,
		GeneratedAt: result.GeneratedAt,
		Verdict:     result.Verdict,
		Brief:       result.Brief,
		Decisions:   result.Decisions,
		Signals:     signals,
		Margin:      result.Margin,
		Errors:      result.Errors,
	}
	if result.Verdict != nil {
		r.Forecasts = result.Verdict.Forecasts
	}
	if result.Tables != nil {
		r.ItemCount = len(result.Tables.Inventory)
		r.DroppedRows = result.Tables.DroppedRows
	}

	return r
}
