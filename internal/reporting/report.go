package reporting

import "stockpulse/internal/domain"

// Report is the rendered view of one pipeline run.
type Report struct {
	// Metadata
	StoreID     string
	GeneratedAt int64 // Unix ms
	ItemCount   int

	// The one-thing recommendation and its runner-up.
	Verdict *domain.Verdict

	// Executive brief: top decisions plus aggregate exposure.
	Brief *domain.ActionBrief

	// Full decision list (sorted by urgency desc, impact desc).
	Decisions []domain.Decision

	// Per-item signals (sorted by priority score desc).
	Signals []domain.Signal

	// Short-horizon depletion forecasts.
	Forecasts []domain.Forecast

	// Period margin over sales facts.
	Margin domain.MarginSummary

	// Data quality
	DroppedRows int
	Errors      []string
}
