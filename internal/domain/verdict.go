package domain

// VerdictType identifies which signal family produced the verdict.
type VerdictType string

const (
	VerdictStockoutRisk      VerdictType = "stockout_risk"
	VerdictUnderPromotion    VerdictType = "under_promotion"
	VerdictRevenueDecline    VerdictType = "revenue_decline"
	VerdictDeadStock         VerdictType = "dead_stock"
	VerdictMarginCompression VerdictType = "margin_compression"
	VerdictStable            VerdictType = "stable"
)

// RankedSignal is one candidate produced by a verdict signal family.
// Consequence is the dollar magnitude at stake, nil when it cannot be
// computed from real data.
type RankedSignal struct {
	Priority        int // 1 (most urgent family) .. 3
	Consequence     *float64
	Type            VerdictType
	Action          string
	Reason          string
	ConsequenceText string
	SKU             string
	ItemName        string
}

// Forecast is a short-horizon depletion outlook for one SKU.
type Forecast struct {
	SKU                string
	ItemName           string
	DaysUntilDepletion *int
	Confidence         Confidence
	Message            string
}

// Verdict names the single highest-consequence action for the period.
// Exactly one primary verdict per invocation; when no family fires the
// verdict is the stable-state message, never a fabricated action.
type Verdict struct {
	Verdict     string
	Type        VerdictType
	Reason      string
	Consequence string
	FocusItem   string
	RunnerUp    *RankedSignal
	AllSignals  []RankedSignal
	Forecasts   []Forecast
	GeneratedAt int64 // Unix ms; excluded from equality checks
}
