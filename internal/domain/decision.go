package domain

// DecisionType identifies the action a decision recommends.
type DecisionType string

const (
	DecisionReorderNow   DecisionType = "REORDER_NOW"
	DecisionHoldLine     DecisionType = "HOLD_LINE"
	DecisionDiscountSlow DecisionType = "DISCOUNT_SLOW"
)

// Decision is one typed, dollar-quantified recommendation for one SKU.
// DollarImpact is nil when the source data cannot support an estimate.
type Decision struct {
	Type         DecisionType
	SKU          string
	Name         string
	Reason       string
	Action       string
	DollarImpact *float64
	Timeframe    string
	Urgency      int // higher is more urgent
}

// ActionBrief is the executive summary consumed by the reporting layer:
// the top decisions plus a headline over the aggregate dollar exposure.
type ActionBrief struct {
	Decisions      []Decision // capped at the top 3 by (urgency, impact)
	TotalDecisions int
	Headline       string
	DollarExposure float64 // sum of known impacts across all decisions
	Margin         MarginSummary
	GeneratedAt    int64 // Unix ms; excluded from equality checks
}
