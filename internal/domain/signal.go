package domain

// SignalType classifies an inventory movement pattern.
type SignalType string

const (
	SignalStagnant               SignalType = "STAGNANT"
	SignalAcceleratingDepletion  SignalType = "ACCELERATING_DEPLETION"
	SignalSuddenDrop             SignalType = "SUDDEN_DROP"
	SignalRestocked              SignalType = "RESTOCKED"
	SignalStableLowStock         SignalType = "STABLE_LOW_STOCK"
	SignalNormalVariance         SignalType = "NORMAL_VARIANCE"
)

// Severity grades how urgent a signal is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// SeverityScore maps severity to the base urgency score used by temporal
// decay weighting.
var SeverityScore = map[Severity]int{
	SeverityCritical: 100,
	SeverityHigh:     75,
	SeverityMedium:   50,
	SeverityLow:      25,
	SeverityInfo:     10,
}

// CitedData carries the raw numbers that justify a classification.
// Every signal is auditable: the consumer can re-derive the decision from
// these fields alone. Nil means the input was absent, not zero.
type CitedData struct {
	Quantity             int
	DailyVelocity        float64
	DaysUntilDepletion   *int
	QuantityDelta        *int
	QuantityDeltaPercent *float64
	VelocityDeltaPercent *float64
}

// Signal is one classified movement pattern for one SKU.
type Signal struct {
	SKU           string
	ItemName      string
	Type          SignalType
	Severity      Severity
	Reason        string
	Confidence    Confidence
	PriorityScore int // 0-100
	CitedData     CitedData
}
