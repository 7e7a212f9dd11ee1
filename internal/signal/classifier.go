// Package signal classifies inventory movement patterns into a fixed
// taxonomy with severity and a numeric priority score.
package signal

import (
	"fmt"
	"math"

	"stockpulse/internal/domain"
)

// Config holds the tuned classification thresholds. Zero values are replaced
// with defaults by NewClassifier. The constants are hand-tuned; they are kept
// overridable rather than re-derived.
type Config struct {
	// SUDDEN_DROP gates: absolute units lost and relative percent.
	SuddenDropUnits   int     // quantityDelta below -SuddenDropUnits
	SuddenDropPercent float64 // |quantityDeltaPercent| above this

	// RESTOCKED gate: quantityDelta above this.
	RestockUnits int

	// STABLE_LOW_STOCK gate: 0 < quantity < LowStockMax with positive velocity.
	LowStockMax int

	// Depletion horizons grading severity.
	CriticalDepletionDays int
	HighDepletionDays     int
	LowStockCriticalDays  int

	// Priority score factor caps: velocity 0-50, acceleration 0-25,
	// stock risk 0-15, margin 0-10 (tie-breaker only).
	VelocityPointsMax     float64
	AccelerationPointsMax float64
	StockRiskPointsMax    float64
	MarginPointsMax       float64
}

// DefaultConfig returns the hand-tuned defaults.
func DefaultConfig() Config {
	return Config{
		SuddenDropUnits:       5,
		SuddenDropPercent:     30,
		RestockUnits:          10,
		LowStockMax:           10,
		CriticalDepletionDays: 7,
		HighDepletionDays:     14,
		LowStockCriticalDays:  3,
		VelocityPointsMax:     50,
		AccelerationPointsMax: 25,
		StockRiskPointsMax:    15,
		MarginPointsMax:       10,
	}
}

// Input is the validated envelope the classifier consumes: one snapshot item
// with its derived velocity and depletion forecast. Nil Metric means the
// velocity stage produced nothing for this SKU.
type Input struct {
	Item      domain.InventoryItem
	Metric    *domain.VelocityMetric
	Depletion *domain.DepletionForecast
}

// Classifier maps item movement to signals.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(cfg Config) *Classifier {
	def := DefaultConfig()
	if cfg.SuddenDropUnits == 0 {
		cfg.SuddenDropUnits = def.SuddenDropUnits
	}
	if cfg.SuddenDropPercent == 0 {
		cfg.SuddenDropPercent = def.SuddenDropPercent
	}
	if cfg.RestockUnits == 0 {
		cfg.RestockUnits = def.RestockUnits
	}
	if cfg.LowStockMax == 0 {
		cfg.LowStockMax = def.LowStockMax
	}
	if cfg.CriticalDepletionDays == 0 {
		cfg.CriticalDepletionDays = def.CriticalDepletionDays
	}
	if cfg.HighDepletionDays == 0 {
		cfg.HighDepletionDays = def.HighDepletionDays
	}
	if cfg.LowStockCriticalDays == 0 {
		cfg.LowStockCriticalDays = def.LowStockCriticalDays
	}
	if cfg.VelocityPointsMax == 0 {
		cfg.VelocityPointsMax = def.VelocityPointsMax
	}
	if cfg.AccelerationPointsMax == 0 {
		cfg.AccelerationPointsMax = def.AccelerationPointsMax
	}
	if cfg.StockRiskPointsMax == 0 {
		cfg.StockRiskPointsMax = def.StockRiskPointsMax
	}
	if cfg.MarginPointsMax == 0 {
		cfg.MarginPointsMax = def.MarginPointsMax
	}

	return &Classifier{cfg: cfg}
}

// Classify maps one item (plus its optional prior-period delta) to a signal.
// Rules are evaluated in order; the first match wins.
func (c *Classifier) Classify(in Input, delta *domain.ItemDelta) domain.Signal {
	sig := domain.Signal{
		SKU:       in.Item.SKU,
		ItemName:  in.Item.Name,
		CitedData: citeData(in, delta),
	}
	if in.Metric != nil {
		sig.Confidence = in.Metric.Confidence
	} else {
		sig.Confidence = domain.ConfidenceInsufficientData
	}

	depletionDays := depletionDays(in.Depletion)

	switch {
	// 1. No velocity data or zero units sold.
	case in.Metric == nil || in.Metric.TotalUnitsSold == 0:
		sig.Type = domain.SignalStagnant
		sig.Severity = domain.SeverityLow
		sig.Reason = "no units sold in the observation window"

	// 2. Depletion has accelerated vs the prior period.
	case delta != nil && delta.HasAccelerated:
		sig.Type = domain.SignalAcceleratingDepletion
		sig.Severity = c.depletionSeverity(depletionDays)
		sig.Reason = fmt.Sprintf("sales velocity accelerated %.0f%% vs prior period", delta.VelocityDeltaPercent)

	// 3. Large sudden drop in on-hand quantity.
	case delta != nil && delta.QuantityDelta < -c.cfg.SuddenDropUnits && math.Abs(delta.QuantityDeltaPercent) > c.cfg.SuddenDropPercent:
		sig.Type = domain.SignalSuddenDrop
		if depletionDays != nil && *depletionDays <= c.cfg.CriticalDepletionDays {
			sig.Severity = domain.SeverityHigh
		} else {
			sig.Severity = domain.SeverityMedium
		}
		sig.Reason = fmt.Sprintf("on-hand dropped %d units (%.0f%%) since prior snapshot", -delta.QuantityDelta, math.Abs(delta.QuantityDeltaPercent))

	// 4. Restock: informational, excluded from recommendations downstream.
	case delta != nil && delta.QuantityDelta > c.cfg.RestockUnits:
		sig.Type = domain.SignalRestocked
		sig.Severity = domain.SeverityInfo
		sig.Reason = fmt.Sprintf("on-hand rose %d units since prior snapshot", delta.QuantityDelta)

	// 5. Low stock with steady movement.
	case in.Item.Quantity > 0 && in.Item.Quantity < c.cfg.LowStockMax && in.Metric.DailyVelocity > 0:
		sig.Type = domain.SignalStableLowStock
		sig.Severity = c.lowStockSeverity(depletionDays)
		sig.Reason = fmt.Sprintf("only %d units on hand with steady sales", in.Item.Quantity)

	// 6. Nothing actionable.
	default:
		sig.Type = domain.SignalNormalVariance
		sig.Severity = domain.SeverityInfo
		sig.Reason = "movement within normal variance"
	}

	sig.PriorityScore = c.PriorityScore(in, sig, delta)

	return sig
}

// depletionSeverity grades ACCELERATING_DEPLETION by horizon.
func (c *Classifier) depletionSeverity(days *int) domain.Severity {
	switch {
	case days != nil && *days <= c.cfg.CriticalDepletionDays:
		return domain.SeverityCritical
	case days != nil && *days <= c.cfg.HighDepletionDays:
		return domain.SeverityHigh
	default:
		return domain.SeverityMedium
	}
}

// lowStockSeverity grades STABLE_LOW_STOCK by horizon.
func (c *Classifier) lowStockSeverity(days *int) domain.Severity {
	switch {
	case days != nil && *days <= c.cfg.LowStockCriticalDays:
		return domain.SeverityCritical
	case days != nil && *days <= c.cfg.CriticalDepletionDays:
		return domain.SeverityHigh
	default:
		return domain.SeverityMedium
	}
}

// PriorityScore computes the 0-100 weighted score for a signal.
// Factors are clamped independently; margin is a tie-breaker only and can
// never dominate the velocity or risk factors.
func (c *Classifier) PriorityScore(in Input, sig domain.Signal, delta *domain.ItemDelta) int {
	var score float64

	if in.Metric != nil {
		score += math.Min(in.Metric.DailyVelocity*5, c.cfg.VelocityPointsMax)
	}

	if delta != nil && delta.HasAccelerated {
		score += math.Min(math.Abs(delta.VelocityDeltaPercent)/4, c.cfg.AccelerationPointsMax)
	}

	if days := depletionDays(in.Depletion); days != nil {
		score += math.Max(0, c.cfg.StockRiskPointsMax-float64(*days))
	}

	if in.Item.Pricing.MarginPercent != nil {
		score += math.Min(*in.Item.Pricing.MarginPercent/10, c.cfg.MarginPointsMax)
	}

	rounded := int(math.Round(score))
	if rounded > 100 {
		rounded = 100
	}
	if rounded < 0 {
		rounded = 0
	}
	return rounded
}

// EvolveConfidence adjusts confidence by how many consecutive snapshots the
// signal has persisted across: >= 3 upgrades one tier (capped at high),
// exactly 1 downgrades one tier (anomaly suspicion), 2 leaves it unchanged.
// Zero (no history at all) also leaves it unchanged.
func EvolveConfidence(current domain.Confidence, snapshotCount int) domain.Confidence {
	switch {
	case snapshotCount >= 3:
		return domain.UpgradeConfidence(current)
	case snapshotCount == 1:
		return domain.DowngradeConfidence(current)
	default:
		return current
	}
}

// citeData assembles the raw numbers behind a classification.
func citeData(in Input, delta *domain.ItemDelta) domain.CitedData {
	cited := domain.CitedData{
		Quantity: in.Item.Quantity,
	}
	if in.Metric != nil {
		cited.DailyVelocity = in.Metric.DailyVelocity
	}
	if days := depletionDays(in.Depletion); days != nil {
		d := *days
		cited.DaysUntilDepletion = &d
	}
	if delta != nil {
		qd := delta.QuantityDelta
		qdp := delta.QuantityDeltaPercent
		vdp := delta.VelocityDeltaPercent
		cited.QuantityDelta = &qd
		cited.QuantityDeltaPercent = &qdp
		cited.VelocityDeltaPercent = &vdp
	}
	return cited
}

// depletionDays unwraps the forecast horizon, nil-safe.
func depletionDays(f *domain.DepletionForecast) *int {
	if f == nil {
		return nil
	}
	return f.DaysUntilDepletion
}
