// Package decision turns fact tables into typed, dollar-quantified
// recommendations and the executive action brief.
package decision

import (
	"fmt"
	"sort"

	"stockpulse/internal/domain"
)

// Config holds the tuned decision thresholds. Zero values are replaced with
// defaults by NewEngine.
type Config struct {
	// REORDER_NOW gates.
	ReorderVelocityMin  float64 // units/day
	ReorderCoverageDays float64 // days of cover at or below this triggers reorder
	ReorderCriticalDays float64 // at or below this the reorder is critical

	// HOLD_LINE gate: margin percent at or above this protects the price.
	HoldMarginPercent float64

	// DISCOUNT_SLOW gate: minimum on-hand worth discounting.
	DiscountMinQuantity int

	// BriefTopN caps the decisions surfaced in the action brief.
	BriefTopN int
}

// DefaultConfig returns the hand-tuned defaults.
func DefaultConfig() Config {
	return Config{
		ReorderVelocityMin:  0.5,
		ReorderCoverageDays: 10,
		ReorderCriticalDays: 5,
		HoldMarginPercent:   50,
		DiscountMinQuantity: 5,
		BriefTopN:           3,
	}
}

// Urgency levels assigned to decisions. Ties are broken by dollar impact.
const (
	urgencyCritical = 3
	urgencyHigh     = 2
	urgencyNormal   = 1
)

// Engine evaluates decision rules over the fact tables.
type Engine struct {
	cfg Config
}

// NewEngine creates a decision engine.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.ReorderVelocityMin == 0 {
		cfg.ReorderVelocityMin = def.ReorderVelocityMin
	}
	if cfg.ReorderCoverageDays == 0 {
		cfg.ReorderCoverageDays = def.ReorderCoverageDays
	}
	if cfg.ReorderCriticalDays == 0 {
		cfg.ReorderCriticalDays = def.ReorderCriticalDays
	}
	if cfg.HoldMarginPercent == 0 {
		cfg.HoldMarginPercent = def.HoldMarginPercent
	}
	if cfg.DiscountMinQuantity == 0 {
		cfg.DiscountMinQuantity = def.DiscountMinQuantity
	}
	if cfg.BriefTopN == 0 {
		cfg.BriefTopN = def.BriefTopN
	}
	return &Engine{cfg: cfg}
}

// Evaluate applies the rule set to both tables. Each SKU receives at most
// one decision; rules are checked in order (REORDER_NOW, HOLD_LINE,
// DISCOUNT_SLOW) and the first match wins. The result is sorted by urgency
// descending, then dollar impact descending.
func (e *Engine) Evaluate(tables *domain.FactTables) []domain.Decision {
	var decisions []domain.Decision
	decided := make(map[string]bool)

	// Sales-fact rules first: reorder beats hold for the same SKU.
	for _, f := range tables.Sales {
		if decided[f.SKU] {
			continue
		}
		if d, ok := e.reorderNow(f); ok {
			decisions = append(decisions, d)
			decided[f.SKU] = true
			continue
		}
		if d, ok := e.holdLine(f); ok {
			decisions = append(decisions, d)
			decided[f.SKU] = true
		}
	}

	for _, f := range tables.Inventory {
		if decided[f.SKU] {
			continue
		}
		if d, ok := e.discountSlow(f); ok {
			decisions = append(decisions, d)
			decided[f.SKU] = true
		}
	}

	sortDecisions(decisions)

	return decisions
}

// reorderNow fires when a selling SKU is close to running out.
func (e *Engine) reorderNow(f domain.SalesFact) (domain.Decision, bool) {
	if f.DailyVelocity < e.cfg.ReorderVelocityMin {
		return domain.Decision{}, false
	}
	if f.DaysOfCover == nil || *f.DaysOfCover > e.cfg.ReorderCoverageDays {
		return domain.Decision{}, false
	}

	urgency := urgencyHigh
	timeframe := "within 10 days"
	if *f.DaysOfCover <= e.cfg.ReorderCriticalDays {
		urgency = urgencyCritical
		timeframe = "within 5 days"
	}

	// Weekly revenue at risk if the SKU stocks out.
	impact := f.AvgUnitPrice * f.DailyVelocity * 7

	return domain.Decision{
		Type:         domain.DecisionReorderNow,
		SKU:          f.SKU,
		Name:         f.Name,
		Reason:       fmt.Sprintf("selling %.1f/day with %.1f days of cover left", f.DailyVelocity, *f.DaysOfCover),
		Action:       fmt.Sprintf("Reorder %s now", f.Name),
		DollarImpact: &impact,
		Timeframe:    timeframe,
		Urgency:      urgency,
	}, true
}

// holdLine fires for high-margin sellers: an explicit do-not-discount directive.
func (e *Engine) holdLine(f domain.SalesFact) (domain.Decision, bool) {
	if f.MarginPercent == nil || *f.MarginPercent < e.cfg.HoldMarginPercent {
		return domain.Decision{}, false
	}

	// Weekly margin protected by holding the price.
	impact := *f.UnitMargin * f.DailyVelocity * 7

	return domain.Decision{
		Type:         domain.DecisionHoldLine,
		SKU:          f.SKU,
		Name:         f.Name,
		Reason:       fmt.Sprintf("%.0f%% margin on steady sales", *f.MarginPercent),
		Action:       fmt.Sprintf("Do not discount %s; hold the current price", f.Name),
		DollarImpact: &impact,
		Timeframe:    "this week",
		Urgency:      urgencyHigh,
	}, true
}

// discountSlow fires for slow movers with enough stock to be worth clearing.
func (e *Engine) discountSlow(f domain.InventoryFact) (domain.Decision, bool) {
	if !f.IsSlowMover || f.AvailableQuantity < e.cfg.DiscountMinQuantity {
		return domain.Decision{}, false
	}

	// Margin recoverable by clearing the stock; 0 when margin is unknown,
	// never an estimate.
	impact := 0.0
	if f.UnitMargin != nil {
		impact = *f.UnitMargin * float64(f.AvailableQuantity)
	}

	return domain.Decision{
		Type:         domain.DecisionDiscountSlow,
		SKU:          f.SKU,
		Name:         f.Name,
		Reason:       fmt.Sprintf("%d units on hand moving at %.2f/day", f.AvailableQuantity, f.DailyVelocity),
		Action:       fmt.Sprintf("Discount %s to clear slow stock", f.Name),
		DollarImpact: &impact,
		Timeframe:    "next 2 weeks",
		Urgency:      urgencyNormal,
	}, true
}

// BuildBrief assembles the executive action brief: the top decisions plus a
// headline over the aggregate dollar exposure.
func (e *Engine) BuildBrief(decisions []domain.Decision, margin domain.MarginSummary, generatedAt int64) *domain.ActionBrief {
	exposure := 0.0
	for _, d := range decisions {
		if d.DollarImpact != nil {
			exposure += *d.DollarImpact
		}
	}

	top := decisions
	if len(top) > e.cfg.BriefTopN {
		top = top[:e.cfg.BriefTopN]
	}
	// Copy so the brief never aliases the caller's slice.
	topCopy := make([]domain.Decision, len(top))
	copy(topCopy, top)

	headline := "No actions needed this period"
	if len(decisions) > 0 {
		headline = fmt.Sprintf("%d actions recommended, $%.0f at stake", len(decisions), exposure)
	}

	return &domain.ActionBrief{
		Decisions:      topCopy,
		TotalDecisions: len(decisions),
		Headline:       headline,
		DollarExposure: exposure,
		Margin:         margin,
		GeneratedAt:    generatedAt,
	}
}

// sortDecisions orders by urgency desc, dollar impact desc, SKU asc.
// Unknown impact sorts after any known impact at the same urgency.
func sortDecisions(decisions []domain.Decision) {
	sort.Slice(decisions, func(i, j int) bool {
		if decisions[i].Urgency != decisions[j].Urgency {
			return decisions[i].Urgency > decisions[j].Urgency
		}
		ii, ji := decisions[i].DollarImpact, decisions[j].DollarImpact
		switch {
		case ii != nil && ji != nil && *ii != *ji:
			return *ii > *ji
		case ii != nil && ji == nil:
			return true
		case ii == nil && ji != nil:
			return false
		}
		return decisions[i].SKU < decisions[j].SKU
	})
}
