// Package verdict merges cross-cutting signal families into the single
// highest-consequence "if you do ONE thing" recommendation.
package verdict

import (
	"fmt"
	"sort"

	"stockpulse/internal/domain"
)

// Config holds the tuned verdict thresholds. Zero values are replaced with
// defaults by NewRanker.
type Config struct {
	StockoutDays        int     // depletion horizon that counts as imminent
	StockoutVelocityMin float64 // units/day

	PromoMarginPercent float64 // under-promotion margin floor
	PromoVelocityMax   float64 // under-promotion velocity ceiling
	PromoMinQuantity   int

	RevenueDeclinePercent   float64 // period-over-period decline that fires
	DeadStockCapitalFloor   float64 // dollars tied up before dead stock fires
	MarginCompressionPoints float64 // points of compression that fire

	ForecastHorizonDays int // short-horizon depletion forecasts
}

// DefaultConfig returns the hand-tuned defaults.
func DefaultConfig() Config {
	return Config{
		StockoutDays:            7,
		StockoutVelocityMin:     0.5,
		PromoMarginPercent:      50,
		PromoVelocityMax:        0.5,
		PromoMinQuantity:        10,
		RevenueDeclinePercent:   15,
		DeadStockCapitalFloor:   500,
		MarginCompressionPoints: 5,
		ForecastHorizonDays:     14,
	}
}

// PeriodSummary carries the snapshot-level aggregates the period families
// compare. Nil fields mean the source data was absent, and the family that
// needs them simply does not fire.
type PeriodSummary struct {
	TakenAt      int64
	TotalRevenue *float64
	AvgMarginPct *float64
}

// Input is the envelope the ranker consumes.
type Input struct {
	Tables     *domain.FactTables
	Depletions map[string]*domain.DepletionForecast // by SKU
	Current    *PeriodSummary
	Prior      *PeriodSummary // nil when no prior snapshot exists
}

// Ranker produces the period verdict.
type Ranker struct {
	cfg Config
}

// NewRanker creates a verdict ranker.
func NewRanker(cfg Config) *Ranker {
	def := DefaultConfig()
	if cfg.StockoutDays == 0 {
		cfg.StockoutDays = def.StockoutDays
	}
	if cfg.StockoutVelocityMin == 0 {
		cfg.StockoutVelocityMin = def.StockoutVelocityMin
	}
	if cfg.PromoMarginPercent == 0 {
		cfg.PromoMarginPercent = def.PromoMarginPercent
	}
	if cfg.PromoVelocityMax == 0 {
		cfg.PromoVelocityMax = def.PromoVelocityMax
	}
	if cfg.PromoMinQuantity == 0 {
		cfg.PromoMinQuantity = def.PromoMinQuantity
	}
	if cfg.RevenueDeclinePercent == 0 {
		cfg.RevenueDeclinePercent = def.RevenueDeclinePercent
	}
	if cfg.DeadStockCapitalFloor == 0 {
		cfg.DeadStockCapitalFloor = def.DeadStockCapitalFloor
	}
	if cfg.MarginCompressionPoints == 0 {
		cfg.MarginCompressionPoints = def.MarginCompressionPoints
	}
	if cfg.ForecastHorizonDays == 0 {
		cfg.ForecastHorizonDays = def.ForecastHorizonDays
	}
	return &Ranker{cfg: cfg}
}

// Rank evaluates all five signal families and names the verdict. Exactly
// one primary verdict per invocation; when nothing fires the result is the
// stable-state message, never a fabricated action.
func (r *Ranker) Rank(in Input, generatedAt int64) *domain.Verdict {
	var signals []domain.RankedSignal

	signals = append(signals, r.stockoutSignals(in)...)
	signals = append(signals, r.underPromotionSignals(in)...)
	if s := r.revenueDeclineSignal(in); s != nil {
		signals = append(signals, *s)
	}
	signals = append(signals, r.deadStockSignals(in)...)
	if s := r.marginCompressionSignal(in); s != nil {
		signals = append(signals, *s)
	}

	sortRankedSignals(signals)

	v := &domain.Verdict{
		AllSignals:  signals,
		Forecasts:   r.shortHorizonForecasts(in),
		GeneratedAt: generatedAt,
	}

	if len(signals) == 0 {
		v.Type = domain.VerdictStable
		v.Verdict = "No urgent action required; inventory is moving within normal ranges"
		v.Reason = "no signal family fired this period"
		v.Consequence = "none identified"
		return v
	}

	top := signals[0]
	v.Type = top.Type
	v.Verdict = top.Action
	v.Reason = top.Reason
	v.Consequence = top.ConsequenceText
	v.FocusItem = top.ItemName
	if len(signals) > 1 {
		runnerUp := signals[1]
		v.RunnerUp = &runnerUp
	}

	return v
}

// stockoutSignals: selling SKUs that will run out within the horizon. Priority 1.
func (r *Ranker) stockoutSignals(in Input) []domain.RankedSignal {
	var out []domain.RankedSignal
	for _, f := range in.Tables.Sales {
		if f.DailyVelocity < r.cfg.StockoutVelocityMin {
			continue
		}
		dep := in.Depletions[f.SKU]
		if dep == nil || dep.DaysUntilDepletion == nil || *dep.DaysUntilDepletion > r.cfg.StockoutDays {
			continue
		}

		weeklyRevenue := f.AvgUnitPrice * f.DailyVelocity * 7
		out = append(out, domain.RankedSignal{
			Priority:        1,
			Consequence:     &weeklyRevenue,
			Type:            domain.VerdictStockoutRisk,
			Action:          fmt.Sprintf("Reorder %s before it stocks out", f.Name),
			Reason:          fmt.Sprintf("%s depletes in %d days at current velocity", f.Name, *dep.DaysUntilDepletion),
			ConsequenceText: fmt.Sprintf("$%.0f/week revenue lost while out of stock", weeklyRevenue),
			SKU:             f.SKU,
			ItemName:        f.Name,
		})
	}
	return out
}

// underPromotionSignals: high-margin stock that barely moves. Priority 2.
func (r *Ranker) underPromotionSignals(in Input) []domain.RankedSignal {
	var out []domain.RankedSignal
	for _, f := range in.Tables.Inventory {
		if f.UnitMargin == nil || f.UnitCost == nil || *f.UnitCost <= 0 {
			continue
		}
		marginPct := *f.UnitMargin / (*f.UnitCost + *f.UnitMargin) * 100
		if marginPct < r.cfg.PromoMarginPercent {
			continue
		}
		if f.DailyVelocity >= r.cfg.PromoVelocityMax || f.AvailableQuantity < r.cfg.PromoMinQuantity {
			continue
		}

		opportunity := *f.UnitMargin * float64(f.AvailableQuantity)
		out = append(out, domain.RankedSignal{
			Priority:        2,
			Consequence:     &opportunity,
			Type:            domain.VerdictUnderPromotion,
			Action:          fmt.Sprintf("Promote %s", f.Name),
			Reason:          fmt.Sprintf("%s carries %.0f%% margin but sells %.2f/day", f.Name, marginPct, f.DailyVelocity),
			ConsequenceText: fmt.Sprintf("$%.0f margin sitting on the shelf", opportunity),
			SKU:             f.SKU,
			ItemName:        f.Name,
		})
	}
	return out
}

// revenueDeclineSignal: period revenue fell vs the prior snapshot. Priority 2.
func (r *Ranker) revenueDeclineSignal(in Input) *domain.RankedSignal {
	if in.Current == nil || in.Prior == nil ||
		in.Current.TotalRevenue == nil || in.Prior.TotalRevenue == nil {
		return nil
	}
	prior := *in.Prior.TotalRevenue
	current := *in.Current.TotalRevenue
	if prior <= 0 {
		return nil
	}

	declinePct := (prior - current) / prior * 100
	if declinePct < r.cfg.RevenueDeclinePercent {
		return nil
	}

	declineDollars := prior - current
	return &domain.RankedSignal{
		Priority:        2,
		Consequence:     &declineDollars,
		Type:            domain.VerdictRevenueDecline,
		Action:          "Investigate the revenue decline",
		Reason:          fmt.Sprintf("revenue fell %.0f%% vs the prior period", declinePct),
		ConsequenceText: fmt.Sprintf("$%.0f less revenue than last period", declineDollars),
	}
}

// deadStockSignals: capital tied up in stock that does not move. Priority 3.
func (r *Ranker) deadStockSignals(in Input) []domain.RankedSignal {
	var out []domain.RankedSignal
	for _, f := range in.Tables.Inventory {
		if !f.IsSlowMover || f.UnitCost == nil {
			continue
		}
		capital := *f.UnitCost * float64(f.AvailableQuantity)
		if capital < r.cfg.DeadStockCapitalFloor {
			continue
		}

		out = append(out, domain.RankedSignal{
			Priority:        3,
			Consequence:     &capital,
			Type:            domain.VerdictDeadStock,
			Action:          fmt.Sprintf("Clear or return %s", f.Name),
			Reason:          fmt.Sprintf("%s has not moved (%.2f/day) with %d units held", f.Name, f.DailyVelocity, f.AvailableQuantity),
			ConsequenceText: fmt.Sprintf("$%.0f capital tied up", capital),
			SKU:             f.SKU,
			ItemName:        f.Name,
		})
	}
	return out
}

// marginCompressionSignal: blended margin fell vs the prior snapshot. Priority 3.
func (r *Ranker) marginCompressionSignal(in Input) *domain.RankedSignal {
	if in.Current == nil || in.Prior == nil ||
		in.Current.AvgMarginPct == nil || in.Prior.AvgMarginPct == nil {
		return nil
	}

	compression := *in.Prior.AvgMarginPct - *in.Current.AvgMarginPct
	if compression <= r.cfg.MarginCompressionPoints {
		return nil
	}

	sig := domain.RankedSignal{
		Priority:        3,
		Type:            domain.VerdictMarginCompression,
		Action:          "Review pricing: margin is compressing",
		Reason:          fmt.Sprintf("blended margin fell %.1f points vs the prior period", compression),
		ConsequenceText: fmt.Sprintf("%.1f margin points lost", compression),
	}

	// Dollar consequence only when period revenue is known.
	if in.Current.TotalRevenue != nil {
		dollars := compression / 100 * *in.Current.TotalRevenue
		sig.Consequence = &dollars
		sig.ConsequenceText = fmt.Sprintf("$%.0f margin lost at current revenue", dollars)
	}

	return &sig
}

// shortHorizonForecasts lists SKUs depleting within the forecast horizon.
func (r *Ranker) shortHorizonForecasts(in Input) []domain.Forecast {
	var out []domain.Forecast
	for _, f := range in.Tables.Inventory {
		dep := in.Depletions[f.SKU]
		if dep == nil || dep.DaysUntilDepletion == nil || *dep.DaysUntilDepletion > r.cfg.ForecastHorizonDays {
			continue
		}
		days := *dep.DaysUntilDepletion
		msg := fmt.Sprintf("%s depletes in %d days", f.Name, days)
		if days == 0 {
			msg = fmt.Sprintf("%s is out of stock", f.Name)
		}
		out = append(out, domain.Forecast{
			SKU:                f.SKU,
			ItemName:           f.Name,
			DaysUntilDepletion: &days,
			Confidence:         dep.Confidence,
			Message:            msg,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		di, dj := *out[i].DaysUntilDepletion, *out[j].DaysUntilDepletion
		if di != dj {
			return di < dj
		}
		return out[i].SKU < out[j].SKU
	})

	return out
}

// sortRankedSignals orders by priority asc, consequence desc (unknown last),
// SKU asc for determinism.
func sortRankedSignals(signals []domain.RankedSignal) {
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].Priority != signals[j].Priority {
			return signals[i].Priority < signals[j].Priority
		}
		ci, cj := signals[i].Consequence, signals[j].Consequence
		switch {
		case ci != nil && cj != nil && *ci != *cj:
			return *ci > *cj
		case ci != nil && cj == nil:
			return true
		case ci == nil && cj != nil:
			return false
		}
		return signals[i].SKU < signals[j].SKU
	})
}
