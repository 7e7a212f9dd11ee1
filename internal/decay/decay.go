// Package decay provides exponential age-based weighting of confidence and
// urgency. All functions are pure; callers supply the reference clock.
package decay

import (
	"math"
	"time"

	"stockpulse/internal/domain"
)

// Decay rate presets (per-day lambda).
const (
	LambdaFast     = 0.2
	LambdaMedium   = 0.1
	LambdaSlow     = 0.05
	LambdaVerySlow = 0.02
)

const msPerDay = float64(24 * time.Hour / time.Millisecond)

// Weight returns e^(-lambda * ageDays). Weight(0, lambda) == 1.
func Weight(ageDays, lambda float64) float64 {
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-lambda * ageDays)
}

// AgeDays converts a timestamp pair (Unix ms) into fractional days of age.
func AgeDays(timestamp, now int64) float64 {
	if timestamp >= now {
		return 0
	}
	return float64(now-timestamp) / msPerDay
}

// WeightedValue pairs an observation with its timestamp.
type WeightedValue struct {
	Value     float64
	Timestamp int64 // Unix ms
}

// WeightedAverage computes the decay-weighted mean of the observations.
// Returns nil for an empty input: no observations is "no data", not zero.
func WeightedAverage(items []WeightedValue, lambda float64, now int64) *float64 {
	if len(items) == 0 {
		return nil
	}

	var weightedSum, weightSum float64
	for _, item := range items {
		w := Weight(AgeDays(item.Timestamp, now), lambda)
		weightedSum += item.Value * w
		weightSum += w
	}

	avg := weightedSum / weightSum
	return &avg
}

// RecencyConfidence grades data freshness: <1d high, <7d medium, <14d low,
// otherwise stale.
func RecencyConfidence(timestamp, now int64) domain.Confidence {
	age := AgeDays(timestamp, now)
	switch {
	case age < 1:
		return domain.ConfidenceHigh
	case age < 7:
		return domain.ConfidenceMedium
	case age < 14:
		return domain.ConfidenceLow
	default:
		return domain.ConfidenceStale
	}
}

// AdjustConfidenceForAge caps base confidence by the data's recency:
// most-conservative-wins, never an upgrade.
func AdjustConfidenceForAge(base domain.Confidence, timestamp, now int64) domain.Confidence {
	return domain.MinConfidence(base, RecencyConfidence(timestamp, now))
}

// Urgency converts a severity into a 0-100 urgency score decayed by age.
func Urgency(severity domain.Severity, timestamp, now int64, lambda float64) int {
	base, ok := domain.SeverityScore[severity]
	if !ok {
		return 0
	}
	return int(math.Round(float64(base) * Weight(AgeDays(timestamp, now), lambda)))
}
