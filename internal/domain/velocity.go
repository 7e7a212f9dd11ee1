package domain

// VelocityMetric is the per-SKU sale rate over an observation window.
type VelocityMetric struct {
	SKU             string
	StoreID         string
	DailyVelocity   float64 // units/day, >= 0
	WeeklyVelocity  float64 // DailyVelocity * 7
	TotalUnitsSold  int
	ObservationDays int
	DaysWithSales   int // distinct calendar days with at least one sale
	Confidence      Confidence
}

// DepletionForecast estimates days until on-hand reaches zero.
// DaysUntilDepletion semantics:
//
//	nil: velocity is zero or unknown, no forecast possible
//	0:   already out of stock (or defective negative on-hand, at error confidence)
//	n:   ceil(onHand / dailyVelocity), never negative
type DepletionForecast struct {
	SKU                string
	DaysUntilDepletion *int
	Confidence         Confidence
	Message            string
}

// VelocityPoint is one historical velocity observation, persisted per
// pipeline run for trend queries.
type VelocityPoint struct {
	StoreID       string
	SKU           string
	Timestamp     int64 // run time, Unix ms
	DailyVelocity float64
	Confidence    Confidence
}
