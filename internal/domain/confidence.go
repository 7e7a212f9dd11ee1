package domain

// Confidence is the qualitative reliability label attached to a derived number.
type Confidence string

const (
	// ConfidenceInsufficientData marks a value computed over a window too
	// short to be meaningful (< 7 observation days).
	ConfidenceInsufficientData Confidence = "insufficient_data"

	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"

	// ConfidenceError marks a value derived from defective data
	// (negative on-hand, event-store failure). Not a real business state.
	ConfidenceError Confidence = "error"

	// ConfidenceStale marks data older than the recency window.
	ConfidenceStale Confidence = "stale"
)

// confidenceRank orders the low < medium < high ladder.
// Off-ladder states (error, insufficient_data, stale) rank below low and
// are never promoted onto the ladder.
var confidenceRank = map[Confidence]int{
	ConfidenceLow:    1,
	ConfidenceMedium: 2,
	ConfidenceHigh:   3,
}

// OnLadder reports whether c participates in the low/medium/high ladder.
func (c Confidence) OnLadder() bool {
	_, ok := confidenceRank[c]
	return ok
}

// UpgradeConfidence promotes c one tier, capped at high.
// Off-ladder states are returned unchanged.
func UpgradeConfidence(c Confidence) Confidence {
	switch c {
	case ConfidenceLow:
		return ConfidenceMedium
	case ConfidenceMedium, ConfidenceHigh:
		return ConfidenceHigh
	default:
		return c
	}
}

// DowngradeConfidence demotes c one tier, floored at low.
// Off-ladder states are returned unchanged.
func DowngradeConfidence(c Confidence) Confidence {
	switch c {
	case ConfidenceHigh:
		return ConfidenceMedium
	case ConfidenceMedium, ConfidenceLow:
		return ConfidenceLow
	default:
		return c
	}
}

// MinConfidence returns the more conservative of a and b.
// Any off-ladder state wins over any ladder tier.
func MinConfidence(a, b Confidence) Confidence {
	ra, aOK := confidenceRank[a]
	rb, bOK := confidenceRank[b]
	if !aOK {
		return a
	}
	if !bOK {
		return b
	}
	if ra <= rb {
		return a
	}
	return b
}
