// Package sizing computes position size from a risk budget and margin limits.
package sizing

import "math"

const (
	minStopDistance = 1e-6
	minEntryPrice   = 1e-9
)

// Config is the sizing policy of a run.
type Config struct {
	// StopATRMultiple scales ATR into the stop distance used for sizing.
	StopATRMultiple float64
	// RiskFraction is the share of equity risked per trade.
	RiskFraction float64
	Leverage     float64
}

// Size is the sizing result for one entry.
type Size struct {
	StopDistance float64
	Units        float64
	// RiskUSD is the dollar risk actually taken, which is below the budget when
	// the margin cap binds.
	RiskUSD float64
}

// Feasible reports whether a position can be opened.
func (s Size) Feasible() bool {
	return s.Units > 0
}

// Sizer computes position sizes.
type Sizer struct {
	cfg Config
}

func NewSizer(cfg Config) *Sizer {
	return &Sizer{cfg: cfg}
}

// Size returns the position size for an entry at price entry given the bar's
// ATR and current equity. The result is not feasible when margin leaves no room.
func (s *Sizer) Size(atr, equity, entry float64) Size {
	stopDistance := math.Max(minStopDistance, atr*s.cfg.StopATRMultiple)
	riskBudget := math.Max(0, s.cfg.RiskFraction) * equity
	target := riskBudget / stopDistance

	marginCap := equity * s.cfg.Leverage / math.Max(minEntryPrice, entry)
	units := math.Min(target, math.Max(0, marginCap))

	if !(units > 0) {
		return Size{StopDistance: stopDistance, Units: 0, RiskUSD: 0}
	}

	return Size{
		StopDistance: stopDistance,
		Units:        units,
		RiskUSD:      units * stopDistance,
	}
}
