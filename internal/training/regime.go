package training

import (
	"math"
	"time"

	"github.com/mattxander12/forex-trader/internal/gate"
	"github.com/mattxander12/forex-trader/internal/indicator"
	"github.com/mattxander12/forex-trader/internal/types"
)

// regimeSlack scales the ATR percentile floor of the regime filter.
const regimeSlack = 0.98

// RegimeFilter selects the bars a trading run would plausibly act on: enough
// volatility, inside the session, and a trend in either direction.
type RegimeFilter struct {
	ATRWindow     int
	ATRPercentile float64
	SessionStart  int
	SessionEnd    int
	RSILong       float64
	RSIShort      float64
}

// Admits reports whether bar i at time t passes the filter.
func (f RegimeFilter) Admits(t time.Time, s types.IndicatorSeries, i int) bool {
	if i < 0 || i >= s.Len() {
		return false
	}

	if !f.volatilityOK(s.ATR, i) {
		return false
	}

	if !gate.InSession(t, f.SessionStart, f.SessionEnd) {
		return false
	}

	fast, slow, rsi := s.MAFast[i], s.MASlow[i], s.RSI[i]
	tol := math.Abs(slow) * gate.MATolerance

	long := rsi > f.RSILong && fast > slow-tol
	short := rsi < f.RSIShort && fast < slow+tol

	return long || short
}

func (f RegimeFilter) volatilityOK(atr []float64, i int) bool {
	if f.ATRWindow <= 0 || i-1 < f.ATRWindow {
		return true
	}

	floor := indicator.PercentileOfWindow(atr, i, f.ATRWindow, f.ATRPercentile)
	if math.IsNaN(floor) {
		return true
	}

	return atr[i] >= floor*regimeSlack
}
