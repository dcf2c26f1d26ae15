// Package indicator derives index-aligned indicator series from candles.
//
// Every function returns a slice the same length as its input. Values that are
// not yet defined are NaN and consumers must treat them as "not ready".
package indicator

import (
	"math"
	"sort"

	"github.com/mattxander12/forex-trader/internal/types"
)

// Params configures Compute.
type Params struct {
	Fast      int
	Slow      int
	ATRPeriod int
	Kind      types.MAKind
}

// Warmup returns the first bar index at which every series is defined.
func (p Params) Warmup() int {
	return max(p.Fast, p.Slow, p.ATRPeriod) + 1
}

// Compute builds the fast/slow moving averages, RSI and ATR for candles.
func Compute(candles []types.Candle, params Params) types.IndicatorSeries {
	highs, lows, closes := types.OHLC(candles)

	fast := SMA(closes, params.Fast)
	if params.Kind.FastUsesEMA() {
		fast = EMA(closes, params.Fast)
	}

	slow := SMA(closes, params.Slow)
	if params.Kind.SlowUsesEMA() {
		slow = EMA(closes, params.Slow)
	}

	return types.IndicatorSeries{
		MAFast: fast,
		MASlow: slow,
		RSI:    RSI(closes, DefaultRSIPeriod),
		ATR:    ATR(highs, lows, closes, params.ATRPeriod),
	}
}

// PercentileOfWindow returns the pct percentile (0-100) of the window values of
// series ending at end (inclusive), using linear interpolation between ranks.
// NaN entries are ignored. It returns NaN when the window does not fit or holds
// no finite value.
func PercentileOfWindow(series []float64, end, window int, pct float64) float64 {
	if window <= 0 || end < window-1 || end >= len(series) {
		return math.NaN()
	}

	values := make([]float64, 0, window)
	for _, v := range series[end-window+1 : end+1] {
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}

	return Percentile(values, pct)
}

// Percentile returns the pct percentile of values with linear interpolation.
// values is not modified.
func Percentile(values []float64, pct float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := pct / 100.0 * float64(len(sorted)-1)
	lo, hi := int(math.Floor(rank)), int(math.Ceil(rank))

	if lo == hi {
		return sorted[lo]
	}

	w := rank - float64(lo)

	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Ready reports whether every series has a defined value at i.
func Ready(s types.IndicatorSeries, i int) bool {
	if i < 0 || i >= s.Len() {
		return false
	}

	return !math.IsNaN(s.MAFast[i]) && !math.IsNaN(s.MASlow[i]) && !math.IsNaN(s.RSI[i]) && !math.IsNaN(s.ATR[i])
}
