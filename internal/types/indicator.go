package types

import (
	"strings"

	"github.com/mattxander12/forex-trader/pkg/errors"
)

// MAKind selects which moving average backs the fast and slow lines.
type MAKind int

const (
	// MAKindSMA uses simple averages for both lines.
	MAKindSMA MAKind = iota
	// MAKindEMA uses exponential averages for both lines.
	MAKindEMA
	// MAKindHybrid uses an EMA for the fast line and an SMA for the slow line.
	MAKindHybrid
)

// ParseMAKind resolves a configuration string into an MAKind.
func ParseMAKind(s string) (MAKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "SMA":
		return MAKindSMA, nil
	case "EMA":
		return MAKindEMA, nil
	case "HYBRID":
		return MAKindHybrid, nil
	default:
		return MAKindSMA, errors.Newf(errors.ErrCodeInvalidMAKind, "unknown moving average kind %q", s)
	}
}

func (k MAKind) String() string {
	switch k {
	case MAKindEMA:
		return "EMA"
	case MAKindHybrid:
		return "HYBRID"
	default:
		return "SMA"
	}
}

// FastUsesEMA reports whether the fast line is exponential.
func (k MAKind) FastUsesEMA() bool {
	return k == MAKindEMA || k == MAKindHybrid
}

// SlowUsesEMA reports whether the slow line is exponential.
func (k MAKind) SlowUsesEMA() bool {
	return k == MAKindEMA
}

// IndicatorSeries holds index-aligned indicator values for a candle series.
// Entries that are not yet defined are NaN.
type IndicatorSeries struct {
	MAFast []float64
	MASlow []float64
	RSI    []float64
	ATR    []float64
}

// Len returns the number of bars covered.
func (s IndicatorSeries) Len() int {
	return len(s.ATR)
}
