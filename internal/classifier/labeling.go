package classifier

import (
	"math"

	"github.com/mattxander12/forex-trader/internal/types"
)

// Example is a labeled feature vector.
type Example struct {
	Index    int
	Features []float64
	Label    Label
}

// LabelConfig controls triple-barrier labeling.
type LabelConfig struct {
	// Horizon is the number of bars walked forward from the entry bar.
	Horizon int
	// RiskMultiple scales ATR into the stop distance.
	RiskMultiple float64
	RR           float64
}

// TripleBarrier labels bar i by which side's take-profit is reached first.
// Each side walks forward until its take or stop is touched alone; a bar where
// both are touched is ignored. The bar is UP when only the long side wins,
// DOWN when only the short side wins, and unlabeled otherwise.
func TripleBarrier(highs, lows, closes, atr []float64, i int, cfg LabelConfig) (Label, bool) {
	n := len(closes)
	if i < 0 || i >= n-1 || cfg.Horizon <= 0 {
		return "", false
	}

	risk := atr[i] * cfg.RiskMultiple
	if risk <= 0 || math.IsNaN(risk) || math.IsInf(risk, 0) {
		return "", false
	}

	entry := closes[i]
	longTP, longSL := entry+cfg.RR*risk, entry-risk
	shortTP, shortSL := entry-cfg.RR*risk, entry+risk
	limit := min(i+cfg.Horizon, n-1)

	longWin := false
	for j := i + 1; j <= limit; j++ {
		if highs[j] >= longTP && lows[j] > longSL {
			longWin = true

			break
		}

		if lows[j] <= longSL && highs[j] < longTP {
			break
		}
	}

	shortWin := false
	for j := i + 1; j <= limit; j++ {
		if lows[j] <= shortTP && highs[j] < shortSL {
			shortWin = true

			break
		}

		if highs[j] >= shortSL && lows[j] > shortTP {
			break
		}
	}

	switch {
	case longWin && !shortWin:
		return LabelUp, true
	case shortWin && !longWin:
		return LabelDown, true
	default:
		return "", false
	}
}

// BuildExamples labels every bar from warmup that has a complete feature
// vector and an unambiguous outcome.
func BuildExamples(candles []types.Candle, s types.IndicatorSeries, warmup int, cfg LabelConfig) []Example {
	highs, lows, closes := types.OHLC(candles)
	examples := make([]Example, 0, len(candles))

	for i := max(warmup, MinFeatureIndex); i < len(candles)-1; i++ {
		features := Features(closes, s, i)
		if features == nil {
			continue
		}

		label, ok := TripleBarrier(highs, lows, closes, s.ATR, i, cfg)
		if !ok {
			continue
		}

		examples = append(examples, Example{Index: i, Features: features, Label: label})
	}

	return examples
}
