package indicator

import "math"

// ATR returns Wilder's average true range. The first bar's true range is its
// high-low range; the first defined value is at index period-1.
func ATR(highs, lows, closes []float64, period int) []float64 {
	n := min(len(highs), len(lows), len(closes))
	out := nanSeries(len(closes))

	if period <= 0 {
		return out
	}

	p := float64(period)
	smoothed := 0.0

	for i := 0; i < n; i++ {
		tr := highs[i] - lows[i]
		if i > 0 {
			prev := closes[i-1]
			tr = max(tr, math.Abs(highs[i]-prev), math.Abs(lows[i]-prev))
		}

		if i < period {
			smoothed += tr
			if i == period-1 {
				smoothed /= p
				out[i] = smoothed
			}

			continue
		}

		smoothed = (smoothed*(p-1) + tr) / p
		out[i] = smoothed
	}

	return out
}
