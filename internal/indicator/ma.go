package indicator

import "math"

// SMA returns the simple moving average of values. Entries before index
// period-1 are NaN.
func SMA(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}

	sum := 0.0

	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}

		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}

	return out
}

// EMA returns the exponential moving average of values with k = 2/(period+1).
// The seed at index 0 is the SMA of the first period values, or the first value
// when the series is shorter than period. A period of 1 or less returns a copy.
func EMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	if period <= 1 {
		copy(out, values)

		return out
	}

	k := 2.0 / (float64(period) + 1.0)

	seed := values[0]
	if len(values) >= period {
		sum := 0.0
		for _, v := range values[:period] {
			sum += v
		}

		seed = sum / float64(period)
	}

	out[0] = seed
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1.0-k)
	}

	return out
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	return out
}
