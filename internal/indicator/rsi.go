package indicator

// DefaultRSIPeriod is the RSI lookback used by the simulation.
const DefaultRSIPeriod = 14

// RSI returns Wilder's relative strength index of closes. The first defined
// value is at index period. A window without losses yields 100.
func RSI(closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if period <= 0 {
		return out
	}

	gain, loss := 0.0, 0.0
	p := float64(period)

	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		up := max(change, 0)
		down := max(-change, 0)

		if i <= period {
			gain += up
			loss += down

			if i == period {
				gain /= p
				loss /= p
				out[i] = rsiValue(gain, loss)
			}

			continue
		}

		gain = (gain*(p-1) + up) / p
		loss = (loss*(p-1) + down) / p
		out[i] = rsiValue(gain, loss)
	}

	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss

	return 100 - 100/(1+rs)
}
