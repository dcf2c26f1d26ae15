package types

import "time"

// Candle is one OHLCV bar. Series are ordered oldest first with unique times.
type Candle struct {
	Time   time.Time `json:"time" yaml:"time"`
	Open   float64   `json:"open" yaml:"open"`
	High   float64   `json:"high" yaml:"high"`
	Low    float64   `json:"low" yaml:"low"`
	Close  float64   `json:"close" yaml:"close"`
	Volume float64   `json:"volume" yaml:"volume"`
}

// OHLC splits a candle series into parallel high, low and close arrays.
func OHLC(candles []Candle) (highs, lows, closes []float64) {
	highs = make([]float64, len(candles))
	lows = make([]float64, len(candles))
	closes = make([]float64, len(candles))

	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
	}

	return highs, lows, closes
}

// UTCDayKey returns yyyymmdd for t in UTC.
func UTCDayKey(t time.Time) int {
	u := t.UTC()

	return u.Year()*10000 + int(u.Month())*100 + u.Day()
}
