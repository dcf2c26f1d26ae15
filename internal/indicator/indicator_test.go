package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mattxander12/forex-trader/internal/types"
)

type IndicatorTestSuite struct {
	suite.Suite
}

func TestIndicatorSuite(t *testing.T) {
	suite.Run(t, new(IndicatorTestSuite))
}

func (suite *IndicatorTestSuite) TestSMA() {
	out := SMA([]float64{1, 2, 3, 4, 5}, 3)
	suite.True(math.IsNaN(out[0]))
	suite.True(math.IsNaN(out[1]))
	suite.InDelta(2.0, out[2], 1e-12)
	suite.InDelta(3.0, out[3], 1e-12)
	suite.InDelta(4.0, out[4], 1e-12)
}

func (suite *IndicatorTestSuite) TestEMA() {
	out := EMA([]float64{1, 2, 3, 4}, 3)
	// seed is the SMA of the first three values, k = 0.5
	suite.InDelta(2.0, out[0], 1e-12)
	suite.InDelta(2.0, out[1], 1e-12)
	suite.InDelta(2.5, out[2], 1e-12)
	suite.InDelta(3.25, out[3], 1e-12)

	short := EMA([]float64{5, 7}, 10)
	suite.InDelta(5.0, short[0], 1e-12)

	suite.Equal([]float64{1, 2}, EMA([]float64{1, 2}, 1))
	suite.Empty(EMA(nil, 5))
}

func (suite *IndicatorTestSuite) TestRSI() {
	closes := []float64{1, 2, 3, 2, 3}
	out := RSI(closes, 2)
	suite.True(math.IsNaN(out[0]))
	suite.True(math.IsNaN(out[1]))
	// first window has gains only
	suite.InDelta(100.0, out[2], 1e-12)
	// avgGain = 0.5, avgLoss = 0.5
	suite.InDelta(50.0, out[3], 1e-12)
	// avgGain = 0.75, avgLoss = 0.25
	suite.InDelta(75.0, out[4], 1e-12)
}

func (suite *IndicatorTestSuite) TestATR() {
	highs := []float64{2, 3, 4}
	lows := []float64{1, 2, 1}
	closes := []float64{1.5, 2.5, 2}
	out := ATR(highs, lows, closes, 2)

	suite.True(math.IsNaN(out[0]))
	// TR0 = 1, TR1 = max(1, 1.5, 0.5) = 1.5
	suite.InDelta(1.25, out[1], 1e-12)
	// TR2 = max(3, 1.5, 1.5) = 3
	suite.InDelta((1.25+3)/2, out[2], 1e-12)
}

func (suite *IndicatorTestSuite) TestConstantPriceConverges() {
	n := 60
	candles := make([]types.Candle, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		candles[i] = types.Candle{Time: start.Add(time.Duration(i) * time.Minute), Open: 1.1, High: 1.1, Low: 1.1, Close: 1.1}
	}

	series := Compute(candles, Params{Fast: 10, Slow: 20, ATRPeriod: 14, Kind: types.MAKindSMA})
	for i := 21; i < n; i++ {
		suite.InDelta(0.0, series.ATR[i], 1e-12)
		suite.Equal(100.0, series.RSI[i])
		suite.InDelta(1.1, series.MAFast[i], 1e-12)
		suite.InDelta(1.1, series.MASlow[i], 1e-12)
	}
}

func (suite *IndicatorTestSuite) TestComputeKinds() {
	candles := make([]types.Candle, 40)
	for i := range candles {
		p := 1.0 + float64(i)*0.01
		candles[i] = types.Candle{High: p + 0.005, Low: p - 0.005, Close: p}
	}
	_, _, closes := types.OHLC(candles)

	testCases := []struct {
		name     string
		kind     types.MAKind
		wantFast []float64
		wantSlow []float64
	}{
		{name: "sma", kind: types.MAKindSMA, wantFast: SMA(closes, 5), wantSlow: SMA(closes, 10)},
		{name: "ema", kind: types.MAKindEMA, wantFast: EMA(closes, 5), wantSlow: EMA(closes, 10)},
		{name: "hybrid", kind: types.MAKindHybrid, wantFast: EMA(closes, 5), wantSlow: SMA(closes, 10)},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			series := Compute(candles, Params{Fast: 5, Slow: 10, ATRPeriod: 14, Kind: tc.kind})
			suite.InDeltaSlice(tc.wantFast[10:], series.MAFast[10:], 1e-12)
			suite.InDeltaSlice(tc.wantSlow[10:], series.MASlow[10:], 1e-12)
			suite.Equal(len(candles), series.Len())
		})
	}
}

func (suite *IndicatorTestSuite) TestWarmupAndReady() {
	params := Params{Fast: 10, Slow: 20, ATRPeriod: 14}
	suite.Equal(21, params.Warmup())

	candles := make([]types.Candle, 30)
	for i := range candles {
		candles[i] = types.Candle{High: 1.2, Low: 1.0, Close: 1.1}
	}
	series := Compute(candles, params)
	suite.False(Ready(series, 5))
	suite.True(Ready(series, 21))
	suite.False(Ready(series, 30))
}

func (suite *IndicatorTestSuite) TestPercentile() {
	suite.InDelta(2.5, Percentile([]float64{4, 1, 3, 2}, 50), 1e-12)
	suite.InDelta(1.9, Percentile([]float64{1, 2, 3, 4}, 30), 1e-12)
	suite.Equal(7.0, Percentile([]float64{7}, 90))
	suite.True(math.IsNaN(Percentile(nil, 50)))

	values := []float64{3, 1, 2}
	Percentile(values, 50)
	suite.Equal([]float64{3, 1, 2}, values)
}

func (suite *IndicatorTestSuite) TestPercentileOfWindow() {
	series := []float64{math.NaN(), 1, 2, 3, 4, 100}
	suite.InDelta(2.5, PercentileOfWindow(series, 4, 4, 50), 1e-12)
	// window not yet full
	suite.True(math.IsNaN(PercentileOfWindow(series, 2, 4, 50)))
	// NaN entries are ignored
	suite.InDelta(1.5, PercentileOfWindow(series, 2, 3, 50), 1e-12)
	suite.True(math.IsNaN(PercentileOfWindow(series, 6, 2, 50)))
}
