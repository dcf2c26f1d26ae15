package types

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type TypesTestSuite struct {
	suite.Suite
}

func TestTypesSuite(t *testing.T) {
	suite.Run(t, new(TypesTestSuite))
}

func (suite *TypesTestSuite) TestParseMAKind() {
	testCases := []struct {
		input   string
		want    MAKind
		wantErr bool
	}{
		{input: "SMA", want: MAKindSMA},
		{input: "ema", want: MAKindEMA},
		{input: " Hybrid ", want: MAKindHybrid},
		{input: "", want: MAKindSMA},
		{input: "WMA", wantErr: true},
	}

	for _, tc := range testCases {
		suite.Run(tc.input, func() {
			kind, err := ParseMAKind(tc.input)
			if tc.wantErr {
				suite.Error(err)

				return
			}
			suite.NoError(err)
			suite.Equal(tc.want, kind)
		})
	}
}

func (suite *TypesTestSuite) TestMAKindLines() {
	suite.False(MAKindSMA.FastUsesEMA())
	suite.False(MAKindSMA.SlowUsesEMA())
	suite.True(MAKindEMA.FastUsesEMA())
	suite.True(MAKindEMA.SlowUsesEMA())
	suite.True(MAKindHybrid.FastUsesEMA())
	suite.False(MAKindHybrid.SlowUsesEMA())
	suite.Equal("HYBRID", MAKindHybrid.String())
}

func (suite *TypesTestSuite) TestGranularity() {
	g, err := ParseGranularity("m5")
	suite.NoError(err)
	suite.Equal(GranularityM5, g)
	suite.Equal(288, g.BarsPerDay())
	suite.Equal(5*time.Minute, g.Duration())

	_, err = ParseGranularity("M7")
	suite.Error(err)

	suite.Equal(17280, GranularityS5.BarsPerDay())
	suite.Equal(6, GranularityH4.BarsPerDay())
	suite.Equal(1, GranularityW.BarsPerDay())
	suite.Equal(24, Granularity("X").BarsPerDay())
}

func (suite *TypesTestSuite) TestCandlesForYears() {
	suite.Equal(365*288+500, GranularityM5.CandlesForYears(1, 15))
	suite.Equal(2*365*24+1000, GranularityH1.CandlesForYears(2, 200))
	suite.Equal(365+500, GranularityD.CandlesForYears(1, 15))
	suite.Equal(365*288+500, GranularityW.CandlesForYears(1, 15))
}

func (suite *TypesTestSuite) TestPipSizeAndRiskMode() {
	suite.Equal(0.01, PipSize("USD_JPY"))
	suite.Equal(0.01, PipSize("eurjpy"))
	suite.Equal(0.0001, PipSize("EUR_USD"))

	mode, err := ParseRiskMode("pips")
	suite.NoError(err)
	suite.Equal(RiskModePips, mode)
	_, err = ParseRiskMode("percent")
	suite.Error(err)
}

func (suite *TypesTestSuite) TestOHLCAndDayKey() {
	ts := time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("X", -2*3600))
	highs, lows, closes := OHLC([]Candle{{High: 2, Low: 1, Close: 1.5}, {High: 3, Low: 2, Close: 2.5}})
	suite.Equal([]float64{2, 3}, highs)
	suite.Equal([]float64{1, 2}, lows)
	suite.Equal([]float64{1.5, 2.5}, closes)
	suite.Equal(20240310, UTCDayKey(ts))
}

func (suite *TypesTestSuite) TestCalibrationBinWinRate() {
	suite.True(math.IsNaN(CalibrationBinStats{Lo: 0.5, Hi: 0.55}.WinRate()))
	suite.InDelta(0.75, CalibrationBinStats{Count: 4, Wins: 3}.WinRate(), 1e-12)
}

func (suite *TypesTestSuite) TestWriteRunStats() {
	path := filepath.Join(suite.T().TempDir(), "stats.yaml")
	stats := RunStats{ID: "job-1", Instrument: "EUR_USD", Trades: 3, Wins: 2, Losses: 1, ProfitFactor: math.Inf(1)}
	suite.NoError(WriteRunStats(path, stats))

	data, err := os.ReadFile(path)
	suite.NoError(err)

	var decoded RunStats
	suite.NoError(yaml.Unmarshal(data, &decoded))
	suite.Equal("job-1", decoded.ID)
	suite.Equal(2, decoded.Wins)
	suite.True(math.IsInf(decoded.ProfitFactor, 1))
}
