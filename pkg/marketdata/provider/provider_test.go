package provider

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mattxander12/forex-trader/internal/logger"
	"github.com/mattxander12/forex-trader/internal/types"
	"github.com/mattxander12/forex-trader/pkg/errors"
	"github.com/mattxander12/forex-trader/pkg/marketdata/writer"
)

type ProviderTestSuite struct {
	suite.Suite
}

func TestProviderSuite(t *testing.T) {
	suite.Run(t, new(ProviderTestSuite))
}

func (suite *ProviderTestSuite) TestNewProvider() {
	p, err := NewProvider(ProviderBinance, Options{})
	suite.Require().NoError(err)
	suite.IsType(&BinanceClient{}, p)

	p, err = NewProvider(ProviderPolygon, Options{PolygonAPIKey: "k"})
	suite.Require().NoError(err)
	suite.IsType(&PolygonClient{}, p)

	_, err = NewProvider(ProviderPolygon, Options{})
	suite.Error(err)

	_, err = NewProvider(ProviderParquet, Options{})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

	_, err = NewProvider("oanda", Options{})
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupportedProvider))
}

func (suite *ProviderTestSuite) TestIntervals() {
	interval, err := binanceInterval(types.GranularityH4)
	suite.NoError(err)
	suite.Equal("4h", interval)

	mult, span, err := polygonTimespan(types.GranularityM15)
	suite.NoError(err)
	suite.Equal(15, mult)
	suite.Equal("minute", string(span))

	_, _, err = polygonTimespan("M7")
	suite.Error(err)

	suite.Equal(150*time.Minute, lookback(types.GranularityM1, 100))
}

func (suite *ProviderTestSuite) TestParquetRoundTrip() {
	dir := suite.T().TempDir()
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	w := writer.NewDuckDBWriter(filepath.Join(dir, writer.FileName("EUR_USD", types.GranularityM5)))
	suite.Require().NoError(w.Initialize())
	for i := range 10 {
		p := 1.1 + float64(i)*0.001
		suite.Require().NoError(w.Write("EUR_USD", types.Candle{
			Time:   start.Add(time.Duration(i) * 5 * time.Minute),
			Open:   p,
			High:   p + 0.001,
			Low:    p - 0.001,
			Close:  p,
			Volume: 1,
		}))
	}
	_, err := w.Finalize()
	suite.Require().NoError(err)
	suite.Require().NoError(w.Close())

	p, err := NewParquetProvider(dir, logger.NewNopLogger())
	suite.Require().NoError(err)
	defer p.Close()

	candles, err := p.Load(context.Background(), "EUR_USD", types.GranularityM5, 4)
	suite.Require().NoError(err)
	suite.Require().Len(candles, 4)
	suite.Equal(start.Add(6*5*time.Minute), candles[0].Time)
	suite.Equal(start.Add(9*5*time.Minute), candles[3].Time)
	suite.InDelta(1.109, candles[3].Close, 1e-12)

	all, err := p.Load(context.Background(), "EUR_USD", types.GranularityM5, 0)
	suite.Require().NoError(err)
	suite.Len(all, 10)

	_, err = p.Load(context.Background(), "GBP_USD", types.GranularityM5, 4)
	suite.True(errors.HasCode(err, errors.ErrCodeDataNotFound))
}
