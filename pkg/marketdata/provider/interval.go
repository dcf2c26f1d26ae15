package provider

import (
	"time"

	"github.com/polygon-io/client-go/rest/models"

	"github.com/mattxander12/forex-trader/internal/types"
	"github.com/mattxander12/forex-trader/pkg/errors"
)

// binanceInterval maps a granularity to a Binance kline interval.
// Ref: https://binance-docs.github.io/apidocs/spot/en/#kline-candlestick-data
func binanceInterval(g types.Granularity) (string, error) {
	switch g {
	case types.GranularityM1:
		return "1m", nil
	case types.GranularityM5:
		return "5m", nil
	case types.GranularityM15:
		return "15m", nil
	case types.GranularityM30:
		return "30m", nil
	case types.GranularityH1:
		return "1h", nil
	case types.GranularityH4:
		return "4h", nil
	case types.GranularityD:
		return "1d", nil
	case types.GranularityW:
		return "1w", nil
	case types.GranularityS5:
		return "", errors.Newf(errors.ErrCodeInvalidGranularity, "unsupported granularity for Binance: %s", g)
	default:
		return "", errors.Newf(errors.ErrCodeInvalidGranularity, "unsupported granularity for Binance: %s", g)
	}
}

// polygonTimespan maps a granularity to a Polygon multiplier and timespan.
func polygonTimespan(g types.Granularity) (int, models.Timespan, error) {
	switch g {
	case types.GranularityS5:
		return 5, models.Second, nil
	case types.GranularityM1:
		return 1, models.Minute, nil
	case types.GranularityM5:
		return 5, models.Minute, nil
	case types.GranularityM15:
		return 15, models.Minute, nil
	case types.GranularityM30:
		return 30, models.Minute, nil
	case types.GranularityH1:
		return 1, models.Hour, nil
	case types.GranularityH4:
		return 4, models.Hour, nil
	case types.GranularityD:
		return 1, models.Day, nil
	case types.GranularityW:
		return 1, models.Week, nil
	default:
		return 0, "", errors.Newf(errors.ErrCodeInvalidGranularity, "unsupported granularity for Polygon: %s", g)
	}
}

// lookback is the span that holds count bars of g, padded by half for
// weekends and market gaps.
func lookback(g types.Granularity, count int) time.Duration {
	return g.Duration() * time.Duration(count) * 3 / 2
}
