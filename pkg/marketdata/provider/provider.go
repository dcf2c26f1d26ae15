package provider

import (
	"context"
	"time"

	"github.com/mattxander12/forex-trader/internal/logger"
	"github.com/mattxander12/forex-trader/internal/types"
	"github.com/mattxander12/forex-trader/pkg/errors"
	"github.com/mattxander12/forex-trader/pkg/marketdata/writer"
)

// ProviderType names a candle source.
type ProviderType string

const (
	ProviderParquet ProviderType = "parquet"
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
)

type OnDownloadProgress = func(current float64, total float64, message string)

// Provider loads historical candles.
type Provider interface {
	// Load returns up to count of the most recent candles for instrument,
	// oldest first.
	Load(ctx context.Context, instrument string, granularity types.Granularity, count int) ([]types.Candle, error)
}

// Downloader copies a date range of candles into a writer.
type Downloader interface {
	// ConfigWriter sets the destination of Download.
	ConfigWriter(w writer.CandleWriter)
	// Download fetches candles in [startDate, endDate) and returns the path
	// the writer produced.
	Download(ctx context.Context, instrument string, granularity types.Granularity, startDate time.Time, endDate time.Time, onProgress OnDownloadProgress) (path string, err error)
}

// Options configure NewProvider.
type Options struct {
	// DataDir holds parquet files for the parquet provider.
	DataDir       string
	PolygonAPIKey string
	Logger        *logger.Logger
}

// NewProvider creates the provider named by providerType.
func NewProvider(providerType ProviderType, opts Options) (Provider, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	var (
		p   Provider
		err error
	)

	switch providerType {
	case ProviderParquet:
		p, err = NewParquetProvider(opts.DataDir, log)
	case ProviderBinance:
		p, err = NewBinanceClient()
	case ProviderPolygon:
		p, err = NewPolygonClient(opts.PolygonAPIKey)
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedProvider, "unsupported candle provider: %s", providerType)
	}

	if err != nil {
		return nil, err
	}

	return p, nil
}

// lastN trims candles to the newest count entries.
func lastN(candles []types.Candle, count int) []types.Candle {
	if count > 0 && len(candles) > count {
		return candles[len(candles)-count:]
	}

	return candles
}
