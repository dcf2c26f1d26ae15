package marketdata

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mattxander12/forex-trader/internal/logger"
	"github.com/mattxander12/forex-trader/internal/types"
	"github.com/mattxander12/forex-trader/pkg/errors"
	"github.com/mattxander12/forex-trader/pkg/marketdata/provider"
	"github.com/mattxander12/forex-trader/pkg/marketdata/writer"
)

// ClientConfig configures a download client.
type ClientConfig struct {
	ProviderType  provider.ProviderType `validate:"required,oneof=polygon binance"`
	DataPath      string                `validate:"required"`
	PolygonApiKey string                `validate:"required_if=ProviderType polygon"`
}

// DownloadParams describes one download.
type DownloadParams struct {
	Instrument  string            `validate:"required"`
	Granularity types.Granularity `validate:"required"`
	StartDate   time.Time         `validate:"required"`
	EndDate     time.Time         `validate:"required,gtfield=StartDate"`
}

// Client downloads candles from a provider into parquet files that the
// parquet provider can read back.
type Client struct {
	downloader provider.Downloader
	config     ClientConfig
	validate   *validator.Validate
	onProgress provider.OnDownloadProgress
	logger     *logger.Logger
}

// NewClient creates a client for config.
func NewClient(config ClientConfig, onProgress provider.OnDownloadProgress, log *logger.Logger) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid client configuration", err)
	}

	var downloader provider.Downloader

	switch config.ProviderType {
	case provider.ProviderPolygon:
		client, err := provider.NewPolygonClient(config.PolygonApiKey)
		if err != nil {
			return nil, err
		}

		downloader = client
	case provider.ProviderBinance:
		client, err := provider.NewBinanceClient()
		if err != nil {
			return nil, err
		}

		downloader = client
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedProvider, "unsupported provider type: %s", config.ProviderType)
	}

	return NewClientWithDownloader(config, downloader, onProgress, log), nil
}

// NewClientWithDownloader creates a client over an existing downloader.
func NewClientWithDownloader(config ClientConfig, downloader provider.Downloader, onProgress provider.OnDownloadProgress, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Client{
		downloader: downloader,
		config:     config,
		validate:   validator.New(),
		onProgress: onProgress,
		logger:     log,
	}
}

// Download fetches params' range and returns the parquet path written.
func (c *Client) Download(ctx context.Context, params DownloadParams) (string, error) {
	if err := c.validate.Struct(params); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidParameter, "invalid download parameters", err)
	}

	if _, err := types.ParseGranularity(string(params.Granularity)); err != nil {
		return "", err
	}

	if err := os.MkdirAll(c.config.DataPath, 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeCandleWriteFailed, "failed to create data directory", err)
	}

	outputPath := filepath.Join(c.config.DataPath, writer.FileName(params.Instrument, params.Granularity))
	candleWriter := writer.NewDuckDBWriter(outputPath)

	defer func() {
		if err := candleWriter.Close(); err != nil {
			c.logger.Warn("Failed to close candle writer", zap.Error(err))
		}
	}()

	c.downloader.ConfigWriter(candleWriter)

	c.logger.Info("Downloading candles",
		zap.String("instrument", params.Instrument),
		zap.String("granularity", string(params.Granularity)),
		zap.Time("start", params.StartDate),
		zap.Time("end", params.EndDate),
	)

	path, err := c.downloader.Download(ctx, params.Instrument, params.Granularity, params.StartDate, params.EndDate, c.onProgress)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeCandleSourceFailed, "download failed", err)
	}

	return path, nil
}
