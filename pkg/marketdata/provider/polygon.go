package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/mattxander12/forex-trader/internal/types"
	"github.com/mattxander12/forex-trader/pkg/errors"
	"github.com/mattxander12/forex-trader/pkg/marketdata/writer"
)

const polygonPageLimit = 50000

// PolygonAggsIterator iterates aggregate bars.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient lists aggregate bars.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
}

type polygonAPI struct {
	client *polygon.Client
}

func (a *polygonAPI) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return a.client.ListAggs(ctx, params, options...)
}

// PolygonClient loads and downloads aggregates from Polygon.io. FX pairs
// written as BASE_QUOTE are requested as C:BASEQUOTE.
type PolygonClient struct {
	apiClient PolygonAPIClient
	writer    writer.CandleWriter
	now       func() time.Time
}

func NewPolygonClient(apiKey string) (*PolygonClient, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "polygon provider requires an API key")
	}

	return NewPolygonClientWithAPI(&polygonAPI{client: polygon.New(apiKey)}), nil
}

// NewPolygonClientWithAPI creates a client over a custom API implementation.
func NewPolygonClientWithAPI(api PolygonAPIClient) *PolygonClient {
	return &PolygonClient{
		apiClient: api,
		writer:    nil,
		now:       time.Now,
	}
}

func (c *PolygonClient) ConfigWriter(w writer.CandleWriter) {
	c.writer = w
}

// Load implements Provider.
func (c *PolygonClient) Load(ctx context.Context, instrument string, granularity types.Granularity, count int) ([]types.Candle, error) {
	end := c.now()
	start := end.Add(-lookback(granularity, count))
	candles := make([]types.Candle, 0, count)

	err := c.list(ctx, instrument, granularity, start, end, func(candle types.Candle) error {
		candles = append(candles, candle)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return lastN(candles, count), nil
}

// Download implements Downloader.
func (c *PolygonClient) Download(ctx context.Context, instrument string, granularity types.Granularity, startDate time.Time, endDate time.Time, onProgress OnDownloadProgress) (path string, err error) {
	if c.writer == nil {
		return "", errors.New(errors.ErrCodeCandleWriteFailed, "writer is not configured")
	}

	if err := c.writer.Initialize(); err != nil {
		return "", errors.Wrap(errors.ErrCodeCandleWriteFailed, "failed to initialize writer", err)
	}

	total := endDate.Sub(startDate).Seconds()
	processed := 0

	err = c.list(ctx, instrument, granularity, startDate, endDate, func(candle types.Candle) error {
		if err := c.writer.Write(instrument, candle); err != nil {
			return err
		}

		processed++
		if onProgress != nil && processed%1000 == 0 {
			onProgress(candle.Time.Sub(startDate).Seconds(), total, fmt.Sprintf("Downloading %s from Polygon", instrument))
		}

		return nil
	})
	if err != nil {
		return "", err
	}

	if onProgress != nil {
		onProgress(total, total, fmt.Sprintf("Downloaded %d bars of %s", processed, instrument))
	}

	return c.writer.Finalize()
}

func (c *PolygonClient) list(ctx context.Context, instrument string, granularity types.Granularity, start, end time.Time, fn func(types.Candle) error) error {
	multiplier, timespan, err := polygonTimespan(granularity)
	if err != nil {
		return err
	}

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     polygonTicker(instrument),
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithOrder(models.Asc).WithLimit(polygonPageLimit)

	it := c.apiClient.ListAggs(ctx, params)
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.ErrCodeCandleSourceFailed, "polygon request cancelled", err)
		}

		agg := it.Item()
		candle := types.Candle{
			Time:   time.Time(agg.Timestamp).UTC(),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		}

		if err := fn(candle); err != nil {
			return err
		}
	}

	if err := it.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeCandleSourceFailed, "failed to list Polygon aggregates", err)
	}

	return nil
}

func polygonTicker(instrument string) string {
	parts := strings.Split(strings.ToUpper(instrument), "_")
	if len(parts) == 2 && len(parts[0]) == 3 && len(parts[1]) == 3 {
		return "C:" + parts[0] + parts[1]
	}

	return strings.ToUpper(instrument)
}
