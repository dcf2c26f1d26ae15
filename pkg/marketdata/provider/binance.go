package provider

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/mattxander12/forex-trader/internal/types"
	"github.com/mattxander12/forex-trader/pkg/errors"
	"github.com/mattxander12/forex-trader/pkg/marketdata/writer"
)

// binancePageLimit is the maximum klines Binance returns per request.
const binancePageLimit = 1000

// BinanceKlinesService is the subset of the Binance klines request builder
// used here.
type BinanceKlinesService interface {
	Symbol(symbol string) BinanceKlinesService
	Interval(interval string) BinanceKlinesService
	StartTime(startTime int64) BinanceKlinesService
	EndTime(endTime int64) BinanceKlinesService
	Limit(limit int) BinanceKlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// BinanceAPIClient creates klines requests.
type BinanceAPIClient interface {
	NewKlinesService() BinanceKlinesService
}

type binanceAPI struct {
	client *binance.Client
}

func (a *binanceAPI) NewKlinesService() BinanceKlinesService {
	return &binanceKlines{svc: a.client.NewKlinesService()}
}

type binanceKlines struct {
	svc *binance.KlinesService
}

func (k *binanceKlines) Symbol(symbol string) BinanceKlinesService {
	k.svc.Symbol(symbol)

	return k
}

func (k *binanceKlines) Interval(interval string) BinanceKlinesService {
	k.svc.Interval(interval)

	return k
}

func (k *binanceKlines) StartTime(startTime int64) BinanceKlinesService {
	k.svc.StartTime(startTime)

	return k
}

func (k *binanceKlines) EndTime(endTime int64) BinanceKlinesService {
	k.svc.EndTime(endTime)

	return k
}

func (k *binanceKlines) Limit(limit int) BinanceKlinesService {
	k.svc.Limit(limit)

	return k
}

func (k *binanceKlines) Do(ctx context.Context) ([]*binance.Kline, error) {
	return k.svc.Do(ctx)
}

// BinanceClient loads and downloads klines from Binance. Instruments are
// mapped to Binance symbols by dropping underscores (BTC_USDT -> BTCUSDT).
type BinanceClient struct {
	apiClient BinanceAPIClient
	writer    writer.CandleWriter
	now       func() time.Time
}

func NewBinanceClient() (*BinanceClient, error) {
	return NewBinanceClientWithAPI(&binanceAPI{client: binance.NewClient("", "")}), nil
}

// NewBinanceClientWithAPI creates a client over a custom API implementation.
func NewBinanceClientWithAPI(api BinanceAPIClient) *BinanceClient {
	return &BinanceClient{
		apiClient: api,
		writer:    nil,
		now:       time.Now,
	}
}

func (c *BinanceClient) ConfigWriter(w writer.CandleWriter) {
	c.writer = w
}

// Load implements Provider.
func (c *BinanceClient) Load(ctx context.Context, instrument string, granularity types.Granularity, count int) ([]types.Candle, error) {
	interval, err := binanceInterval(granularity)
	if err != nil {
		return nil, err
	}

	end := c.now()
	start := end.Add(-lookback(granularity, count))
	candles := make([]types.Candle, 0, count)

	err = c.page(ctx, binanceSymbol(instrument), interval, start.UnixMilli(), end.UnixMilli(), func(klines []*binance.Kline) error {
		for _, k := range klines {
			candle, err := klineToCandle(k)
			if err != nil {
				return err
			}

			candles = append(candles, candle)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return lastN(candles, count), nil
}

// Download implements Downloader.
func (c *BinanceClient) Download(ctx context.Context, instrument string, granularity types.Granularity, startDate time.Time, endDate time.Time, onProgress OnDownloadProgress) (path string, err error) {
	interval, err := binanceInterval(granularity)
	if err != nil {
		return "", err
	}

	if c.writer == nil {
		return "", errors.New(errors.ErrCodeCandleWriteFailed, "writer is not configured")
	}

	if err := c.writer.Initialize(); err != nil {
		return "", errors.Wrap(errors.ErrCodeCandleWriteFailed, "failed to initialize writer", err)
	}

	startMillis, endMillis := startDate.UnixMilli(), endDate.UnixMilli()

	err = c.page(ctx, binanceSymbol(instrument), interval, startMillis, endMillis, func(klines []*binance.Kline) error {
		for _, k := range klines {
			candle, err := klineToCandle(k)
			if err != nil {
				return err
			}

			if err := c.writer.Write(instrument, candle); err != nil {
				return err
			}
		}

		if onProgress != nil && len(klines) > 0 {
			last := klines[len(klines)-1].CloseTime
			onProgress(float64(last-startMillis), float64(endMillis-startMillis), fmt.Sprintf("Downloading %s klines from Binance", instrument))
		}

		return nil
	})
	if err != nil {
		return "", err
	}

	return c.writer.Finalize()
}

// page requests klines from start to end in pages, advancing by the close
// time of the last kline of each page.
func (c *BinanceClient) page(ctx context.Context, symbol, interval string, start, end int64, fn func([]*binance.Kline) error) error {
	current := start

	for {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.ErrCodeCandleSourceFailed, "binance request cancelled", err)
		}

		klines, err := c.apiClient.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(current).
			EndTime(end).
			Limit(binancePageLimit).
			Do(ctx)
		if err != nil {
			return errors.Wrap(errors.ErrCodeCandleSourceFailed, "failed to fetch klines from Binance", err)
		}

		if err := fn(klines); err != nil {
			return err
		}

		if len(klines) < binancePageLimit {
			return nil
		}

		current = klines[len(klines)-1].CloseTime + 1
		if current >= end {
			return nil
		}
	}
}

func binanceSymbol(instrument string) string {
	return strings.ToUpper(strings.ReplaceAll(instrument, "_", ""))
}

func klineToCandle(k *binance.Kline) (types.Candle, error) {
	values := make([]float64, 5)

	for i, raw := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.Candle{}, errors.Wrapf(errors.ErrCodeCandleParseFailed, err, "invalid kline value %q", raw)
		}

		values[i] = v
	}

	return types.Candle{
		Time:   time.UnixMilli(k.OpenTime).UTC(),
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, nil
}
