package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/mattxander12/forex-trader/internal/logger"
	"github.com/mattxander12/forex-trader/internal/types"
	"github.com/mattxander12/forex-trader/pkg/errors"
	"github.com/mattxander12/forex-trader/pkg/marketdata"
	"github.com/mattxander12/forex-trader/pkg/marketdata/provider"
)

// progressReporter renders download progress on bar. Providers that cannot
// tell the total report zero, which leaves the bar as a spinner.
func progressReporter(bar *progressbar.ProgressBar) provider.OnDownloadProgress {
	return func(current float64, total float64, message string) {
		if total > 0 && bar.GetMax() != int(total) {
			bar.ChangeMax(int(total))
		}

		if message != "" {
			bar.Describe(message)
		}

		_ = bar.Set(int(current))
	}
}

// downloadParams parses the flags of one download.
func downloadParams(cmd *cli.Command) (marketdata.DownloadParams, error) {
	granularity, err := types.ParseGranularity(cmd.String("granularity"))
	if err != nil {
		return marketdata.DownloadParams{}, err
	}

	start := cmd.Timestamp("start")
	end := cmd.Timestamp("end")

	if !end.After(start) {
		return marketdata.DownloadParams{}, errors.Newf(errors.ErrCodeInvalidParameter,
			"end date %s must be after start date %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	return marketdata.DownloadParams{
		Instrument:  cmd.String("instrument"),
		Granularity: granularity,
		StartDate:   start,
		EndDate:     end,
	}, nil
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	params, err := downloadParams(cmd)
	if err != nil {
		return err
	}

	log, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	defer func() { _ = log.Sync() }()

	bar := progressbar.Default(-1, "Downloading "+params.Instrument)

	client, err := marketdata.NewClient(marketdata.ClientConfig{
		ProviderType:  provider.ProviderType(cmd.String("provider")),
		DataPath:      cmd.String("data"),
		PolygonApiKey: cmd.String("polygon-api-key"),
	}, progressReporter(bar), log)
	if err != nil {
		return err
	}

	path, err := client.Download(ctx, params)
	_ = bar.Finish()

	if err != nil {
		return err
	}

	log.Info("Download completed", zap.String("path", path))

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "download",
		Usage: "Download historical candles into the parquet data directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "instrument",
				Aliases:  []string{"i"},
				Usage:    "Instrument such as EUR_USD",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "granularity",
				Aliases: []string{"g"},
				Usage:   "Candle granularity such as M5 or H1",
				Value:   string(types.GranularityM5),
			},
			&cli.TimestampFlag{
				Name:    "start",
				Aliases: []string{"s"},
				Usage:   "Start date in `YYYY-MM-DD` format",
				Config: cli.TimestampConfig{
					Layouts: []string{time.DateOnly},
				},
				Required: true,
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "End date in `YYYY-MM-DD` format. Defaults to now.",
				Value:   time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{time.DateOnly},
				},
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   fmt.Sprintf("Data provider (%s, %s)", provider.ProviderPolygon, provider.ProviderBinance),
				Value:   string(provider.ProviderPolygon),
			},
			&cli.StringFlag{
				Name:    "polygon-api-key",
				Usage:   "Polygon API key, required for the polygon provider",
				Sources: cli.EnvVars("POLYGON_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Path to the data output directory",
				Value:   "data",
			},
		},
		Action: downloadAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
