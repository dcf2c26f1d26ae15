package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/mattxander12/forex-trader/internal/config"
	"github.com/mattxander12/forex-trader/internal/types"
)

func TestOverridesFromFlags(t *testing.T) {
	var got config.Overrides

	cmd := &cli.Command{
		Name: "backtest",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "instrument"},
			&cli.StringFlag{Name: "granularity"},
			&cli.IntFlag{Name: "count"},
			&cli.FloatFlag{Name: "rr"},
			&cli.FloatFlag{Name: "risk"},
			&cli.StringFlag{Name: "mode"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			got = overridesFromFlags(cmd)

			return nil
		},
	}

	err := cmd.Run(context.Background(), []string{"backtest", "--instrument", "gbp_usd", "--count", "300", "--rr", "2"})
	require.NoError(t, err)

	assert.Equal(t, "gbp_usd", got.Instrument)
	require.NotNil(t, got.Count)
	assert.Equal(t, 300, *got.Count)
	require.NotNil(t, got.RR)
	assert.InDelta(t, 2.0, *got.RR, 1e-12)
	assert.Nil(t, got.Risk, "unset flags leave the config value")
	assert.Empty(t, got.Mode)

	cfg, err := got.Apply(config.Default())
	require.NoError(t, err)
	assert.Equal(t, "GBP_USD", cfg.Trading.Instrument)
}

func TestProgressCallbacks(t *testing.T) {
	bar := progressbar.NewOptions(10, progressbar.OptionSetWriter(&bytes.Buffer{}))
	callbacks := progressCallbacks(bar)

	require.NoError(t, (*callbacks.OnRunStart)("run", "EUR_USD", 120))
	require.NoError(t, (*callbacks.OnProcessData)(5, 100))
	assert.Equal(t, 100, bar.GetMax())
	assert.InDelta(t, 5.0, float64(bar.State().CurrentNum), 0)

	(*callbacks.OnRunEnd)(types.RunStats{}, nil)
	assert.True(t, bar.IsFinished())
}

func TestPrintSummary(t *testing.T) {
	var out bytes.Buffer

	printSummary(&out, types.RunStats{
		Timestamp:    time.Now(),
		Instrument:   "EUR_USD",
		Granularity:  "M5",
		Trades:       4,
		Wins:         3,
		Losses:       1,
		WinRate:      75,
		TotalR:       3.5,
		StartBalance: 10000,
		EndBalance:   10350,
	}, "results/run/stats.yaml")

	assert.Contains(t, out.String(), "EUR_USD M5: 4 trades, 3 won, 1 lost, win rate 75.0%")
	assert.Contains(t, out.String(), "Total 3.50R")
	assert.Contains(t, out.String(), "results/run/stats.yaml")
}
