package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/mattxander12/forex-trader/internal/backtest/engine"
	enginev1 "github.com/mattxander12/forex-trader/internal/backtest/engine/engine_v1"
	"github.com/mattxander12/forex-trader/internal/config"
	"github.com/mattxander12/forex-trader/internal/logger"
	"github.com/mattxander12/forex-trader/internal/runner"
	"github.com/mattxander12/forex-trader/internal/training"
	"github.com/mattxander12/forex-trader/internal/types"
	"github.com/mattxander12/forex-trader/pkg/marketdata/provider"
)

// overridesFromFlags collects the per-run overrides set on cmd.
func overridesFromFlags(cmd *cli.Command) config.Overrides {
	overrides := config.Overrides{
		Instrument:  cmd.String("instrument"),
		Granularity: cmd.String("granularity"),
		Mode:        cmd.String("mode"),
	}

	if cmd.IsSet("count") {
		count := int(cmd.Int("count"))
		overrides.Count = &count
	}

	if cmd.IsSet("rr") {
		rr := cmd.Float("rr")
		overrides.RR = &rr
	}

	if cmd.IsSet("risk") {
		risk := cmd.Float("risk")
		overrides.Risk = &risk
	}

	return overrides
}

// progressCallbacks drives bar from the engine's per-bar callback.
func progressCallbacks(bar *progressbar.ProgressBar) engine.LifecycleCallbacks {
	onStart := engine.OnRunStartCallback(func(_ string, instrument string, _ int) error {
		bar.Describe("Backtesting " + instrument)

		return nil
	})

	onProcess := engine.OnProcessDataCallback(func(current int, total int) error {
		if bar.GetMax() != total {
			bar.ChangeMax(total)
		}

		return bar.Set(current)
	})

	onEnd := engine.OnRunEndCallback(func(types.RunStats, error) {
		_ = bar.Finish()
	})

	return engine.LifecycleCallbacks{
		OnRunStart:    &onStart,
		OnProcessData: &onProcess,
		OnRunEnd:      &onEnd,
	}
}

func printSummary(w io.Writer, stats types.RunStats, resultPath string) {
	fmt.Fprintf(w, "\n%s %s: %d trades, %d won, %d lost, win rate %.1f%%\n",
		stats.Instrument, stats.Granularity, stats.Trades, stats.Wins, stats.Losses, stats.WinRate)
	fmt.Fprintf(w, "Total %.2fR, avg %.3fR, profit factor %.3f, max drawdown %.2fR\n",
		stats.TotalR, stats.AvgR, stats.ProfitFactor, stats.MaxDrawdownR)
	fmt.Fprintf(w, "Balance %.2f -> %.2f\n", stats.StartBalance, stats.EndBalance)

	if resultPath != "" {
		fmt.Fprintf(w, "Stats written to %s\n", resultPath)
	}
}

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	base, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	cfg, err := overridesFromFlags(cmd).Apply(base)
	if err != nil {
		return err
	}

	log, err := logger.NewLoggerWithLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := provider.NewProvider(provider.ProviderType(cfg.Data.Provider), provider.Options{
		DataDir:       cfg.Data.Dir,
		PolygonAPIKey: cfg.Data.PolygonAPIKey,
		Logger:        log,
	})
	if err != nil {
		return err
	}

	if closer, ok := source.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	runID := uuid.New().String()

	model, err := training.LoadOrTrain(ctx, runner.TrainingConfig(cfg, runID), source, nil, log)
	if err != nil {
		return err
	}

	runConfig := runner.BacktestConfig(cfg, runID)
	if out := cmd.String("out"); out != "" {
		runConfig.ResultPath = filepath.Join(out, runID, "stats.yaml")
		if err := os.MkdirAll(filepath.Dir(runConfig.ResultPath), 0o755); err != nil {
			return fmt.Errorf("failed to create results directory: %w", err)
		}
	}

	bar := progressbar.Default(int64(max(1, cfg.Trading.Count)))

	stats, err := enginev1.NewBacktestEngineV1(runConfig, source, model, log).
		Run(ctx, nil, progressCallbacks(bar))
	if err != nil {
		return err
	}

	log.Debug("Backtest finished", zap.String("run_id", runID))
	printSummary(cmd.Root().Writer, stats, runConfig.ResultPath)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Run one backtest locally, training a model first when needed",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration",
			},
			&cli.StringFlag{
				Name:    "instrument",
				Aliases: []string{"i"},
				Usage:   "Instrument such as EUR_USD",
			},
			&cli.StringFlag{
				Name:    "granularity",
				Aliases: []string{"g"},
				Usage:   "Candle granularity such as M5 or H1",
			},
			&cli.IntFlag{
				Name:  "count",
				Usage: "Number of candles to backtest over",
			},
			&cli.FloatFlag{
				Name:  "rr",
				Usage: "Reward to risk ratio",
			},
			&cli.FloatFlag{
				Name:  "risk",
				Usage: "ATR multiple of the stop distance",
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Stop mode, ATR or PIPS",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Directory receiving the run stats YAML",
				Value:   "results",
			},
		},
		Action: backtestAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
