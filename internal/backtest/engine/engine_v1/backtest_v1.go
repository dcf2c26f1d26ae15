package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mattxander12/forex-trader/internal/backtest/engine"
	"github.com/mattxander12/forex-trader/internal/calibration"
	"github.com/mattxander12/forex-trader/internal/classifier"
	"github.com/mattxander12/forex-trader/internal/indicator"
	"github.com/mattxander12/forex-trader/internal/logger"
	"github.com/mattxander12/forex-trader/internal/types"
	"github.com/mattxander12/forex-trader/pkg/errors"
	"github.com/mattxander12/forex-trader/pkg/marketdata/provider"
)

const (
	// MinCandles is the smallest series a run accepts.
	MinCandles = 300
	// ProgressEvery is the bar interval of loop progress events.
	ProgressEvery = 500
)

type BacktestEngineV1 struct {
	config     engine.RunConfig
	source     provider.Provider
	classifier classifier.Classifier
	log        *logger.Logger
	now        func() time.Time
}

// NewBacktestEngineV1 creates an engine for one run. clf may be nil, in which
// case Run fails with ErrCodeClassifierMissing.
func NewBacktestEngineV1(config engine.RunConfig, source provider.Provider, clf classifier.Classifier, log *logger.Logger) engine.Engine {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &BacktestEngineV1{
		config:     config,
		source:     source,
		classifier: clf,
		log:        log.ForJob(config.ID),
		now:        time.Now,
	}
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, emitter engine.Emitter, callbacks engine.LifecycleCallbacks) (types.RunStats, error) {
	if emitter == nil {
		emitter = engine.NopEmitter
	}

	stats, err := b.run(ctx, emitter, callbacks)
	if err != nil {
		b.log.Error("Backtest failed", zap.Error(err))
		emitter.Emit(types.EventError, engine.NewErrorPayload(err))
	}

	if callbacks.OnRunEnd != nil {
		(*callbacks.OnRunEnd)(stats, err)
	}

	return stats, err
}

func (b *BacktestEngineV1) run(ctx context.Context, emitter engine.Emitter, callbacks engine.LifecycleCallbacks) (types.RunStats, error) {
	if err := b.preRunCheck(); err != nil {
		return types.RunStats{}, err
	}

	cfg := b.config

	emitter.Emit(types.EventProgress, engine.SetupPayload{
		Leverage:     cfg.Sizing.Leverage,
		StartBalance: cfg.StartBalance,
	})

	candles, err := b.source.Load(ctx, cfg.Instrument, cfg.Granularity, cfg.Count)
	if err != nil {
		return types.RunStats{}, errors.Wrap(errors.ErrCodeCandleSourceFailed, "failed to load candles", err)
	}

	if len(candles) < MinCandles {
		return types.RunStats{}, errors.Wrap(errors.ErrCodeInsufficientCandles, "not enough candles to backtest",
			errors.NewInsufficientCandlesError(MinCandles, len(candles), cfg.Instrument))
	}

	params := indicator.Params{Fast: cfg.Fast, Slow: cfg.Slow, ATRPeriod: cfg.ATRPeriod, Kind: cfg.MAKind}
	warmup := params.Warmup()

	if warmup >= len(candles) {
		return types.RunStats{}, errors.Newf(errors.ErrCodeNoUsableBars, "warmup of %d bars leaves no bars out of %d", warmup, len(candles))
	}

	b.log.Info("Backtest started",
		zap.String("instrument", cfg.Instrument),
		zap.String("granularity", string(cfg.Granularity)),
		zap.Int("candles", len(candles)),
		zap.Int("warmup", warmup),
		zap.String("ma_type", cfg.MAKind.String()),
	)

	emitter.Emit(types.EventProgress, engine.StartPayload{
		Phase:       engine.PhaseStart,
		Instrument:  cfg.Instrument,
		Granularity: string(cfg.Granularity),
		Candles:     len(candles),
		RR:          cfg.Ledger.RR,
		Mode:        cfg.Ledger.Mode,
	})

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(cfg.ID, cfg.Instrument, len(candles)); err != nil {
			return types.RunStats{}, errors.Wrap(errors.ErrCodeRunFailed, "run start callback failed", err)
		}
	}

	series := indicator.Compute(candles, params)
	_, _, closes := types.OHLC(candles)
	table := b.loadCalibration()

	scan := scanProbabilities(b.classifier, closes, series, warmup, table)
	b.log.Info("Probability scan",
		zap.Int("count", scan.Count),
		zap.Bool("calibrated", scan.Calibrated),
		zap.Float64("max", scan.Max),
		zap.Float64("p95", scan.P95),
		zap.Int("ge55", scan.GE55),
		zap.Float64("mean_raw", scan.MeanRaw),
		zap.Int("delta_gt01", scan.DeltaGT01),
	)

	if scan.Degenerate() {
		b.log.Warn("Probability scan looks degenerate, every probability is close to 1.0")
	}

	emitter.Emit(types.EventProgress, engine.ScanPayload{Phase: engine.PhaseScan, ProbabilityScan: scan})

	state := newBacktestState(cfg, table, b.log)

	for i := warmup; i < len(candles); i++ {
		if err := ctx.Err(); err != nil {
			return types.RunStats{}, errors.Wrap(errors.ErrCodeRunFailed, "backtest cancelled", err)
		}

		if err := state.step(i, candles, closes, series, b.classifier, emitter); err != nil {
			return types.RunStats{}, err
		}

		if i%ProgressEvery == 0 {
			emitter.Emit(types.EventProgress, engine.LoopPayload{Phase: engine.PhaseLoop, I: i, Of: len(candles)})
		}

		if callbacks.OnProcessData != nil {
			if err := (*callbacks.OnProcessData)(i-warmup+1, len(candles)-warmup); err != nil {
				return types.RunStats{}, errors.Wrap(errors.ErrCodeRunFailed, "process data callback failed", err)
			}
		}
	}

	result := state.result()
	stats := b.runStats(state, result, scan)

	b.log.Info("Backtest finished",
		zap.Int("trades", result.Trades),
		zap.Int("wins", result.Wins),
		zap.Int("losses", result.Losses),
		zap.Float64("win_rate", result.WinRate),
		zap.Float64("total_r", result.TotalR),
		zap.Float64("max_drawdown_r", result.MaxDrawdownR),
		zap.Any("rejections", result.Rejections),
	)

	if result.Trades == 0 {
		b.log.Warn("No paper trades closed")
	}

	emitter.Emit(types.EventResult, result)

	if err := b.writeResults(stats); err != nil {
		return stats, err
	}

	return stats, nil
}

func (b *BacktestEngineV1) runStats(state *backtestState, result engine.ResultPayload, scan types.ProbabilityScan) types.RunStats {
	return types.RunStats{
		ID:              b.config.ID,
		Timestamp:       b.now(),
		Instrument:      b.config.Instrument,
		Granularity:     string(b.config.Granularity),
		Trades:          result.Trades,
		Wins:            result.Wins,
		Losses:          result.Losses,
		WinRate:         result.WinRate,
		TotalR:          result.TotalR,
		AvgR:            result.AvgR,
		ProfitFactor:    float64(result.ProfitFactor),
		MaxDrawdownR:    result.MaxDrawdownR,
		StartBalance:    result.StartBalance,
		EndBalance:      result.EndBalance,
		Rejections:      state.gate.Counters().Rejections(),
		CalibrationBins: result.Calibration,
		ProbScan:        scan,
	}
}

// loadCalibration returns the first readable table of CalibrationPaths, or nil.
func (b *BacktestEngineV1) loadCalibration() calibration.Table {
	for _, path := range b.config.CalibrationPaths {
		if table := calibration.Load(path, b.log); table.IsSome() {
			b.log.Info("Using calibration table", zap.String("path", path))

			return table.Unwrap()
		}
	}

	return nil
}

func (b *BacktestEngineV1) writeResults(stats types.RunStats) error {
	if b.config.ResultPath == "" {
		return nil
	}

	if err := types.WriteRunStats(b.config.ResultPath, stats); err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteErr, "failed to write run stats", err)
	}

	b.log.Debug("Run stats written", zap.String("path", b.config.ResultPath))

	return nil
}

func (b *BacktestEngineV1) preRunCheck() error {
	if b.classifier == nil {
		return errors.New(errors.ErrCodeClassifierMissing, "no classifier available for the run")
	}

	if b.source == nil {
		return errors.New(errors.ErrCodeCandleSourceFailed, "no candle source configured")
	}

	if b.config.Instrument == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "instrument is required")
	}

	if b.config.Fast <= 0 || b.config.Slow <= 0 || b.config.ATRPeriod <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "indicator periods must be positive: fast=%d slow=%d atr=%d",
			b.config.Fast, b.config.Slow, b.config.ATRPeriod)
	}

	return nil
}
