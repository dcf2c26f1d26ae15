package runner

import (
	"path/filepath"
	"strings"

	"github.com/mattxander12/forex-trader/internal/backtest/engine"
	"github.com/mattxander12/forex-trader/internal/classifier"
	"github.com/mattxander12/forex-trader/internal/config"
	"github.com/mattxander12/forex-trader/internal/gate"
	"github.com/mattxander12/forex-trader/internal/ledger"
	"github.com/mattxander12/forex-trader/internal/sizing"
	"github.com/mattxander12/forex-trader/internal/training"
)

// Paths locates the model files of one instrument and granularity.
type Paths struct {
	Model            string
	Calibration      string
	TradeCalibration string
}

// ModelPaths returns the files under training.modelDir used for cfg's
// instrument and granularity.
func ModelPaths(cfg *config.Config) Paths {
	dir := filepath.Join(cfg.Training.ModelDir,
		strings.ToUpper(cfg.Trading.Instrument)+"_"+string(cfg.Trading.Interval()))

	return Paths{
		Model:            filepath.Join(dir, "model.json"),
		Calibration:      filepath.Join(dir, "calibration.csv"),
		TradeCalibration: filepath.Join(dir, "calibration.trade.csv"),
	}
}

// BacktestConfig resolves the run configuration of backtest id.
func BacktestConfig(cfg *config.Config, id string) engine.RunConfig {
	paths := ModelPaths(cfg)
	start, end := cfg.Filter.SessionHours()

	cooldown := cfg.Filter.CooldownBars
	if cooldown == 0 {
		cooldown = cfg.Trading.Interval().BarsPerDay()
	}

	return engine.RunConfig{
		ID:           id,
		Instrument:   cfg.Trading.Instrument,
		Granularity:  cfg.Trading.Interval(),
		Count:        cfg.Trading.Count,
		MAKind:       cfg.Trading.MAKind(),
		Fast:         cfg.Trading.Fast,
		Slow:         cfg.Trading.Slow,
		ATRPeriod:    cfg.Paper.ATRPeriod,
		StartBalance: cfg.Paper.StartBalance,
		Ledger: ledger.Config{
			Mode:                 cfg.Paper.RiskMode(),
			Risk:                 cfg.Paper.Risk,
			Pips:                 cfg.Paper.Pips,
			RR:                   cfg.Paper.RR,
			MaxOpenPerInstrument: cfg.Paper.MaxOpenPerInstrument,
		},
		Sizing: sizing.Config{
			StopATRMultiple: cfg.Paper.StopATRMulti,
			RiskFraction:    cfg.Paper.RiskFraction,
			Leverage:        cfg.Paper.Leverage,
		},
		Gate: gate.Config{
			RR:              cfg.Paper.RR,
			EVMargin:        cfg.Filter.EVMargin,
			EVMarginR:       cfg.Filter.EVMarginR,
			SignalThreshold: cfg.Execution.SignalThreshold,
			ATRWindow:       cfg.Filter.ATRWindow,
			ATRPercentile:   cfg.Filter.ATRPercentile,
			SessionStart:    start,
			SessionEnd:      end,
			RSILong:         cfg.Filter.RSILong,
			RSIShort:        cfg.Filter.RSIShort,
			OnePerDay:       cfg.Filter.OnePerDay,
			CooldownBars:    cooldown,
		},
		CalibrationPaths: []string{paths.TradeCalibration, paths.Calibration},
	}
}

// TrainingConfig resolves the training configuration of job id.
func TrainingConfig(cfg *config.Config, id string) training.Config {
	paths := ModelPaths(cfg)
	start, end := cfg.Filter.SessionHours()

	return training.Config{
		ID:          id,
		Instrument:  cfg.Trading.Instrument,
		Granularity: cfg.Trading.Interval(),
		Years:       cfg.Training.Years,
		MAKind:      cfg.Trading.MAKind(),
		Fast:        cfg.Trading.Fast,
		Slow:        cfg.Trading.Slow,
		ATRPeriod:   cfg.Paper.ATRPeriod,
		ValSplit:    cfg.Training.ValSplit,
		Label: classifier.LabelConfig{
			Horizon:      cfg.Training.LabelH,
			RiskMultiple: cfg.Paper.Risk,
			RR:           cfg.Paper.RR,
		},
		Options: classifier.TrainOptions{
			Epochs:       cfg.Training.Epochs,
			LearningRate: cfg.Training.LearningRate,
			L2:           cfg.Training.L2,
		},
		Regime: training.RegimeFilter{
			ATRWindow:     cfg.Filter.ATRWindow,
			ATRPercentile: cfg.Filter.ATRPercentile,
			SessionStart:  start,
			SessionEnd:    end,
			RSILong:       cfg.Filter.RSILong,
			RSIShort:      cfg.Filter.RSIShort,
		},
		ModelPath:            paths.Model,
		CalibrationPath:      paths.Calibration,
		TradeCalibrationPath: paths.TradeCalibration,
	}
}
