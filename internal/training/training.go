// Package training fits the direction classifier on historical candles and
// writes the model and its calibration tables.
package training

import (
	"context"
	"math"
	"os"
	"path/filepath"
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

// Progress phases of a training job.
const (
	PhaseLoad  = "load"
	PhaseLabel = "label"
	PhaseFit   = "fit"
	// PhaseTrained reports a model trained on demand before a backtest.
	PhaseTrained = "trained"
)

// Config is the resolved configuration of one training job.
type Config struct {
	ID          string
	Instrument  string
	Granularity types.Granularity
	Years       int
	MAKind      types.MAKind
	Fast        int
	Slow        int
	ATRPeriod   int

	// ValSplit is the trailing share of examples held out for validation.
	ValSplit float64
	Label    classifier.LabelConfig
	Options  classifier.TrainOptions
	Regime   RegimeFilter

	ModelPath            string
	CalibrationPath      string
	TradeCalibrationPath string
}

// Signature returns the feature signature of models trained with c.
func (c Config) Signature() string {
	return classifier.Signature(c.MAKind, c.Fast, c.Slow, c.ATRPeriod)
}

// Warmup is the first bar examples are built from. It always covers the RSI
// period.
func (c Config) Warmup() int {
	return max(c.Fast, c.Slow, indicator.DefaultRSIPeriod, c.ATRPeriod) + 1
}

// LoadPayload is emitted once candles are loaded.
type LoadPayload struct {
	Phase       string `json:"phase"`
	Instrument  string `json:"instrument"`
	Granularity string `json:"granularity"`
	Candles     int    `json:"candles"`
	Warmup      int    `json:"warmup"`
}

// LabelPayload is emitted once examples are built and split.
type LabelPayload struct {
	Phase      string `json:"phase"`
	Examples   int    `json:"examples"`
	Train      int    `json:"train"`
	Validation int    `json:"validation"`
	Horizon    int    `json:"horizon"`
}

// FitPayload is emitted before gradient descent starts.
type FitPayload struct {
	Phase  string `json:"phase"`
	Epochs int    `json:"epochs"`
}

// TrainedPayload wraps a Result as a progress event.
type TrainedPayload struct {
	Phase string `json:"phase"`
	Result
}

// Result is the outcome of a training job.
type Result struct {
	Signature      string  `json:"signature"`
	Examples       int     `json:"examples"`
	TrainSize      int     `json:"trainSize"`
	ValidationSize int     `json:"validationSize"`
	Accuracy       float64 `json:"accuracy"`
	UpShare        float64 `json:"upShare"`

	ModelPath            string `json:"modelPath"`
	CalibrationPath      string `json:"calibrationPath,omitempty"`
	TradeCalibrationPath string `json:"tradeCalibrationPath,omitempty"`

	Model *classifier.Logistic `json:"-"`
}

type Trainer struct {
	config Config
	source provider.Provider
	log    *logger.Logger
	now    func() time.Time
}

func NewTrainer(config Config, source provider.Provider, log *logger.Logger) *Trainer {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Trainer{
		config: config,
		source: source,
		log:    log.ForJob(config.ID),
		now:    time.Now,
	}
}

// Run trains a model. Failures are emitted as an "error" event and returned.
func (t *Trainer) Run(ctx context.Context, emitter engine.Emitter) (Result, error) {
	if emitter == nil {
		emitter = engine.NopEmitter
	}

	result, err := t.run(ctx, emitter)
	if err != nil {
		t.log.Error("Training failed", zap.Error(err))
		emitter.Emit(types.EventError, engine.NewErrorPayload(err))

		return Result{}, err
	}

	emitter.Emit(types.EventResult, result)

	return result, nil
}

func (t *Trainer) run(ctx context.Context, emitter engine.Emitter) (Result, error) {
	cfg := t.config
	if t.source == nil {
		return Result{}, errors.New(errors.ErrCodeCandleSourceFailed, "no candle source configured")
	}

	if cfg.ModelPath == "" {
		return Result{}, errors.New(errors.ErrCodeInvalidConfiguration, "model path is required")
	}

	warmup := cfg.Warmup()
	count := cfg.Granularity.CandlesForYears(max(1, cfg.Years), warmup)

	candles, err := t.source.Load(ctx, cfg.Instrument, cfg.Granularity, count)
	if err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeCandleSourceFailed, "failed to load training candles", err)
	}

	if len(candles) <= warmup+1 {
		return Result{}, errors.Newf(errors.ErrCodeNoUsableBars,
			"not enough candles after warmup to build examples: candles=%d warmup=%d", len(candles), warmup)
	}

	t.log.Info("Training started",
		zap.String("instrument", cfg.Instrument),
		zap.String("granularity", string(cfg.Granularity)),
		zap.Int("candles", len(candles)),
		zap.Int("warmup", warmup),
		zap.String("ma_type", cfg.MAKind.String()),
		zap.Float64("val_split", cfg.ValSplit),
	)

	emitter.Emit(types.EventProgress, LoadPayload{
		Phase:       PhaseLoad,
		Instrument:  cfg.Instrument,
		Granularity: string(cfg.Granularity),
		Candles:     len(candles),
		Warmup:      warmup,
	})

	series := indicator.Compute(candles, indicator.Params{
		Fast:      cfg.Fast,
		Slow:      cfg.Slow,
		ATRPeriod: cfg.ATRPeriod,
		Kind:      cfg.MAKind,
	})

	examples := classifier.BuildExamples(candles, series, warmup, cfg.Label)
	if len(examples) == 0 {
		return Result{}, errors.New(errors.ErrCodeNoLabeledBars, "built 0 labeled examples, check warmup and label horizon")
	}

	train, validation := Split(examples, cfg.ValSplit)

	t.log.Info("Built labeled examples",
		zap.Int("examples", len(examples)),
		zap.Int("train", len(train)),
		zap.Int("validation", len(validation)),
		zap.Int("horizon", cfg.Label.Horizon),
		zap.Float64("rr", cfg.Label.RR),
	)

	emitter.Emit(types.EventProgress, LabelPayload{
		Phase:      PhaseLabel,
		Examples:   len(examples),
		Train:      len(train),
		Validation: len(validation),
		Horizon:    cfg.Label.Horizon,
	})

	if err := ctx.Err(); err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeRunFailed, "training cancelled", err)
	}

	emitter.Emit(types.EventProgress, FitPayload{Phase: PhaseFit, Epochs: cfg.Options.Epochs})

	model, err := classifier.TrainLogistic(train, cfg.Options)
	if err != nil {
		return Result{}, err
	}

	accuracy, err := classifier.Accuracy(model, validation)
	if err != nil {
		return Result{}, err
	}

	if math.IsNaN(accuracy) {
		accuracy = 0
	}

	result := Result{
		Signature:      cfg.Signature(),
		Examples:       len(examples),
		TrainSize:      len(train),
		ValidationSize: len(validation),
		Accuracy:       engine.Round(accuracy, 4),
		UpShare:        engine.Round(upShare(examples), 4),
		ModelPath:      cfg.ModelPath,
		Model:          model,
	}

	if err := t.writeCalibration(model, candles, series, validation, &result); err != nil {
		return Result{}, err
	}

	if err := classifier.SaveModel(cfg.ModelPath, classifier.ModelFile{
		Signature:   result.Signature,
		Instrument:  cfg.Instrument,
		Granularity: string(cfg.Granularity),
		TrainedAt:   t.now(),
		Accuracy:    result.Accuracy,
		Model:       model,
	}); err != nil {
		return Result{}, err
	}

	t.log.Info("Training finished",
		zap.Float64("accuracy", result.Accuracy),
		zap.String("model", cfg.ModelPath),
		zap.String("signature", result.Signature),
	)

	return result, nil
}

// writeCalibration writes the probability table over every validation example
// and the trade table over the validation bars a regime filter would let
// through.
func (t *Trainer) writeCalibration(model classifier.Classifier, candles []types.Candle, series types.IndicatorSeries, validation []classifier.Example, result *Result) error {
	if t.config.CalibrationPath != "" {
		table, err := Reliability(model, validation)
		if err != nil {
			return err
		}

		if err := writeTable(t.config.CalibrationPath, table); err != nil {
			return err
		}

		result.CalibrationPath = t.config.CalibrationPath
		t.log.Info("Wrote calibration table", zap.String("path", t.config.CalibrationPath))
	}

	if t.config.TradeCalibrationPath != "" {
		admitted := make([]classifier.Example, 0, len(validation))

		for _, ex := range validation {
			if t.config.Regime.Admits(candles[ex.Index].Time, series, ex.Index) {
				admitted = append(admitted, ex)
			}
		}

		table, err := Reliability(model, admitted)
		if err != nil {
			return err
		}

		if err := writeTable(t.config.TradeCalibrationPath, table); err != nil {
			return err
		}

		result.TradeCalibrationPath = t.config.TradeCalibrationPath
		t.log.Info("Wrote trade calibration table",
			zap.String("path", t.config.TradeCalibrationPath),
			zap.Int("bars", len(admitted)),
		)
	}

	return nil
}

// Split divides examples chronologically: the trailing valSplit share is held
// out. The training part is never empty.
func Split(examples []classifier.Example, valSplit float64) (train, validation []classifier.Example) {
	if valSplit <= 0 || valSplit >= 1 {
		return examples, nil
	}

	held := int(math.Round(float64(len(examples)) * valSplit))
	cut := max(len(examples)-held, 1)

	return examples[:cut], examples[cut:]
}

// Reliability builds a table of realized accuracy per confidence bin, keyed by
// the larger of the two label probabilities.
func Reliability(model classifier.Classifier, examples []classifier.Example) (calibration.Table, error) {
	probs := make([]float64, 0, len(examples))
	won := make([]bool, 0, len(examples))

	for _, ex := range examples {
		prediction, err := model.Predict(ex.Features)
		if err != nil {
			return nil, err
		}

		up, okUp := prediction.Score(classifier.LabelUp)
		down, okDown := prediction.Score(classifier.LabelDown)

		if !okUp || !okDown {
			continue
		}

		predicted := classifier.LabelDown
		if up >= down {
			predicted = classifier.LabelUp
		}

		probs = append(probs, math.Max(up, down))
		won = append(won, predicted == ex.Label)
	}

	return calibration.FromOutcomes(calibration.DefaultEdges, probs, won), nil
}

func writeTable(path string, table calibration.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeCalibrationIOFailed, "failed to create calibration directory", err)
	}

	return calibration.Write(path, table)
}

func upShare(examples []classifier.Example) float64 {
	if len(examples) == 0 {
		return 0
	}

	up := 0

	for _, ex := range examples {
		if ex.Label == classifier.LabelUp {
			up++
		}
	}

	return float64(up) / float64(len(examples))
}
