package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/mattxander12/forex-trader/internal/backtest/engine"
	"github.com/mattxander12/forex-trader/internal/calibration"
	"github.com/mattxander12/forex-trader/internal/classifier"
	"github.com/mattxander12/forex-trader/internal/gate"
	"github.com/mattxander12/forex-trader/internal/ledger"
	"github.com/mattxander12/forex-trader/internal/sizing"
	"github.com/mattxander12/forex-trader/internal/types"
	"github.com/mattxander12/forex-trader/mocks"
	pkgerrors "github.com/mattxander12/forex-trader/pkg/errors"
)

type recordedEvent struct {
	name    string
	payload any
}

type eventRecorder struct {
	events []recordedEvent
}

func (r *eventRecorder) Emit(name string, payload any) {
	r.events = append(r.events, recordedEvent{name: name, payload: payload})
}

func (r *eventRecorder) named(name string) []any {
	var payloads []any

	for _, e := range r.events {
		if e.name == name {
			payloads = append(payloads, e.payload)
		}
	}

	return payloads
}

type BacktestEngineV1TestSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	provider   *mocks.MockProvider
	classifier *mocks.MockClassifier
	candles    []types.Candle
}

func TestBacktestEngineV1Suite(t *testing.T) {
	suite.Run(t, new(BacktestEngineV1TestSuite))
}

func (suite *BacktestEngineV1TestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.provider = mocks.NewMockProvider(suite.ctrl)
	suite.classifier = mocks.NewMockClassifier(suite.ctrl)
	suite.candles = mocks.GenerateCandles(1000)
}

func (suite *BacktestEngineV1TestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

// looseConfig admits almost every bar so the run produces trades.
func looseConfig() engine.RunConfig {
	return engine.RunConfig{
		ID:           "job-1",
		Instrument:   "EUR_USD",
		Granularity:  types.GranularityM5,
		Count:        1000,
		MAKind:       types.MAKindSMA,
		Fast:         10,
		Slow:         20,
		ATRPeriod:    14,
		StartBalance: 10000,
		Ledger: ledger.Config{
			Mode:                 types.RiskModeATR,
			Risk:                 1,
			RR:                   1.5,
			MaxOpenPerInstrument: 1,
		},
		Sizing: sizing.Config{StopATRMultiple: 10, RiskFraction: 0.01, Leverage: 50},
		Gate: gate.Config{
			EVMarginR:    -10,
			SessionStart: 0,
			SessionEnd:   24,
			RSILong:      -1,
			RSIShort:     101,
			CooldownBars: 1,
		},
	}
}

func upPrediction() classifier.Prediction {
	return classifier.Prediction{
		Label:  classifier.LabelUp,
		Scores: map[classifier.Label]float64{classifier.LabelUp: 0.9, classifier.LabelDown: 0.1},
	}
}

func (suite *BacktestEngineV1TestSuite) expectCandles(candles []types.Candle) {
	suite.provider.EXPECT().
		Load(gomock.Any(), "EUR_USD", types.GranularityM5, 1000).
		Return(candles, nil).
		Times(1)
}

func (suite *BacktestEngineV1TestSuite) TestRunProducesTradesAndResult() {
	suite.expectCandles(suite.candles)
	suite.classifier.EXPECT().Predict(gomock.Any()).Return(upPrediction(), nil).AnyTimes()

	recorder := &eventRecorder{}
	e := NewBacktestEngineV1(looseConfig(), suite.provider, suite.classifier, nil)

	stats, err := e.Run(context.Background(), recorder, engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Require().GreaterOrEqual(len(recorder.events), 4)
	suite.Equal(engine.SetupPayload{Leverage: 50, StartBalance: 10000}, recorder.events[0].payload)

	start, ok := recorder.events[1].payload.(engine.StartPayload)
	suite.Require().True(ok)
	suite.Equal(engine.PhaseStart, start.Phase)
	suite.Equal(1000, start.Candles)
	suite.Equal(types.RiskModeATR, start.Mode)

	scan, ok := recorder.events[2].payload.(engine.ScanPayload)
	suite.Require().True(ok)
	suite.Equal(979, scan.Count)
	suite.Equal(979, scan.GE60)
	suite.False(scan.Calibrated)
	suite.InDelta(0.9, scan.MeanRaw, 1e-9)

	last := recorder.events[len(recorder.events)-1]
	suite.Equal(types.EventResult, last.name)

	result, ok := last.payload.(engine.ResultPayload)
	suite.Require().True(ok)

	trades := recorder.named(types.EventTrade)
	suite.Greater(result.Trades, 0)
	suite.Len(trades, result.Trades)
	suite.Equal(result.Trades, result.Wins+result.Losses)
	suite.Len(result.EquityCurve, result.Trades)
	suite.Len(result.EquityCurveUSD, result.Trades)
	suite.Equal(979, result.Rejections.Considered)
	suite.GreaterOrEqual(result.Rejections.Opened, result.Trades)
	suite.Equal(1, result.Filters.CooldownBars)

	loops := 0

	for _, p := range recorder.named(types.EventProgress) {
		if loop, ok := p.(engine.LoopPayload); ok {
			suite.Equal(engine.LoopPayload{Phase: engine.PhaseLoop, I: 500, Of: 1000}, loop)
			loops++
		}
	}

	suite.Equal(1, loops)

	first, ok := trades[0].(engine.TradePayload)
	suite.Require().True(ok)
	suite.Equal(types.EventTrade, first.Type)
	suite.Equal(types.SideBuy, first.Side)
	suite.False(first.Time.IsZero())

	suite.Equal("job-1", stats.ID)
	suite.Equal(result.Trades, stats.Trades)
	suite.Equal(result.EndBalance, stats.EndBalance)
	suite.Equal(scan.ProbabilityScan, stats.ProbScan)
	suite.Contains(stats.Rejections, "evR")
}

func (suite *BacktestEngineV1TestSuite) TestRunWithoutScoresSkipsProbabilitySteps() {
	suite.expectCandles(suite.candles)
	suite.classifier.EXPECT().
		Predict(gomock.Any()).
		Return(classifier.Prediction{Label: classifier.LabelDown}, nil).
		AnyTimes()

	recorder := &eventRecorder{}
	e := NewBacktestEngineV1(looseConfig(), suite.provider, suite.classifier, nil)

	_, err := e.Run(context.Background(), recorder, engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	result := recorder.events[len(recorder.events)-1].payload.(engine.ResultPayload)
	suite.Zero(result.Rejections.PassedProb)
	suite.Zero(result.Rejections.EV)
	suite.Zero(result.Rejections.Probability)

	scan := recorder.events[2].payload.(engine.ScanPayload)
	suite.Zero(scan.Count)
}

// uptrend closes each bar 0.0001 above the previous one.
func uptrend(n int) []types.Candle {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	candles := make([]types.Candle, n)
	price := 1.1

	for i := range candles {
		open := price
		price += 0.0001

		candles[i] = types.Candle{
			Time:   start.Add(time.Duration(i) * 5 * time.Minute),
			Open:   open,
			High:   price + 0.00005,
			Low:    open - 0.00005,
			Close:  price,
			Volume: 100,
		}
	}

	return candles
}

func (suite *BacktestEngineV1TestSuite) TestRunOnUptrendOpensNoSells() {
	suite.provider.EXPECT().
		Load(gomock.Any(), "EUR_USD", types.GranularityM5, 400).
		Return(uptrend(400), nil).
		Times(1)

	calls := 0
	suite.classifier.EXPECT().
		Predict(gomock.Any()).
		DoAndReturn(func([]float64) (classifier.Prediction, error) {
			calls++
			if calls%2 == 0 {
				return classifier.Prediction{Label: classifier.LabelDown}, nil
			}

			return classifier.Prediction{Label: classifier.LabelUp}, nil
		}).
		AnyTimes()

	cfg := looseConfig()
	cfg.Count = 400
	cfg.Gate.RSILong = 55
	cfg.Gate.RSIShort = 45

	recorder := &eventRecorder{}
	_, err := NewBacktestEngineV1(cfg, suite.provider, suite.classifier, nil).
		Run(context.Background(), recorder, engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	trades := recorder.named(types.EventTrade)
	suite.NotEmpty(trades)

	for _, p := range trades {
		trade, ok := p.(engine.TradePayload)
		suite.Require().True(ok)
		suite.Equal(types.SideBuy, trade.Side)
	}

	result := recorder.named(types.EventResult)[0].(engine.ResultPayload)
	suite.Positive(result.Rejections.Trend)
}

func (suite *BacktestEngineV1TestSuite) TestRunEmitsResultWithZeroTrades() {
	suite.expectCandles(suite.candles)
	suite.classifier.EXPECT().Predict(gomock.Any()).Return(upPrediction(), nil).AnyTimes()

	cfg := looseConfig()
	cfg.Gate.EVMarginR = 10

	recorder := &eventRecorder{}
	stats, err := NewBacktestEngineV1(cfg, suite.provider, suite.classifier, nil).
		Run(context.Background(), recorder, engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Empty(recorder.named(types.EventTrade))

	results := recorder.named(types.EventResult)
	suite.Require().Len(results, 1)

	result := results[0].(engine.ResultPayload)
	suite.Zero(result.Trades)
	suite.Equal(979, result.Rejections.EV)
	suite.Equal(10000.0, result.EndBalance)
	suite.NotNil(result.EquityCurve)
	suite.Equal(979, stats.Rejections["evR"])
}

func (suite *BacktestEngineV1TestSuite) TestRunUsesFirstReadableCalibrationTable() {
	dir := suite.T().TempDir()
	path := filepath.Join(dir, "calibration.csv")
	suite.Require().NoError(calibration.Write(path, calibration.Table{{Lo: 0.85, Hi: 0.95, WinRate: 0.88}}))

	suite.expectCandles(suite.candles)
	suite.classifier.EXPECT().Predict(gomock.Any()).Return(upPrediction(), nil).AnyTimes()

	cfg := looseConfig()
	cfg.CalibrationPaths = []string{filepath.Join(dir, "calibration.trade.csv"), path}

	recorder := &eventRecorder{}
	stats, err := NewBacktestEngineV1(cfg, suite.provider, suite.classifier, nil).
		Run(context.Background(), recorder, engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.True(stats.ProbScan.Calibrated)
	suite.InDelta(0.88, stats.ProbScan.MeanCal, 1e-9)
	suite.Equal(979, stats.ProbScan.DeltaGT01)
}

func (suite *BacktestEngineV1TestSuite) TestRunWritesResultFile() {
	suite.expectCandles(suite.candles)
	suite.classifier.EXPECT().Predict(gomock.Any()).Return(upPrediction(), nil).AnyTimes()

	cfg := looseConfig()
	cfg.ResultPath = filepath.Join(suite.T().TempDir(), "stats.yaml")

	_, err := NewBacktestEngineV1(cfg, suite.provider, suite.classifier, nil).
		Run(context.Background(), engine.NopEmitter, engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	data, err := os.ReadFile(cfg.ResultPath)
	suite.Require().NoError(err)
	suite.Contains(string(data), "instrument: EUR_USD")
	suite.Contains(string(data), "prob_scan:")
}

func (suite *BacktestEngineV1TestSuite) TestRunCallbacks() {
	suite.expectCandles(suite.candles)
	suite.classifier.EXPECT().Predict(gomock.Any()).Return(upPrediction(), nil).AnyTimes()

	var (
		startedBars int
		processed   int
		lastTotal   int
		endErr      error
		ended       bool
	)

	onStart := engine.OnRunStartCallback(func(runID string, instrument string, totalBars int) error {
		suite.Equal("job-1", runID)
		suite.Equal("EUR_USD", instrument)
		startedBars = totalBars

		return nil
	})
	onProcess := engine.OnProcessDataCallback(func(current int, total int) error {
		processed = current
		lastTotal = total

		return nil
	})
	onEnd := engine.OnRunEndCallback(func(_ types.RunStats, err error) {
		ended = true
		endErr = err
	})

	_, err := NewBacktestEngineV1(looseConfig(), suite.provider, suite.classifier, nil).
		Run(context.Background(), nil, engine.LifecycleCallbacks{
			OnRunStart:    &onStart,
			OnProcessData: &onProcess,
			OnRunEnd:      &onEnd,
		})
	suite.Require().NoError(err)

	suite.Equal(1000, startedBars)
	suite.Equal(979, processed)
	suite.Equal(979, lastTotal)
	suite.True(ended)
	suite.NoError(endErr)
}

func (suite *BacktestEngineV1TestSuite) TestProcessDataCallbackErrorAbortsRun() {
	suite.expectCandles(suite.candles)
	suite.classifier.EXPECT().Predict(gomock.Any()).Return(upPrediction(), nil).AnyTimes()

	onProcess := engine.OnProcessDataCallback(func(current int, _ int) error {
		if current == 10 {
			return errors.New("stop")
		}

		return nil
	})

	recorder := &eventRecorder{}
	_, err := NewBacktestEngineV1(looseConfig(), suite.provider, suite.classifier, nil).
		Run(context.Background(), recorder, engine.LifecycleCallbacks{OnProcessData: &onProcess})

	suite.Error(err)
	suite.Equal(pkgerrors.ErrCodeRunFailed, pkgerrors.GetCode(err))
	suite.Empty(recorder.named(types.EventResult))
	suite.Len(recorder.named(types.EventError), 1)
}

func (suite *BacktestEngineV1TestSuite) TestRunFailures() {
	testCases := []struct {
		name       string
		setup      func() engine.Engine
		expectCode pkgerrors.ErrorCode
	}{
		{
			name: "candle source failure",
			setup: func() engine.Engine {
				suite.provider.EXPECT().Load(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, errors.New("network down"))

				return NewBacktestEngineV1(looseConfig(), suite.provider, suite.classifier, nil)
			},
			expectCode: pkgerrors.ErrCodeCandleSourceFailed,
		},
		{
			name: "insufficient candles",
			setup: func() engine.Engine {
				suite.provider.EXPECT().Load(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(suite.candles[:299], nil)

				return NewBacktestEngineV1(looseConfig(), suite.provider, suite.classifier, nil)
			},
			expectCode: pkgerrors.ErrCodeInsufficientCandles,
		},
		{
			name: "warmup longer than series",
			setup: func() engine.Engine {
				suite.provider.EXPECT().Load(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(suite.candles[:300], nil)

				cfg := looseConfig()
				cfg.Slow = 400

				return NewBacktestEngineV1(cfg, suite.provider, suite.classifier, nil)
			},
			expectCode: pkgerrors.ErrCodeNoUsableBars,
		},
		{
			name: "missing classifier",
			setup: func() engine.Engine {
				return NewBacktestEngineV1(looseConfig(), suite.provider, nil, nil)
			},
			expectCode: pkgerrors.ErrCodeClassifierMissing,
		},
		{
			name: "invalid periods",
			setup: func() engine.Engine {
				cfg := looseConfig()
				cfg.Fast = 0

				return NewBacktestEngineV1(cfg, suite.provider, suite.classifier, nil)
			},
			expectCode: pkgerrors.ErrCodeInvalidPeriod,
		},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			recorder := &eventRecorder{}

			_, err := tc.setup().Run(context.Background(), recorder, engine.LifecycleCallbacks{})
			suite.Require().Error(err)
			suite.Equal(tc.expectCode, pkgerrors.GetCode(err))

			errs := recorder.named(types.EventError)
			suite.Require().Len(errs, 1)
			suite.Equal(tc.expectCode, errs[0].(engine.ErrorPayload).Code)
			suite.Empty(recorder.named(types.EventResult))
		})
	}
}

func (suite *BacktestEngineV1TestSuite) TestInsufficientCandlesKeepsDetail() {
	suite.provider.EXPECT().Load(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(suite.candles[:120], nil)

	emitter := mocks.NewMockEmitter(suite.ctrl)
	gomock.InOrder(
		emitter.EXPECT().Emit(types.EventProgress, engine.SetupPayload{Leverage: 50, StartBalance: 10000}),
		emitter.EXPECT().Emit(types.EventError, gomock.Any()),
	)

	_, err := NewBacktestEngineV1(looseConfig(), suite.provider, suite.classifier, nil).
		Run(context.Background(), emitter, engine.LifecycleCallbacks{})

	suite.True(pkgerrors.IsInsufficientCandlesError(err))
}

func (suite *BacktestEngineV1TestSuite) TestPredictionErrorIsFatal() {
	suite.expectCandles(suite.candles)
	suite.classifier.EXPECT().Predict(gomock.Any()).Return(classifier.Prediction{}, errors.New("bad model")).AnyTimes()

	_, err := NewBacktestEngineV1(looseConfig(), suite.provider, suite.classifier, nil).
		Run(context.Background(), nil, engine.LifecycleCallbacks{})

	suite.Equal(pkgerrors.ErrCodePredictionFailed, pkgerrors.GetCode(err))
}

func (suite *BacktestEngineV1TestSuite) TestCancelledContext() {
	suite.expectCandles(suite.candles)
	suite.classifier.EXPECT().Predict(gomock.Any()).Return(upPrediction(), nil).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBacktestEngineV1(looseConfig(), suite.provider, suite.classifier, nil).
		Run(ctx, nil, engine.LifecycleCallbacks{})

	suite.Equal(pkgerrors.ErrCodeRunFailed, pkgerrors.GetCode(err))
	suite.ErrorIs(err, context.Canceled)
}
