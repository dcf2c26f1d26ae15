package engine

import (
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/mattxander12/forex-trader/internal/backtest/engine"
	"github.com/mattxander12/forex-trader/internal/calibration"
	"github.com/mattxander12/forex-trader/internal/classifier"
	"github.com/mattxander12/forex-trader/internal/gate"
	"github.com/mattxander12/forex-trader/internal/ledger"
	"github.com/mattxander12/forex-trader/internal/logger"
	"github.com/mattxander12/forex-trader/internal/performance"
	"github.com/mattxander12/forex-trader/internal/sizing"
	"github.com/mattxander12/forex-trader/internal/types"
	"github.com/mattxander12/forex-trader/pkg/errors"
)

// backtestState is the mutable state of a single run.
type backtestState struct {
	instrument string
	gate       *gate.Gate
	ledger     *ledger.Ledger
	sizer      *sizing.Sizer
	accountant *performance.Accountant
	log        *logger.Logger
}

func newBacktestState(cfg engine.RunConfig, table calibration.Table, log *logger.Logger) *backtestState {
	gateConfig := cfg.Gate
	gateConfig.RR = cfg.Ledger.RR

	if gateConfig.CooldownBars <= 0 {
		gateConfig.CooldownBars = cfg.Granularity.BarsPerDay()
	}

	return &backtestState{
		instrument: cfg.Instrument,
		gate:       gate.New(gateConfig, table),
		ledger:     ledger.New(cfg.Ledger),
		sizer:      sizing.NewSizer(cfg.Sizing),
		accountant: performance.NewAccountant(cfg.StartBalance, nil),
		log:        log,
	}
}

// step simulates bar i: a possible entry at the bar's close, then settlement
// of open trades against the same bar.
func (s *backtestState) step(i int, candles []types.Candle, closes []float64, series types.IndicatorSeries, clf classifier.Classifier, emitter engine.Emitter) error {
	bar := candles[i]

	if features := classifier.Features(closes, series, i); features != nil {
		if err := s.consider(i, bar, features, series, clf); err != nil {
			return err
		}
	}

	for _, trade := range s.ledger.OnCandle(s.instrument, bar.High, bar.Low, bar.Close, bar.Time) {
		settlement, ok := s.accountant.Record(trade)
		if !ok {
			s.log.Debug("Skipping zero-risk trade", zap.Int("open_index", trade.OpenIndex))

			continue
		}

		emitter.Emit(types.EventTrade, tradePayload(i, settlement))
	}

	return nil
}

func (s *backtestState) consider(i int, bar types.Candle, features []float64, series types.IndicatorSeries, clf classifier.Classifier) error {
	prediction, err := clf.Predict(features)
	if err != nil {
		return errors.Wrapf(errors.ErrCodePredictionFailed, err, "prediction failed at bar %d", i)
	}

	side := types.SideSell
	if prediction.Label == classifier.LabelUp {
		side = types.SideBuy
	}

	verdict := s.gate.Evaluate(gate.Input{
		Index:      i,
		Time:       bar.Time,
		Side:       side,
		Scores:     scoresOf(prediction),
		Indicators: series,
		CanOpen:    s.ledger.CanOpen(s.instrument),
	})
	if !verdict.Admit {
		return nil
	}

	atr := series.ATR[i]

	size := s.sizer.Size(atr, s.accountant.EquityUSD(), bar.Close)
	if !size.Feasible() {
		s.gate.RecordNoSize()

		return nil
	}

	trade := s.ledger.Open(s.instrument, side, bar.Close, atr, i, bar.Time, size.Units, types.TradeTags{
		CalibratedP: verdict.CalibratedP,
		RiskUSD:     optional.Some(size.RiskUSD),
	})
	s.gate.RecordOpen(i, bar.Time)

	s.log.Debug("Opened paper trade",
		zap.Int("bar", i),
		zap.String("side", string(side)),
		zap.Float64("entry", trade.Entry),
		zap.Float64("stop", trade.Stop),
		zap.Float64("take", trade.Take),
		zap.Float64("units", size.Units),
	)

	return nil
}

func (s *backtestState) result() engine.ResultPayload {
	summary := s.accountant.Summary()

	return engine.ResultPayload{
		Trades:         summary.Trades,
		Wins:           summary.Wins,
		Losses:         summary.Losses,
		WinRate:        engine.Round(summary.WinRate, 1),
		TotalR:         engine.Round(summary.TotalR, 2),
		AvgR:           engine.Round(summary.AvgR, 3),
		ProfitFactor:   engine.Ratio(engine.Round(summary.ProfitFactor, 3)),
		MaxDrawdownR:   engine.Round(summary.MaxDrawdownR, 2),
		EquityCurve:    s.accountant.EquityCurveR(),
		StartBalance:   s.accountant.StartBalance(),
		EndBalance:     engine.Round(s.accountant.EquityUSD(), 2),
		EquityCurveUSD: s.accountant.EquityCurveUSD(),
		Rejections:     s.gate.Counters(),
		Filters:        s.gate.Filters(),
		Calibration:    s.accountant.Bins(),
	}
}

func tradePayload(i int, settlement performance.Settlement) engine.TradePayload {
	t := settlement.Trade

	return engine.TradePayload{
		Type:       types.EventTrade,
		Index:      i,
		Side:       t.Side,
		R:          settlement.R,
		EquityR:    settlement.EquityR,
		Status:     t.Status,
		Entry:      t.Entry,
		Exit:       t.Exit.TakeOr(0),
		Stop:       t.Stop,
		TakeProfit: t.Take,
		Time:       t.ClosedAt.TakeOr(t.OpenedAt),
		PnLUSD:     settlement.PnLUSD,
		EquityUSD:  settlement.EquityUSD,
	}
}

// scoresOf returns the UP/DOWN scores when the classifier produced both.
func scoresOf(prediction classifier.Prediction) optional.Option[gate.Scores] {
	up, okUp := prediction.Score(classifier.LabelUp)
	down, okDown := prediction.Score(classifier.LabelDown)

	if !okUp || !okDown {
		return optional.None[gate.Scores]()
	}

	return optional.Some(gate.Scores{Up: up, Down: down})
}
