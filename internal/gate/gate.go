// Package gate decides, bar by bar, whether the simulation may open a trade.
//
// Checks run in a fixed order and stop at the first failure; every failure is
// counted under its reason so a run can report why bars were rejected.
package gate

import (
	"math"
	"time"

	"github.com/moznion/go-optional"

	"github.com/mattxander12/forex-trader/internal/calibration"
	"github.com/mattxander12/forex-trader/internal/indicator"
	"github.com/mattxander12/forex-trader/internal/types"
)

const (
	// VolatilitySlack scales the ATR percentile floor.
	VolatilitySlack = 0.95
	// SoftOverrideMargin is how far above the threshold p must be to relax the
	// session and trend filters.
	SoftOverrideMargin = 0.005
	// MATolerance is the fraction of the slow MA the fast MA may sit on the
	// wrong side of and still count as aligned.
	MATolerance = 0.005
	// MaxTradesPerDay applies when the one-per-day policy is on.
	MaxTradesPerDay = 2
)

// Config holds the filter settings for one run.
type Config struct {
	RR              float64
	EVMargin        float64
	EVMarginR       float64
	SignalThreshold float64
	ATRWindow       int
	ATRPercentile   float64
	SessionStart    int
	SessionEnd      int
	RSILong         float64
	RSIShort        float64
	OnePerDay       bool
	CooldownBars    int
}

// Scores are the two per-label values reported by the classifier.
type Scores struct {
	Up   float64
	Down float64
}

// Input is everything the gate looks at for one bar.
type Input struct {
	Index      int
	Time       time.Time
	Side       types.Side
	Scores     optional.Option[Scores]
	Indicators types.IndicatorSeries
	// CanOpen is the ledger's capacity answer for the instrument.
	CanOpen bool
}

// Verdict is the outcome for one bar.
type Verdict struct {
	Admit  bool
	Reason Reason
	// CalibratedP is the calibrated win probability of the predicted side, when
	// the classifier scored both labels.
	CalibratedP optional.Option[float64]
}

// Gate evaluates bars for a single run. It is not safe for concurrent use.
type Gate struct {
	cfg           Config
	table         calibration.Table
	threshold     float64
	counters      Counters
	lastOpenIndex int
	opensByDay    map[int]int
}

// New creates a gate. table may be nil to use raw probabilities.
func New(cfg Config, table calibration.Table) *Gate {
	return &Gate{
		cfg:           cfg,
		table:         table,
		threshold:     ProbabilityThreshold(cfg.RR, cfg.EVMargin, cfg.SignalThreshold),
		counters:      Counters{},
		lastOpenIndex: -cfg.CooldownBars,
		opensByDay:    make(map[int]int),
	}
}

// Threshold returns the effective probability threshold.
func (g *Gate) Threshold() float64 {
	return g.threshold
}

// Evaluate runs the checks for one bar.
func (g *Gate) Evaluate(in Input) Verdict {
	g.counters.Considered++

	verdict := Verdict{Admit: false, Reason: ReasonNone, CalibratedP: optional.None[float64]()}
	boost := 0.0

	if in.Scores.IsSome() {
		scores := in.Scores.Unwrap()
		pUp, pDown := DeriveProbabilities(scores.Up, scores.Down)

		pWin := pDown
		if in.Side == types.SideBuy {
			pWin = pUp
		}

		p := calibration.Calibrate(pWin, g.table)
		verdict.CalibratedP = optional.Some(p)

		if math.IsNaN(p) {
			return g.reject(verdict, ReasonProbability)
		}

		if ExpectedValueR(p, g.cfg.RR) < g.cfg.EVMarginR {
			return g.reject(verdict, ReasonEV)
		}

		if p < g.threshold {
			return g.reject(verdict, ReasonProbability)
		}

		g.counters.PassedProb++
		boost = p - g.threshold
	}

	override := boost >= SoftOverrideMargin

	if !g.aboveVolatilityFloor(in.Indicators.ATR, in.Index) {
		return g.reject(verdict, ReasonVolatility)
	}

	if !override && !InSession(in.Time, g.cfg.SessionStart, g.cfg.SessionEnd) {
		return g.reject(verdict, ReasonSession)
	}

	if !g.trendOK(in, override) {
		return g.reject(verdict, ReasonTrend)
	}

	if !g.windowOpen(in.Index, in.Time) {
		return g.reject(verdict, ReasonWindow)
	}

	if !in.CanOpen {
		return g.reject(verdict, ReasonCapacity)
	}

	verdict.Admit = true

	return verdict
}

// RecordOpen notes that a trade was opened at bar index at time t.
func (g *Gate) RecordOpen(index int, t time.Time) {
	g.lastOpenIndex = index
	g.opensByDay[types.UTCDayKey(t)]++
	g.counters.Opened++
}

// RecordNoSize counts an admitted bar that produced no trade because the sizer
// found no feasible position.
func (g *Gate) RecordNoSize() {
	g.counters.Margin++
}

// Counters returns a copy of the rejection counters.
func (g *Gate) Counters() Counters {
	return g.counters
}

// Filters describes the effective settings for logging and result payloads.
func (g *Gate) Filters() Filters {
	return Filters{
		EVMargin:        g.cfg.EVMargin,
		EVMarginR:       g.cfg.EVMarginR,
		ATRWindow:       g.cfg.ATRWindow,
		ATRPercentile:   g.cfg.ATRPercentile,
		SessionStart:    g.cfg.SessionStart,
		SessionEnd:      g.cfg.SessionEnd,
		RSILong:         g.cfg.RSILong,
		RSIShort:        g.cfg.RSIShort,
		OnePerDay:       g.cfg.OnePerDay,
		SignalThreshold: g.cfg.SignalThreshold,
		BaseThreshold:   math.Min(1, 1/(1+g.cfg.RR)+g.cfg.EVMargin),
		Threshold:       g.threshold,
		CooldownBars:    g.cfg.CooldownBars,
	}
}

func (g *Gate) reject(v Verdict, reason Reason) Verdict {
	g.counters.add(reason)
	v.Admit = false
	v.Reason = reason

	return v
}

func (g *Gate) aboveVolatilityFloor(atr []float64, i int) bool {
	if g.cfg.ATRWindow <= 0 || i-1 < g.cfg.ATRWindow-1 || i >= len(atr) {
		return true
	}

	floor := indicator.PercentileOfWindow(atr, i-1, g.cfg.ATRWindow, g.cfg.ATRPercentile)
	if math.IsNaN(floor) || math.IsInf(floor, 0) {
		return true
	}

	return !(atr[i] < floor*VolatilitySlack)
}

func (g *Gate) trendOK(in Input, override bool) bool {
	i := in.Index
	fast, slow, rsi := in.Indicators.MAFast[i], in.Indicators.MASlow[i], in.Indicators.RSI[i]
	tol := math.Abs(slow) * MATolerance

	var maAligned, rsiRegime bool
	if in.Side == types.SideBuy {
		maAligned = fast > slow-tol
		rsiRegime = rsi > g.cfg.RSILong
	} else {
		maAligned = fast < slow+tol
		rsiRegime = rsi < g.cfg.RSIShort
	}

	if maAligned && rsiRegime {
		return true
	}

	return override && (maAligned || rsiRegime)
}

func (g *Gate) windowOpen(i int, t time.Time) bool {
	if g.cfg.OnePerDay {
		return g.opensByDay[types.UTCDayKey(t)] < MaxTradesPerDay
	}

	return i-g.lastOpenIndex >= g.cfg.CooldownBars
}
