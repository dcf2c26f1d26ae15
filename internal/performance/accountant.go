// Package performance accumulates equity curves and summary statistics from
// settled paper trades.
package performance

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/mattxander12/forex-trader/internal/calibration"
	"github.com/mattxander12/forex-trader/internal/types"
)

// Settlement is the accounting outcome of one closed trade.
type Settlement struct {
	Trade     types.PaperTrade
	R         float64
	PnLUSD    float64
	EquityR   float64
	EquityUSD float64
}

// Accountant tracks R and currency equity for a single run.
type Accountant struct {
	edges        []float64
	startBalance decimal.Decimal
	equityUSD    decimal.Decimal
	equityR      float64

	curveR   []float64
	curveUSD []float64
	rSeries  []float64
	wins     int
	losses   int

	bins []types.CalibrationBinStats
}

// NewAccountant creates an accountant starting at startBalance. edges are the
// calibration bin boundaries; nil uses calibration.DefaultEdges.
func NewAccountant(startBalance float64, edges []float64) *Accountant {
	if len(edges) < 2 {
		edges = calibration.DefaultEdges
	}

	bins := make([]types.CalibrationBinStats, len(edges)-1)
	for i := range bins {
		bins[i] = types.CalibrationBinStats{Lo: edges[i], Hi: edges[i+1]}
	}

	start := decimal.NewFromFloat(startBalance)

	return &Accountant{
		edges:        edges,
		startBalance: start,
		equityUSD:    start,
		equityR:      0,
		curveR:       []float64{},
		curveUSD:     []float64{},
		rSeries:      []float64{},
		wins:         0,
		losses:       0,
		bins:         bins,
	}
}

// RealizedR returns the trade's outcome in multiples of its initial risk and
// false when the trade has no exit or zero risk.
func RealizedR(t types.PaperTrade) (float64, bool) {
	risk := t.RiskDistance()
	if risk == 0 || t.Exit.IsNone() {
		return 0, false
	}

	exit := t.Exit.Unwrap()
	if t.Side == types.SideBuy {
		return (exit - t.Entry) / risk, true
	}

	return (t.Entry - exit) / risk, true
}

// Record books a closed trade. Trades with zero risk are skipped and reported
// with ok == false.
func (a *Accountant) Record(t types.PaperTrade) (Settlement, bool) {
	r, ok := RealizedR(t)
	if !ok {
		return Settlement{}, false
	}

	if t.Tags.CalibratedP.IsSome() {
		if idx := calibration.BinIndex(a.edges, t.Tags.CalibratedP.Unwrap()); idx >= 0 {
			a.bins[idx].Count++
			if r > 0 {
				a.bins[idx].Wins++
			}
			a.bins[idx].SumR += r
		}
	}

	riskUSD := t.Tags.RiskUSD.TakeOr(0)
	pnl := decimal.NewFromFloat(r).Mul(decimal.NewFromFloat(riskUSD))
	a.equityUSD = a.equityUSD.Add(pnl)
	a.equityR += r

	equityUSD := a.equityUSD.InexactFloat64()
	a.curveR = append(a.curveR, a.equityR)
	a.curveUSD = append(a.curveUSD, equityUSD)
	a.rSeries = append(a.rSeries, r)

	switch t.Status {
	case types.TradeStatusWon:
		a.wins++
	case types.TradeStatusLost:
		a.losses++
	case types.TradeStatusOpen:
	}

	return Settlement{
		Trade:     t,
		R:         r,
		PnLUSD:    pnl.InexactFloat64(),
		EquityR:   a.equityR,
		EquityUSD: equityUSD,
	}, true
}

// EquityUSD returns the current currency equity.
func (a *Accountant) EquityUSD() float64 {
	return a.equityUSD.InexactFloat64()
}

// StartBalance returns the starting currency equity.
func (a *Accountant) StartBalance() float64 {
	return a.startBalance.InexactFloat64()
}

// EquityCurveR returns a copy of the cumulative R curve.
func (a *Accountant) EquityCurveR() []float64 {
	return append([]float64{}, a.curveR...)
}

// EquityCurveUSD returns a copy of the currency equity curve.
func (a *Accountant) EquityCurveUSD() []float64 {
	return append([]float64{}, a.curveUSD...)
}

// Bins returns a copy of the realized calibration bins.
func (a *Accountant) Bins() []types.CalibrationBinStats {
	return append([]types.CalibrationBinStats{}, a.bins...)
}

// Summary holds end-of-run statistics.
type Summary struct {
	Trades       int
	Wins         int
	Losses       int
	WinRate      float64
	TotalR       float64
	AvgR         float64
	ProfitFactor float64
	MaxDrawdownR float64
}

// Summary computes statistics over every recorded trade.
func (a *Accountant) Summary() Summary {
	total := 0.0
	for _, r := range a.rSeries {
		total += r
	}

	s := Summary{
		Trades:       len(a.rSeries),
		Wins:         a.wins,
		Losses:       a.losses,
		TotalR:       total,
		ProfitFactor: ProfitFactor(a.rSeries),
		MaxDrawdownR: MaxDrawdownR(a.rSeries),
	}

	if s.Trades > 0 {
		s.AvgR = total / float64(s.Trades)
	}

	if decided := a.wins + a.losses; decided > 0 {
		s.WinRate = 100 * float64(a.wins) / float64(decided)
	}

	return s
}

// ProfitFactor is gross gains over gross losses in R. It is +Inf when there
// are gains and no losses, and 0 when there is neither.
func ProfitFactor(rs []float64) float64 {
	gains, losses := 0.0, 0.0

	for _, r := range rs {
		if r > 0 {
			gains += r
		} else {
			losses += r
		}
	}

	if losses == 0 {
		if gains == 0 {
			return 0
		}

		return math.Inf(1)
	}

	return gains / math.Abs(losses)
}

// MaxDrawdownR is the largest peak-to-trough drop of cumulative R, with the
// curve starting at zero.
func MaxDrawdownR(rs []float64) float64 {
	peak, equity, maxDD := 0.0, 0.0, 0.0

	for _, r := range rs {
		equity += r
		peak = math.Max(peak, equity)
		maxDD = math.Max(maxDD, peak-equity)
	}

	return maxDD
}
