// Package ledger owns the paper trades of a single run and settles them
// against incoming bars.
package ledger

import (
	"time"

	"github.com/moznion/go-optional"

	"github.com/mattxander12/forex-trader/internal/types"
)

// Config describes how stops and targets are placed.
type Config struct {
	Mode types.RiskMode
	// Risk is the ATR multiple of the stop distance in ATR mode.
	Risk float64
	// Pips is the stop distance in PIPS mode.
	Pips float64
	// RR is the reward:risk ratio.
	RR                   float64
	MaxOpenPerInstrument int
}

// Ledger tracks open and closed trades. A trade is in exactly one of the two
// sets. Not safe for concurrent use.
type Ledger struct {
	cfg    Config
	open   []*types.PaperTrade
	closed []*types.PaperTrade
}

func New(cfg Config) *Ledger {
	return &Ledger{
		cfg:    cfg,
		open:   nil,
		closed: nil,
	}
}

// Open creates an OPEN trade at entry with stop and target derived from the
// configured risk mode.
func (l *Ledger) Open(instrument string, side types.Side, entry, atr float64, index int, ts time.Time, units float64, tags types.TradeTags) types.PaperTrade {
	risk := l.RiskDistance(instrument, atr)
	reward := risk * l.cfg.RR

	stop, take := entry-risk, entry+reward
	if side == types.SideSell {
		stop, take = entry+risk, entry-reward
	}

	trade := &types.PaperTrade{
		Instrument: instrument,
		Side:       side,
		OpenedAt:   ts,
		Entry:      entry,
		Stop:       stop,
		Take:       take,
		OpenIndex:  index,
		Units:      units,
		ClosedAt:   optional.None[time.Time](),
		Exit:       optional.None[float64](),
		Status:     types.TradeStatusOpen,
		Reason:     optional.None[types.CloseReason](),
		Tags:       tags,
	}

	l.open = append(l.open, trade)

	return *trade
}

// RiskDistance returns the stop distance for a new trade.
func (l *Ledger) RiskDistance(instrument string, atr float64) float64 {
	if l.cfg.Mode == types.RiskModePips {
		return l.cfg.Pips * types.PipSize(instrument)
	}

	return atr * l.cfg.Risk
}

// CanOpen reports whether instrument is below its open-trade cap.
func (l *Ledger) CanOpen(instrument string) bool {
	count := 0

	for _, t := range l.open {
		if t.Instrument == instrument {
			count++
		}
	}

	return count < l.cfg.MaxOpenPerInstrument
}

// OnCandle settles open trades of instrument against one bar and returns the
// trades closed by it, in the order they were opened. When a bar touches both
// levels the stop wins.
func (l *Ledger) OnCandle(instrument string, high, low, closePrice float64, ts time.Time) []types.PaperTrade {
	var settled []types.PaperTrade

	remaining := l.open[:0]

	for _, t := range l.open {
		if t.Instrument != instrument || !settle(t, high, low, ts) {
			remaining = append(remaining, t)

			continue
		}

		l.closed = append(l.closed, t)
		settled = append(settled, *t)
	}

	clear(l.open[len(remaining):])
	l.open = remaining

	return settled
}

func settle(t *types.PaperTrade, high, low float64, ts time.Time) bool {
	switch t.Side {
	case types.SideBuy:
		if low <= t.Stop {
			closeAs(t, types.TradeStatusLost, t.Stop, types.CloseReasonStopLoss, ts)

			return true
		}

		if high >= t.Take {
			closeAs(t, types.TradeStatusWon, t.Take, types.CloseReasonTakeProfit, ts)

			return true
		}
	case types.SideSell:
		if high >= t.Stop {
			closeAs(t, types.TradeStatusLost, t.Stop, types.CloseReasonStopLoss, ts)

			return true
		}

		if low <= t.Take {
			closeAs(t, types.TradeStatusWon, t.Take, types.CloseReasonTakeProfit, ts)

			return true
		}
	}

	return false
}

func closeAs(t *types.PaperTrade, status types.TradeStatus, exit float64, reason types.CloseReason, ts time.Time) {
	t.Status = status
	t.Exit = optional.Some(exit)
	t.Reason = optional.Some(reason)
	t.ClosedAt = optional.Some(ts)
}

// OpenTrades returns a snapshot of the open set.
func (l *Ledger) OpenTrades() []types.PaperTrade {
	return snapshot(l.open)
}

// ClosedTrades returns a snapshot of the closed set in settlement order.
func (l *Ledger) ClosedTrades() []types.PaperTrade {
	return snapshot(l.closed)
}

// Reset clears both sets.
func (l *Ledger) Reset() {
	l.open = nil
	l.closed = nil
}

func snapshot(trades []*types.PaperTrade) []types.PaperTrade {
	out := make([]types.PaperTrade, len(trades))
	for i, t := range trades {
		out[i] = *t
	}

	return out
}
