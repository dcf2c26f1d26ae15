package types

import (
	"strings"
	"time"

	"github.com/moznion/go-optional"

	"github.com/mattxander12/forex-trader/pkg/errors"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeStatus is the lifecycle state of a PaperTrade.
type TradeStatus string

const (
	TradeStatusOpen TradeStatus = "OPEN"
	TradeStatusWon  TradeStatus = "WON"
	TradeStatusLost TradeStatus = "LOST"
)

// CloseReason records which level settled a trade.
type CloseReason string

const (
	CloseReasonTakeProfit CloseReason = "TP"
	CloseReasonStopLoss   CloseReason = "SL"
)

// RiskMode selects how the stop distance of a paper trade is derived.
type RiskMode string

const (
	// RiskModeATR places the stop paper.risk ATRs away from entry.
	RiskModeATR RiskMode = "ATR"
	// RiskModePips places the stop a fixed number of pips away from entry.
	RiskModePips RiskMode = "PIPS"
)

// ParseRiskMode resolves a configuration string into a RiskMode.
func ParseRiskMode(s string) (RiskMode, error) {
	switch RiskMode(strings.ToUpper(strings.TrimSpace(s))) {
	case "", RiskModeATR:
		return RiskModeATR, nil
	case RiskModePips:
		return RiskModePips, nil
	default:
		return RiskModeATR, errors.Newf(errors.ErrCodeInvalidRiskMode, "unknown risk mode %q", s)
	}
}

// PipSize returns the pip size for an instrument: 0.01 for JPY quoted pairs,
// 0.0001 otherwise.
func PipSize(instrument string) float64 {
	if strings.HasSuffix(strings.ToUpper(instrument), "JPY") {
		return 0.01
	}

	return 0.0001
}

// TradeTags are values captured when a trade is opened and consumed when it settles.
type TradeTags struct {
	// CalibratedP is the calibrated win probability the gate admitted the trade with.
	CalibratedP optional.Option[float64]
	// RiskUSD is the dollar risk at entry.
	RiskUSD optional.Option[float64]
}

// PaperTrade is a simulated position. It is created OPEN and transitions
// exactly once to WON or LOST.
type PaperTrade struct {
	Instrument string
	Side       Side
	OpenedAt   time.Time
	Entry      float64
	Stop       float64
	Take       float64
	OpenIndex  int
	Units      float64

	ClosedAt optional.Option[time.Time]
	Exit     optional.Option[float64]
	Status   TradeStatus
	Reason   optional.Option[CloseReason]

	Tags TradeTags
}

// IsOpen reports whether the trade is still unsettled.
func (t *PaperTrade) IsOpen() bool {
	return t.Status == TradeStatusOpen
}

// RiskDistance returns |entry - stop|.
func (t *PaperTrade) RiskDistance() float64 {
	d := t.Entry - t.Stop
	if d < 0 {
		return -d
	}

	return d
}
