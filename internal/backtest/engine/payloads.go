package engine

import (
	"encoding/json"
	"math"
	"time"

	"github.com/mattxander12/forex-trader/internal/gate"
	"github.com/mattxander12/forex-trader/internal/types"
	"github.com/mattxander12/forex-trader/pkg/errors"
)

// Progress phases.
const (
	PhaseStart = "start"
	PhaseScan  = "scan"
	PhaseLoop  = "loop"
)

// SetupPayload is the first progress event of a run.
type SetupPayload struct {
	Leverage     float64 `json:"leverage"`
	StartBalance float64 `json:"startBalance"`
}

// StartPayload is emitted once candles are loaded.
type StartPayload struct {
	Phase       string         `json:"phase"`
	Instrument  string         `json:"instrument"`
	Granularity string         `json:"granularity"`
	Candles     int            `json:"candles"`
	RR          float64        `json:"rr"`
	Mode        types.RiskMode `json:"mode"`
}

// ScanPayload reports the pre-loop probability scan.
type ScanPayload struct {
	Phase string `json:"phase"`
	types.ProbabilityScan
}

// LoopPayload is emitted every ProgressEvery bars.
type LoopPayload struct {
	Phase string `json:"phase"`
	I     int    `json:"i"`
	Of    int    `json:"of"`
}

// TradePayload describes a settled trade.
type TradePayload struct {
	Type       string            `json:"type"`
	Index      int               `json:"index"`
	Side       types.Side        `json:"side"`
	R          float64           `json:"r"`
	EquityR    float64           `json:"equityR"`
	Status     types.TradeStatus `json:"status"`
	Entry      float64           `json:"entry"`
	Exit       float64           `json:"exit"`
	Stop       float64           `json:"stop"`
	TakeProfit float64           `json:"takeProfit"`
	Time       time.Time         `json:"time"`
	PnLUSD     float64           `json:"pnlUSD"`
	EquityUSD  float64           `json:"equityUSD"`
}

// ResultPayload is the final summary of a run.
type ResultPayload struct {
	Trades         int                         `json:"trades"`
	Wins           int                         `json:"wins"`
	Losses         int                         `json:"losses"`
	WinRate        float64                     `json:"winRate"`
	TotalR         float64                     `json:"totalR"`
	AvgR           float64                     `json:"avgR"`
	ProfitFactor   Ratio                       `json:"profitFactor"`
	MaxDrawdownR   float64                     `json:"maxDrawdownR"`
	EquityCurve    []float64                   `json:"equityCurve"`
	StartBalance   float64                     `json:"startBalance"`
	EndBalance     float64                     `json:"endBalance"`
	EquityCurveUSD []float64                   `json:"equityCurveUSD"`
	Rejections     gate.Counters               `json:"rejections"`
	Filters        gate.Filters                `json:"filters"`
	Calibration    []types.CalibrationBinStats `json:"calibration"`
}

// ErrorPayload is emitted when a run fails.
type ErrorPayload struct {
	Message string           `json:"message"`
	Code    errors.ErrorCode `json:"code"`
}

// NewErrorPayload builds the payload for err.
func NewErrorPayload(err error) ErrorPayload {
	return ErrorPayload{Message: err.Error(), Code: errors.GetCode(err)}
}

// Ratio is a float that encodes infinities as the strings "Infinity" and
// "-Infinity", which plain JSON numbers cannot carry.
type Ratio float64

func (r Ratio) MarshalJSON() ([]byte, error) {
	v := float64(r)

	switch {
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	case math.IsNaN(v):
		return []byte("null"), nil
	}

	return json.Marshal(v)
}

func (r *Ratio) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"Infinity"`:
		*r = Ratio(math.Inf(1))

		return nil
	case `"-Infinity"`:
		*r = Ratio(math.Inf(-1))

		return nil
	case "null":
		*r = Ratio(math.NaN())

		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	*r = Ratio(v)

	return nil
}

// Round rounds v to places decimals. Infinities and NaN are returned unchanged.
func Round(v float64, places int) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}

	scale := math.Pow(10, float64(places))

	return math.Round(v*scale) / scale
}
