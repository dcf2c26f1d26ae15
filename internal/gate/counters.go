package gate

// Reason names why a bar was rejected.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonEV          Reason = "evR"
	ReasonProbability Reason = "prob"
	ReasonVolatility  Reason = "vol"
	ReasonSession     Reason = "session"
	ReasonTrend       Reason = "trend"
	ReasonWindow      Reason = "window"
	ReasonCapacity    Reason = "capacity"
	ReasonMargin      Reason = "margin"
)

// Counters tallies gate outcomes over a run.
type Counters struct {
	Considered int `json:"considered"`
	PassedProb int `json:"passedProb"`
	Opened     int `json:"opened"`

	EV          int `json:"evR"`
	Probability int `json:"prob"`
	Volatility  int `json:"vol"`
	Session     int `json:"session"`
	Trend       int `json:"trend"`
	Window      int `json:"window"`
	Capacity    int `json:"capacity"`
	Margin      int `json:"margin"`
}

func (c *Counters) add(reason Reason) {
	switch reason {
	case ReasonEV:
		c.EV++
	case ReasonProbability:
		c.Probability++
	case ReasonVolatility:
		c.Volatility++
	case ReasonSession:
		c.Session++
	case ReasonTrend:
		c.Trend++
	case ReasonWindow:
		c.Window++
	case ReasonCapacity:
		c.Capacity++
	case ReasonMargin:
		c.Margin++
	case ReasonNone:
	}
}

// Rejections returns the rejection counts keyed by reason.
func (c Counters) Rejections() map[string]int {
	return map[string]int{
		string(ReasonEV):          c.EV,
		string(ReasonProbability): c.Probability,
		string(ReasonVolatility):  c.Volatility,
		string(ReasonSession):     c.Session,
		string(ReasonTrend):       c.Trend,
		string(ReasonWindow):      c.Window,
		string(ReasonCapacity):    c.Capacity,
		string(ReasonMargin):      c.Margin,
	}
}

// Filters is the effective gate configuration of a run.
type Filters struct {
	EVMargin        float64 `json:"evMargin"`
	EVMarginR       float64 `json:"evMarginR"`
	ATRWindow       int     `json:"atrWindow"`
	ATRPercentile   float64 `json:"atrPercentile"`
	SessionStart    int     `json:"sessionStart"`
	SessionEnd      int     `json:"sessionEnd"`
	RSILong         float64 `json:"rsiLong"`
	RSIShort        float64 `json:"rsiShort"`
	OnePerDay       bool    `json:"onePerDay"`
	SignalThreshold float64 `json:"signalThr"`
	BaseThreshold   float64 `json:"basePw"`
	Threshold       float64 `json:"effThr"`
	CooldownBars    int     `json:"cooldownBars"`
}
