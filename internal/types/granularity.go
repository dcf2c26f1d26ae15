package types

import (
	"strings"
	"time"

	"github.com/mattxander12/forex-trader/pkg/errors"
)

// Granularity is the bar interval of a candle series.
type Granularity string

const (
	GranularityS5  Granularity = "S5"
	GranularityM1  Granularity = "M1"
	GranularityM5  Granularity = "M5"
	GranularityM15 Granularity = "M15"
	GranularityM30 Granularity = "M30"
	GranularityH1  Granularity = "H1"
	GranularityH4  Granularity = "H4"
	GranularityD   Granularity = "D"
	GranularityW   Granularity = "W"
)

var granularityDurations = map[Granularity]time.Duration{
	GranularityS5:  5 * time.Second,
	GranularityM1:  time.Minute,
	GranularityM5:  5 * time.Minute,
	GranularityM15: 15 * time.Minute,
	GranularityM30: 30 * time.Minute,
	GranularityH1:  time.Hour,
	GranularityH4:  4 * time.Hour,
	GranularityD:   24 * time.Hour,
	GranularityW:   7 * 24 * time.Hour,
}

// ParseGranularity normalizes s and checks it is a known granularity.
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := granularityDurations[g]; !ok {
		return "", errors.Newf(errors.ErrCodeInvalidGranularity, "unknown granularity %q", s)
	}

	return g, nil
}

// Duration returns the bar length. Unknown values default to one hour.
func (g Granularity) Duration() time.Duration {
	if d, ok := granularityDurations[g]; ok {
		return d
	}

	return time.Hour
}

// BarsPerDay approximates the number of bars in a trading day. Weekly bars
// count as one, unknown values as 24.
func (g Granularity) BarsPerDay() int {
	switch g {
	case GranularityS5:
		return 24 * 60 * 12
	case GranularityM1:
		return 24 * 60
	case GranularityM5:
		return 24 * 12
	case GranularityM15:
		return 24 * 4
	case GranularityM30:
		return 24 * 2
	case GranularityH1:
		return 24
	case GranularityH4:
		return 6
	case GranularityD, GranularityW:
		return 1
	default:
		return 24
	}
}

// CandlesForYears returns how many bars cover the given number of years plus a
// warmup buffer of max(500, warmup*5).
func (g Granularity) CandlesForYears(years, warmup int) int {
	perDay := g.BarsPerDay()
	if g == GranularityW || g == GranularityS5 {
		// history requests for these are sized like M5
		perDay = GranularityM5.BarsPerDay()
	}

	return years*365*perDay + max(500, warmup*5)
}
