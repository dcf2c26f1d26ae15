package classifier

import (
	"fmt"
	"math"
	"strings"

	"github.com/mattxander12/forex-trader/internal/types"
)

// MinFeatureIndex is the first bar with a complete feature vector.
const MinFeatureIndex = 10

const epsilon = 1e-9

// FeatureNames lists the feature vector layout in order.
var FeatureNames = []string{
	"maFast", "maSlow", "rsi", "atr", "ret1",
	"maDiff", "rsiDelta", "atrNorm", "maRatio", "ret5",
	"maSlopeFast", "maSlopeSlow", "atrRatio", "rsiNorm", "ret10",
}

// Features returns the feature vector for bar i, or nil when i is too early
// or any input is NaN.
func Features(closes []float64, s types.IndicatorSeries, i int) []float64 {
	if i < MinFeatureIndex || i >= len(closes) || i >= s.Len() {
		return nil
	}

	inputs := []float64{
		s.MAFast[i], s.MASlow[i], s.RSI[i], s.ATR[i],
		s.MAFast[i-1], s.MASlow[i-1], s.RSI[i-1], s.ATR[i-1],
		closes[i], closes[i-1], closes[i-5], closes[i-10],
	}
	for _, v := range inputs {
		if math.IsNaN(v) {
			return nil
		}
	}

	c := closes[i]
	maFast, maSlow, rsi, atr := s.MAFast[i], s.MASlow[i], s.RSI[i], s.ATR[i]

	return []float64{
		maFast,
		maSlow,
		rsi,
		atr,
		(c - closes[i-1]) / closes[i-1],
		maFast - maSlow,
		rsi - s.RSI[i-1],
		atr / c,
		maFast / (maSlow + epsilon),
		(c - closes[i-5]) / closes[i-5],
		maFast - s.MAFast[i-1],
		maSlow - s.MASlow[i-1],
		atr / (s.ATR[i-1] + epsilon),
		rsi / 100,
		(c - closes[i-10]) / closes[i-10],
	}
}

// Signature identifies the indicator settings and feature layout a model was
// trained on. A model only scores bars built with the same signature.
func Signature(kind types.MAKind, fast, slow, atrPeriod int) string {
	return fmt.Sprintf("v1|maType=%s|fast=%d|slow=%d|atrP=%d|features=%s",
		kind, fast, slow, atrPeriod, strings.Join(FeatureNames, ","))
}
