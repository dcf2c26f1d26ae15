package engine

import (
	"math"

	"github.com/mattxander12/forex-trader/internal/calibration"
	"github.com/mattxander12/forex-trader/internal/classifier"
	"github.com/mattxander12/forex-trader/internal/gate"
	"github.com/mattxander12/forex-trader/internal/indicator"
	"github.com/mattxander12/forex-trader/internal/types"
)

// scanProbabilities scores every bar from warmup and summarizes the calibrated
// probability of the predicted side. Bars without features or scores, and bars
// the classifier fails on, are left out.
func scanProbabilities(clf classifier.Classifier, closes []float64, series types.IndicatorSeries, warmup int, table calibration.Table) types.ProbabilityScan {
	scan := types.ProbabilityScan{Calibrated: len(table) > 0}

	var probabilities []float64

	sumRaw, sumCal := 0.0, 0.0

	for i := warmup; i < len(closes); i++ {
		features := classifier.Features(closes, series, i)
		if features == nil {
			continue
		}

		prediction, err := clf.Predict(features)
		if err != nil {
			continue
		}

		scores := scoresOf(prediction)
		if scores.IsNone() {
			continue
		}

		s := scores.Unwrap()
		pUp, pDown := gate.DeriveProbabilities(s.Up, s.Down)
		raw := math.Max(pUp, pDown)
		p := calibration.Calibrate(raw, table)

		if math.Abs(p-raw) > 0.01 {
			scan.DeltaGT01++
		}

		if math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}

		sumRaw += raw
		sumCal += p
		probabilities = append(probabilities, p)

		if p >= 0.45 {
			scan.GE45++
		}

		if p >= 0.50 {
			scan.GE50++
		}

		if p >= 0.55 {
			scan.GE55++
		}

		if p >= 0.60 {
			scan.GE60++
		}

		scan.Max = math.Max(scan.Max, p)
	}

	scan.Count = len(probabilities)
	if scan.Count == 0 {
		return scan
	}

	scan.P95 = indicator.Percentile(probabilities, 95)
	scan.MeanRaw = sumRaw / float64(scan.Count)
	scan.MeanCal = sumCal / float64(scan.Count)

	return scan
}
