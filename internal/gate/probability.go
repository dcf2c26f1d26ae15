package gate

import "math"

// DeriveProbabilities turns the two per-label values reported by a classifier
// into a probability pair. Values that already form a proper distribution
// (both in [0,1], summing to 1 and not one-hot) are returned as-is; anything
// else is treated as raw scores and softmaxed.
func DeriveProbabilities(up, down float64) (pUp, pDown float64) {
	in01 := up >= 0 && up <= 1 && down >= 0 && down <= 1
	oneHot := in01 && ((math.Abs(up-1) < 1e-9 && math.Abs(down) < 1e-9) ||
		(math.Abs(down-1) < 1e-9 && math.Abs(up) < 1e-9))
	sumsToOne := in01 && math.Abs(up+down-1) < 1e-6

	if in01 && sumsToOne && !oneHot {
		return up, down
	}

	m := math.Max(up, down)
	eUp := math.Exp(up - m)
	eDown := math.Exp(down - m)
	z := eUp + eDown

	return eUp / z, eDown / z
}

// ProbabilityThreshold is the minimum calibrated win probability admitted:
// the stricter of the execution floor and the break-even probability for rr
// plus evMargin.
func ProbabilityThreshold(rr, evMargin, execFloor float64) float64 {
	if math.IsNaN(execFloor) || math.IsInf(execFloor, 0) {
		execFloor = 0
	}

	base := math.Min(1, 1/(1+rr)+evMargin)

	return math.Max(base, execFloor)
}

// ExpectedValueR is the expected value of a trade in R units.
func ExpectedValueR(p, rr float64) float64 {
	return p*rr - (1 - p)
}
