// Package calibration maps raw model probabilities to observed win rates using
// a binned reliability table.
package calibration

import "math"

// DefaultEdges are the bin boundaries used for reliability tables and for the
// realized-outcome bins reported after a run.
var DefaultEdges = []float64{0.45, 0.50, 0.55, 0.60, 0.65, 0.70, 0.75, 1.01}

// Bin maps probabilities in [Lo, Hi) to WinRate. WinRate is NaN when the bin
// had no observations.
type Bin struct {
	Lo      float64
	Hi      float64
	WinRate float64
}

// Table is an ordered list of non-overlapping bins.
type Table []Bin

// Calibrate returns the win rate of the first bin containing p, clamped to the
// bin's bounds. p is returned unchanged when the table is empty, p is not
// finite, no bin contains p, or the matching bin is empty.
func Calibrate(p float64, table Table) float64 {
	if len(table) == 0 || math.IsNaN(p) || math.IsInf(p, 0) {
		return p
	}

	for _, b := range table {
		if p >= b.Lo && p < b.Hi {
			if math.IsNaN(b.WinRate) {
				return p
			}

			return math.Max(b.Lo, math.Min(b.Hi, b.WinRate))
		}
	}

	return p
}

// FromOutcomes builds a table over consecutive edges from observed
// probabilities and whether each observation won. Observations outside every
// bin are ignored.
func FromOutcomes(edges []float64, probs []float64, won []bool) Table {
	if len(edges) < 2 {
		return nil
	}

	counts := make([]int, len(edges)-1)
	wins := make([]int, len(edges)-1)

	for i, p := range probs {
		if i >= len(won) {
			break
		}

		idx := BinIndex(edges, p)
		if idx < 0 {
			continue
		}

		counts[idx]++
		if won[i] {
			wins[idx]++
		}
	}

	table := make(Table, len(edges)-1)
	for i := range table {
		rate := math.NaN()
		if counts[i] > 0 {
			rate = float64(wins[i]) / float64(counts[i])
		}

		table[i] = Bin{Lo: edges[i], Hi: edges[i+1], WinRate: rate}
	}

	return table
}

// BinIndex returns the index of the bin [edges[i], edges[i+1]) containing p,
// or -1.
func BinIndex(edges []float64, p float64) int {
	for i := 0; i+1 < len(edges); i++ {
		if p >= edges[i] && p < edges[i+1] {
			return i
		}
	}

	return -1
}
