package types

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CalibrationBinStats is the realized outcome of trades whose calibrated
// probability fell in [Lo, Hi).
type CalibrationBinStats struct {
	Lo    float64 `yaml:"lo" json:"lo"`
	Hi    float64 `yaml:"hi" json:"hi"`
	Count int     `yaml:"count" json:"count"`
	Wins  int     `yaml:"wins" json:"wins"`
	SumR  float64 `yaml:"sum_r" json:"sumR"`
}

// WinRate returns wins/count, or NaN for an empty bin.
func (b CalibrationBinStats) WinRate() float64 {
	if b.Count == 0 {
		return math.NaN()
	}

	return float64(b.Wins) / float64(b.Count)
}

// ProbabilityScan summarizes the calibrated probabilities the classifier
// produced over every bar of a run, before any gating.
type ProbabilityScan struct {
	Count int `yaml:"count" json:"count"`
	// Calibrated reports whether a reliability table was applied.
	Calibrated bool    `yaml:"calibrated" json:"calibrated"`
	Max        float64 `yaml:"max" json:"max"`
	P95        float64 `yaml:"p95" json:"p95"`
	GE45       int     `yaml:"ge45" json:"ge45"`
	GE50       int     `yaml:"ge50" json:"ge50"`
	GE55       int     `yaml:"ge55" json:"ge55"`
	GE60       int     `yaml:"ge60" json:"ge60"`
	MeanRaw    float64 `yaml:"mean_raw" json:"meanRaw"`
	MeanCal    float64 `yaml:"mean_cal" json:"meanCal"`
	// DeltaGT01 counts bars where calibration moved p by more than 0.01.
	DeltaGT01 int `yaml:"delta_gt01" json:"deltaGt01"`
}

// Degenerate reports whether every probability sits at ~1.0, which usually
// means the classifier emits one-hot scores.
func (s ProbabilityScan) Degenerate() bool {
	return s.Count > 0 && s.Max >= 0.999 && s.P95 >= 0.999 && s.MeanRaw >= 0.999
}

// RunStats is the end-of-run summary of a backtest.
type RunStats struct {
	// ID is the job id of the run.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when the run finished.
	Timestamp   time.Time `yaml:"timestamp" json:"timestamp"`
	Instrument  string    `yaml:"instrument" json:"instrument"`
	Granularity string    `yaml:"granularity" json:"granularity"`

	Trades int `yaml:"trades" json:"trades"`
	Wins   int `yaml:"wins" json:"wins"`
	Losses int `yaml:"losses" json:"losses"`
	// WinRate in percent.
	WinRate      float64 `yaml:"win_rate" json:"winRate"`
	TotalR       float64 `yaml:"total_r" json:"totalR"`
	AvgR         float64 `yaml:"avg_r" json:"avgR"`
	ProfitFactor float64 `yaml:"profit_factor" json:"-"`
	MaxDrawdownR float64 `yaml:"max_drawdown_r" json:"maxDrawdownR"`

	StartBalance float64 `yaml:"start_balance" json:"startBalance"`
	EndBalance   float64 `yaml:"end_balance" json:"endBalance"`

	// Rejections counts gate rejections by reason.
	Rejections      map[string]int        `yaml:"rejections" json:"rejections"`
	CalibrationBins []CalibrationBinStats `yaml:"calibration_bins" json:"calibrationBins"`
	ProbScan        ProbabilityScan       `yaml:"prob_scan" json:"probScan"`
}

// WriteRunStats writes stats to path as YAML.
func WriteRunStats(path string, stats RunStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal run stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run stats to file: %w", err)
	}

	return nil
}
