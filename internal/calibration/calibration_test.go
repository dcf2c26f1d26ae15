package calibration

import (
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mattxander12/forex-trader/internal/logger"
)

type CalibrationTestSuite struct {
	suite.Suite
	table Table
}

func TestCalibrationSuite(t *testing.T) {
	suite.Run(t, new(CalibrationTestSuite))
}

func (suite *CalibrationTestSuite) SetupTest() {
	suite.table = Table{
		{Lo: 0.50, Hi: 0.55, WinRate: 0.40},
		{Lo: 0.55, Hi: 0.60, WinRate: math.NaN()},
		{Lo: 0.60, Hi: 0.65, WinRate: 0.62},
		{Lo: 0.65, Hi: 0.70, WinRate: 0.90},
	}
}

func (suite *CalibrationTestSuite) TestCalibrate() {
	testCases := []struct {
		name string
		p    float64
		want float64
	}{
		{name: "clamped up to lo", p: 0.52, want: 0.50},
		{name: "empty bin passes through", p: 0.57, want: 0.57},
		{name: "inside bounds", p: 0.61, want: 0.62},
		{name: "clamped down to hi", p: 0.66, want: 0.70},
		{name: "no bin matches", p: 0.30, want: 0.30},
		{name: "upper edge is exclusive", p: 0.70, want: 0.70},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			suite.InDelta(tc.want, Calibrate(tc.p, suite.table), 1e-12)
		})
	}
}

func (suite *CalibrationTestSuite) TestCalibrateIdentity() {
	suite.Equal(0.63, Calibrate(0.63, nil))
	suite.Equal(0.63, Calibrate(0.63, Table{}))
	suite.True(math.IsNaN(Calibrate(math.NaN(), suite.table)))
	suite.True(math.IsInf(Calibrate(math.Inf(1), suite.table), 1))
}

func (suite *CalibrationTestSuite) TestCalibrateIdempotentAtLowerEdge() {
	table := Table{{Lo: 0.60, Hi: 0.65, WinRate: 0.60}}
	once := Calibrate(0.60, table)
	suite.Equal(0.60, once)
	suite.Equal(once, Calibrate(once, table))
}

func (suite *CalibrationTestSuite) TestFromOutcomes() {
	edges := []float64{0.5, 0.6, 0.7}
	probs := []float64{0.52, 0.55, 0.58, 0.9, 0.4}
	won := []bool{true, false, true, true, true}

	table := FromOutcomes(edges, probs, won)
	suite.Len(table, 2)
	suite.InDelta(2.0/3.0, table[0].WinRate, 1e-12)
	suite.True(math.IsNaN(table[1].WinRate))
	suite.Equal(0.6, table[1].Lo)
	suite.Equal(0.7, table[1].Hi)

	suite.Nil(FromOutcomes([]float64{0.5}, probs, won))
}

func (suite *CalibrationTestSuite) TestBinIndex() {
	suite.Equal(0, BinIndex(DefaultEdges, 0.45))
	suite.Equal(6, BinIndex(DefaultEdges, 1.0))
	suite.Equal(-1, BinIndex(DefaultEdges, 0.2))
	suite.Equal(-1, BinIndex(DefaultEdges, 1.01))
}

func (suite *CalibrationTestSuite) TestWriteThenLoad() {
	path := filepath.Join(suite.T().TempDir(), "calibration.csv")
	suite.NoError(Write(path, suite.table))

	data, err := os.ReadFile(path)
	suite.NoError(err)
	suite.Contains(string(data), "lo,hi,winRate\n")
	suite.Contains(string(data), "0.55,0.60,NaN\n")

	loaded := Load(path, logger.NewNopLogger())
	suite.True(loaded.IsSome())

	table := loaded.Unwrap()
	suite.Len(table, 4)
	suite.InDelta(0.62, table[2].WinRate, 1e-9)
	suite.True(math.IsNaN(table[1].WinRate))
}

func (suite *CalibrationTestSuite) TestConcurrentWritesLeaveOneTable() {
	dir := suite.T().TempDir()
	path := filepath.Join(dir, "calibration.csv")

	var wg sync.WaitGroup

	for i := range 8 {
		rate := 0.5 + float64(i)/100

		wg.Add(1)

		go func() {
			defer wg.Done()

			suite.NoError(Write(path, Table{
				{Lo: 0.5, Hi: 0.6, WinRate: rate},
				{Lo: 0.6, Hi: 0.7, WinRate: rate},
			}))
		}()
	}

	wg.Wait()

	loaded := Load(path, logger.NewNopLogger())
	suite.Require().True(loaded.IsSome())

	table := loaded.Unwrap()
	suite.Require().Len(table, 2)
	suite.Equal(table[0].WinRate, table[1].WinRate)

	entries, err := os.ReadDir(dir)
	suite.Require().NoError(err)
	suite.Len(entries, 1)
}

func (suite *CalibrationTestSuite) TestLoadFallsBackToNone() {
	log := logger.NewNopLogger()
	dir := suite.T().TempDir()

	suite.True(Load("", log).IsNone())
	suite.True(Load(filepath.Join(dir, "missing.csv"), log).IsNone())

	headerOnly := filepath.Join(dir, "header.csv")
	suite.NoError(os.WriteFile(headerOnly, []byte("lo,hi,winRate\n\n"), 0644))
	suite.True(Load(headerOnly, log).IsNone())

	broken := filepath.Join(dir, "broken.csv")
	suite.NoError(os.WriteFile(broken, []byte("lo,hi,winRate\n0.5,0.55,abc\n"), 0644))
	suite.True(Load(broken, log).IsNone())
}
