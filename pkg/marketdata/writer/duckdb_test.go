package writer

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mattxander12/forex-trader/internal/types"
)

type DuckDBWriterTestSuite struct {
	suite.Suite
	dir string
}

func TestDuckDBWriterSuite(t *testing.T) {
	suite.Run(t, new(DuckDBWriterTestSuite))
}

func (suite *DuckDBWriterTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
}

func (suite *DuckDBWriterTestSuite) candle(i int) types.Candle {
	p := 1.25 + float64(i)*0.0001

	return types.Candle{
		Time:   time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC),
		Open:   p,
		High:   p + 0.0002,
		Low:    p - 0.0002,
		Close:  p,
		Volume: 5,
	}
}

func (suite *DuckDBWriterTestSuite) TestFileName() {
	suite.Equal("GBP_USD_H1.parquet", FileName("GBP_USD", types.GranularityH1))
}

func (suite *DuckDBWriterTestSuite) TestNewDuckDBWriter() {
	path := filepath.Join(suite.dir, "x.parquet")
	w := NewDuckDBWriter(path)

	duck, ok := w.(*DuckDBWriter)
	suite.Require().True(ok)
	suite.Nil(duck.db)
	suite.Equal(path, w.GetOutputPath())
}

func (suite *DuckDBWriterTestSuite) TestWriteWithoutInitialize() {
	w := NewDuckDBWriter(filepath.Join(suite.dir, "x.parquet"))

	suite.ErrorContains(w.Write("GBP_USD", suite.candle(0)), "writer not initialized")

	_, err := w.Finalize()
	suite.ErrorContains(err, "writer not initialized")
}

func (suite *DuckDBWriterTestSuite) TestFinalizeExportsSortedUniqueRows() {
	path := filepath.Join(suite.dir, "GBP_USD_M1.parquet")
	w := NewDuckDBWriter(path)
	suite.Require().NoError(w.Initialize())

	for _, i := range []int{3, 1, 2, 1, 0} {
		suite.Require().NoError(w.Write("GBP_USD", suite.candle(i)))
	}

	out, err := w.Finalize()
	suite.Require().NoError(err)
	suite.Equal(path, out)
	suite.Require().NoError(w.Close())

	db, err := sql.Open("duckdb", "")
	suite.Require().NoError(err)
	defer db.Close()

	rows, err := db.Query("SELECT time FROM read_parquet('" + path + "')")
	suite.Require().NoError(err)
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var ts time.Time
		suite.Require().NoError(rows.Scan(&ts))
		times = append(times, ts.UTC())
	}

	suite.Require().Len(times, 4)
	for i, ts := range times {
		suite.Equal(suite.candle(i).Time, ts)
	}
}

func (suite *DuckDBWriterTestSuite) TestCloseIsIdempotent() {
	w := NewDuckDBWriter(filepath.Join(suite.dir, "x.parquet"))
	suite.Require().NoError(w.Initialize())

	suite.NoError(w.Close())
	suite.NoError(w.Close())
}
