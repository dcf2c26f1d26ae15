package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/schollz/progressbar/v3"
	"github.com/stretchr/testify/suite"
	"github.com/urfave/cli/v3"

	"github.com/mattxander12/forex-trader/internal/types"
	"github.com/mattxander12/forex-trader/pkg/errors"
	"github.com/mattxander12/forex-trader/pkg/marketdata"
)

type DownloadTestSuite struct {
	suite.Suite
}

func TestDownloadSuite(t *testing.T) {
	suite.Run(t, new(DownloadTestSuite))
}

func (suite *DownloadTestSuite) parse(args ...string) (marketdata.DownloadParams, error) {
	var (
		params marketdata.DownloadParams
		err    error
	)

	cmd := &cli.Command{
		Name: "download",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "instrument"},
			&cli.StringFlag{Name: "granularity", Value: "M5"},
			&cli.TimestampFlag{Name: "start", Config: cli.TimestampConfig{Layouts: []string{"2006-01-02"}}},
			&cli.TimestampFlag{Name: "end", Config: cli.TimestampConfig{Layouts: []string{"2006-01-02"}}},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			params, err = downloadParams(cmd)

			return nil
		},
	}

	suite.Require().NoError(cmd.Run(context.Background(), append([]string{"download"}, args...)))

	return params, err
}

func (suite *DownloadTestSuite) TestDownloadParams() {
	params, err := suite.parse("--instrument", "EUR_USD", "--granularity", "h1", "--start", "2024-01-01", "--end", "2024-02-01")
	suite.Require().NoError(err)

	suite.Equal("EUR_USD", params.Instrument)
	suite.Equal(types.GranularityH1, params.Granularity)
	suite.Equal(2024, params.StartDate.Year())
	suite.Equal(1, int(params.EndDate.Month()-params.StartDate.Month()))
}

func (suite *DownloadTestSuite) TestDownloadParamsErrors() {
	_, err := suite.parse("--instrument", "EUR_USD", "--granularity", "W1", "--start", "2024-01-01", "--end", "2024-02-01")
	suite.Equal(errors.ErrCodeInvalidGranularity, errors.GetCode(err))

	_, err = suite.parse("--instrument", "EUR_USD", "--start", "2024-02-01", "--end", "2024-01-01")
	suite.Equal(errors.ErrCodeInvalidParameter, errors.GetCode(err))
}

func (suite *DownloadTestSuite) TestProgressReporter() {
	bar := progressbar.NewOptions(-1, progressbar.OptionSetWriter(&bytes.Buffer{}))
	report := progressReporter(bar)

	report(10, 40, "page 1")
	suite.Equal(40, bar.GetMax())
	suite.Equal(int64(10), bar.State().CurrentNum)

	report(20, 0, "")
	suite.Equal(40, bar.GetMax())
	suite.Equal(int64(20), bar.State().CurrentNum)
}
