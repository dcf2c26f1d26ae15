package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mattxander12/forex-trader/internal/types"
	"github.com/mattxander12/forex-trader/pkg/errors"
)

type ConfigTestSuite struct {
	suite.Suite
	dir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
}

func (suite *ConfigTestSuite) write(content string) string {
	path := filepath.Join(suite.dir, "config.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0o600))

	return path
}

func (suite *ConfigTestSuite) TestDefaults() {
	cfg, err := Load("")
	suite.Require().NoError(err)

	suite.Equal("ATR", cfg.Paper.Mode)
	suite.Equal(types.RiskModeATR, cfg.Paper.RiskMode())
	suite.Equal(1.0, cfg.Paper.Risk)
	suite.Equal(1.5, cfg.Paper.RR)
	suite.Equal(14, cfg.Paper.ATRPeriod)
	suite.Equal(10.0, cfg.Paper.Pips)
	suite.Equal(1, cfg.Paper.MaxOpenPerInstrument)
	suite.Equal(10000.0, cfg.Paper.StartBalance)
	suite.Equal(50.0, cfg.Paper.Leverage)
	suite.Equal(10.0, cfg.Paper.StopATRMulti)
	suite.Equal(0.01, cfg.Paper.RiskFraction)

	suite.Equal("EUR_USD", cfg.Trading.Instrument)
	suite.Equal(types.GranularityM5, cfg.Trading.Interval())
	suite.Equal(10, cfg.Trading.Fast)
	suite.Equal(20, cfg.Trading.Slow)
	suite.Equal(types.MAKindSMA, cfg.Trading.MAKind())

	suite.Equal(0.25, cfg.Execution.SignalThreshold)
	suite.Equal(1, cfg.Training.Years)
	suite.Equal(0.2, cfg.Training.ValSplit)
	suite.Equal(10, cfg.Training.LabelH)

	suite.Equal(0.0, cfg.Filter.EVMargin)
	suite.Equal(0.30, cfg.Filter.EVMarginR)
	suite.Equal(20, cfg.Filter.ATRWindow)
	suite.Equal(30.0, cfg.Filter.ATRPercentile)
	suite.Equal(55.0, cfg.Filter.RSILong)
	suite.Equal(45.0, cfg.Filter.RSIShort)
	suite.False(cfg.Filter.OnePerDay)

	start, end := cfg.Filter.SessionHours()
	suite.Equal(13, start)
	suite.Equal(17, end)

	suite.Equal(32, cfg.Hub.ReplayLimit)
	suite.Equal(10*time.Second, cfg.Hub.Heartbeat)
	suite.Equal(30*time.Minute, cfg.Hub.SubscriberTimeout)
	suite.Equal(500*time.Millisecond, cfg.Hub.CompleteGrace)
	suite.Equal(":8080", cfg.Server.Addr)
	suite.Equal("memory", cfg.Store.Kind)
	suite.Equal("info", cfg.Log.Level)

	suite.Equal(cfg, Default())
}

func (suite *ConfigTestSuite) TestLoadOverridesDefaults() {
	path := suite.write(`
paper:
  mode: pips
  rr: 2
trading:
  instrument: USD_JPY
  granularity: h1
  maType: hybrid
filter:
  session: "07:00-16:00Z"
  onePerDay: true
hub:
  heartbeat: 2s
store:
  kind: redis
  redis:
    addr: redis:6379
`)

	cfg, err := Load(path)
	suite.Require().NoError(err)

	suite.Equal(types.RiskModePips, cfg.Paper.RiskMode())
	suite.Equal("PIPS", cfg.Paper.Mode)
	suite.Equal(2.0, cfg.Paper.RR)
	suite.Equal(1.0, cfg.Paper.Risk, "unset keys keep their defaults")
	suite.Equal("USD_JPY", cfg.Trading.Instrument)
	suite.Equal(types.GranularityH1, cfg.Trading.Interval())
	suite.Equal(types.MAKindHybrid, cfg.Trading.MAKind())
	suite.Equal("HYBRID", cfg.Trading.MAType)
	suite.True(cfg.Filter.OnePerDay)
	suite.Equal(2*time.Second, cfg.Hub.Heartbeat)
	suite.Equal("redis:6379", cfg.Store.Redis.Addr)
	suite.Equal("forex-trader", cfg.Store.Redis.Prefix)

	start, end := cfg.Filter.SessionHours()
	suite.Equal(7, start)
	suite.Equal(16, end)
}

func (suite *ConfigTestSuite) TestLoadErrors() {
	testCases := []struct {
		name       string
		content    string
		expectCode errors.ErrorCode
	}{
		{name: "malformed yaml", content: "paper: [", expectCode: errors.ErrCodeInvalidConfiguration},
		{name: "negative rr", content: "paper:\n  rr: -1\n", expectCode: errors.ErrCodeInvalidConfiguration},
		{name: "unknown ma type", content: "trading:\n  maType: WMA\n", expectCode: errors.ErrCodeInvalidMAKind},
		{name: "unknown granularity", content: "trading:\n  granularity: M7\n", expectCode: errors.ErrCodeInvalidGranularity},
		{name: "unknown risk mode", content: "paper:\n  mode: FIXED\n", expectCode: errors.ErrCodeInvalidRiskMode},
		{name: "fast not below slow", content: "trading:\n  fast: 30\n  slow: 20\n", expectCode: errors.ErrCodeInvalidConfiguration},
		{name: "inverted session", content: "filter:\n  session: 17:00-13:00Z\n", expectCode: errors.ErrCodeInvalidSession},
		{name: "polygon without key", content: "data:\n  provider: polygon\n", expectCode: errors.ErrCodeInvalidConfiguration},
		{name: "unknown store", content: "store:\n  kind: sqlite\n", expectCode: errors.ErrCodeInvalidConfiguration},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			_, err := Load(suite.write(tc.content))
			suite.Require().Error(err)
			suite.Equal(tc.expectCode, errors.GetCode(err))
		})
	}
}

func (suite *ConfigTestSuite) TestLoadMissingFile() {
	_, err := Load(filepath.Join(suite.dir, "missing.yaml"))
	suite.Equal(errors.ErrCodeConfigNotFound, errors.GetCode(err))
}

func (suite *ConfigTestSuite) TestOverrides() {
	base := Default()
	count := 1200
	rr := 2.5
	years := 3

	cfg, err := Overrides{
		Instrument:  " gbp_usd ",
		Granularity: "H4",
		Count:       &count,
		RR:          &rr,
		Mode:        "PIPS",
		Years:       &years,
	}.Apply(base)
	suite.Require().NoError(err)

	suite.Equal("GBP_USD", cfg.Trading.Instrument)
	suite.Equal(types.GranularityH4, cfg.Trading.Interval())
	suite.Equal(1200, cfg.Trading.Count)
	suite.Equal(2.5, cfg.Paper.RR)
	suite.Equal(types.RiskModePips, cfg.Paper.RiskMode())
	suite.Equal(3, cfg.Training.Years)

	suite.Equal("EUR_USD", base.Trading.Instrument, "base is not modified")
	suite.Equal(1.5, base.Paper.RR)

	same, err := Overrides{}.Apply(base)
	suite.Require().NoError(err)
	suite.Equal(base, same)
}

func (suite *ConfigTestSuite) TestOverridesRejectInvalidValues() {
	zero := 0.0

	_, err := Overrides{RR: &zero}.Apply(Default())
	suite.Equal(errors.ErrCodeInvalidRequest, errors.GetCode(err))

	_, err = Overrides{Granularity: "M7"}.Apply(Default())
	suite.Equal(errors.ErrCodeInvalidRequest, errors.GetCode(err))
}

func (suite *ConfigTestSuite) TestOverridesJSON() {
	var o Overrides
	suite.Require().NoError(json.Unmarshal([]byte(`{"instrument":"EUR_USD","count":900,"risk":0}`), &o))

	suite.Require().NotNil(o.Count)
	suite.Equal(900, *o.Count)
	suite.Require().NotNil(o.Risk, "an explicit zero is kept")
	suite.Equal(0.0, *o.Risk)
	suite.Nil(o.RR)
}

func (suite *ConfigTestSuite) TestSchema() {
	data, err := SchemaJSON()
	suite.Require().NoError(err)

	var schema map[string]any
	suite.Require().NoError(json.Unmarshal(data, &schema))

	properties, ok := schema["properties"].(map[string]any)
	suite.Require().True(ok)
	suite.Contains(properties, "paper")
	suite.Contains(properties, "filter")
	suite.Contains(properties, "hub")

	hub, ok := properties["hub"].(map[string]any)
	suite.Require().True(ok)

	hubProps, ok := hub["properties"].(map[string]any)
	suite.Require().True(ok)

	heartbeat, ok := hubProps["heartbeat"].(map[string]any)
	suite.Require().True(ok)
	suite.Equal("string", heartbeat["type"])
}
