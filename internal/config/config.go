// Package config loads the application configuration from YAML.
package config

import (
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mattxander12/forex-trader/internal/gate"
	"github.com/mattxander12/forex-trader/internal/types"
	"github.com/mattxander12/forex-trader/pkg/errors"
)

// Config is the full application configuration.
type Config struct {
	Paper     PaperConfig     `yaml:"paper" json:"paper" jsonschema:"title=Paper trading,description=Trade geometry and account settings"`
	Trading   TradingConfig   `yaml:"trading" json:"trading" jsonschema:"title=Trading,description=Instrument and indicator settings"`
	Execution ExecutionConfig `yaml:"execution" json:"execution"`
	Training  TrainingConfig  `yaml:"training" json:"training"`
	Filter    FilterConfig    `yaml:"filter" json:"filter" jsonschema:"title=Filter,description=Decision gate settings"`
	Hub       HubConfig       `yaml:"hub" json:"hub"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Data      DataConfig      `yaml:"data" json:"data"`
	Store     StoreConfig     `yaml:"store" json:"store"`
	Log       LogConfig       `yaml:"log" json:"log"`
}

type PaperConfig struct {
	Mode                 string  `yaml:"mode" json:"mode" default:"ATR" jsonschema:"enum=ATR,enum=PIPS,description=How the stop distance is derived"`
	Risk                 float64 `yaml:"risk" json:"risk" default:"1.0" validate:"gte=0" jsonschema:"description=ATR multiple of the stop distance in ATR mode"`
	RR                   float64 `yaml:"rr" json:"rr" default:"1.5" validate:"gt=0" jsonschema:"description=Reward to risk ratio"`
	ATRPeriod            int     `yaml:"atrPeriod" json:"atrPeriod" default:"14" validate:"min=1"`
	Pips                 float64 `yaml:"pips" json:"pips" default:"10" validate:"gte=0"`
	MaxOpenPerInstrument int     `yaml:"maxOpenPerInstrument" json:"maxOpenPerInstrument" default:"1" validate:"min=1"`
	StartBalance         float64 `yaml:"startBalance" json:"startBalance" default:"10000" validate:"gt=0"`
	Leverage             float64 `yaml:"leverage" json:"leverage" default:"50" validate:"gt=0"`
	StopATRMulti         float64 `yaml:"stopAtrMulti" json:"stopAtrMulti" default:"10" validate:"gt=0"`
	RiskFraction         float64 `yaml:"riskFraction" json:"riskFraction" default:"0.01" validate:"gte=0,lte=1"`

	riskMode types.RiskMode
}

type TradingConfig struct {
	Instrument  string `yaml:"instrument" json:"instrument" default:"EUR_USD" validate:"required"`
	Granularity string `yaml:"granularity" json:"granularity" default:"M5" validate:"required"`
	// Count is the number of candles a backtest requests.
	Count  int    `yaml:"count" json:"count" default:"5000" validate:"min=1"`
	Fast   int    `yaml:"fast" json:"fast" default:"10" validate:"min=1"`
	Slow   int    `yaml:"slow" json:"slow" default:"20" validate:"min=1"`
	MAType string `yaml:"maType" json:"maType" default:"SMA" jsonschema:"enum=SMA,enum=EMA,enum=HYBRID"`

	maKind      types.MAKind
	granularity types.Granularity
}

type ExecutionConfig struct {
	// SignalThreshold is the floor of the probability threshold.
	SignalThreshold float64 `yaml:"signalThreshold" json:"signalThreshold" default:"0.25" validate:"gte=0,lte=1"`
}

type TrainingConfig struct {
	Years        int     `yaml:"years" json:"years" default:"1" validate:"min=1"`
	ValSplit     float64 `yaml:"valSplit" json:"valSplit" default:"0.2" validate:"gte=0,lt=1"`
	LabelH       int     `yaml:"labelH" json:"labelH" default:"10" validate:"min=1"`
	Epochs       int     `yaml:"epochs" json:"epochs" default:"300" validate:"min=1"`
	LearningRate float64 `yaml:"learningRate" json:"learningRate" default:"0.1" validate:"gt=0"`
	L2           float64 `yaml:"l2" json:"l2" default:"0.0001" validate:"gte=0"`
	// ModelDir holds model and calibration files, one set per instrument and
	// granularity.
	ModelDir string `yaml:"modelDir" json:"modelDir" default:"models" validate:"required"`
}

type FilterConfig struct {
	EVMargin      float64 `yaml:"evMargin" json:"evMargin" default:"0"`
	EVMarginR     float64 `yaml:"evMarginR" json:"evMarginR" default:"0.30"`
	ATRWindow     int     `yaml:"atrWindow" json:"atrWindow" default:"20" validate:"min=1"`
	ATRPercentile float64 `yaml:"atrPercentile" json:"atrPercentile" default:"30" validate:"gte=0,lte=100"`
	Session       string  `yaml:"session" json:"session" default:"13:00-17:00Z" jsonschema:"description=UTC trading window such as 13:00-17:00Z"`
	RSILong       float64 `yaml:"rsiLong" json:"rsiLong" default:"55" validate:"gte=0,lte=100"`
	RSIShort      float64 `yaml:"rsiShort" json:"rsiShort" default:"45" validate:"gte=0,lte=100"`
	OnePerDay     bool    `yaml:"onePerDay" json:"onePerDay"`
	// CooldownBars defaults to one day of bars when zero.
	CooldownBars int `yaml:"cooldownBars" json:"cooldownBars" validate:"gte=0"`

	sessionStart int
	sessionEnd   int
}

type HubConfig struct {
	ReplayLimit       int           `yaml:"replayLimit" json:"replayLimit" default:"32" validate:"min=1"`
	Heartbeat         time.Duration `yaml:"heartbeat" json:"heartbeat" default:"10s" validate:"gt=0"`
	SubscriberTimeout time.Duration `yaml:"subscriberTimeout" json:"subscriberTimeout" default:"30m" validate:"gt=0"`
	CompleteGrace     time.Duration `yaml:"completeGrace" json:"completeGrace" default:"500ms" validate:"gte=0"`
	SubscriberBuffer  int           `yaml:"subscriberBuffer" json:"subscriberBuffer" default:"256" validate:"min=1"`
}

type ServerConfig struct {
	Addr              string        `yaml:"addr" json:"addr" default:":8080" validate:"required"`
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout" json:"readHeaderTimeout" default:"10s"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout" json:"shutdownTimeout" default:"15s"`
}

type DataConfig struct {
	Provider      string `yaml:"provider" json:"provider" default:"parquet" validate:"oneof=parquet binance polygon" jsonschema:"enum=parquet,enum=binance,enum=polygon"`
	Dir           string `yaml:"dir" json:"dir" default:"data"`
	PolygonAPIKey string `yaml:"polygonApiKey" json:"-" validate:"required_if=Provider polygon"`
}

type StoreConfig struct {
	Kind  string      `yaml:"kind" json:"kind" default:"memory" validate:"oneof=memory redis" jsonschema:"enum=memory,enum=redis"`
	Redis RedisConfig `yaml:"redis" json:"redis"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" json:"addr" default:"localhost:6379"`
	Password string        `yaml:"password" json:"-"`
	DB       int           `yaml:"db" json:"db" validate:"gte=0"`
	Prefix   string        `yaml:"prefix" json:"prefix" default:"forex-trader"`
	TTL      time.Duration `yaml:"ttl" json:"ttl" default:"24h"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level" default:"info" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// Default returns a validated configuration made of defaults only.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(err)
	}

	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	return cfg
}

// Load reads path over the defaults and validates the result. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to apply configuration defaults", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Wrapf(errors.ErrCodeConfigNotFound, err, "config file %s not found", path)
			}

			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse config file %s", path)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints and resolves the typed values derived
// from strings.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	if c.Trading.Fast >= c.Trading.Slow {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"trading.fast (%d) must be shorter than trading.slow (%d)", c.Trading.Fast, c.Trading.Slow)
	}

	kind, err := types.ParseMAKind(c.Trading.MAType)
	if err != nil {
		return err
	}

	granularity, err := types.ParseGranularity(c.Trading.Granularity)
	if err != nil {
		return err
	}

	mode, err := types.ParseRiskMode(c.Paper.Mode)
	if err != nil {
		return err
	}

	c.Trading.maKind = kind
	c.Trading.MAType = kind.String()
	c.Trading.granularity = granularity
	c.Trading.Granularity = string(granularity)
	c.Paper.riskMode = mode
	c.Paper.Mode = string(mode)
	c.Filter.sessionStart, c.Filter.sessionEnd = gate.ParseSession(c.Filter.Session)

	if c.Filter.sessionStart < 0 || c.Filter.sessionEnd > 24 || c.Filter.sessionStart >= c.Filter.sessionEnd {
		return errors.Newf(errors.ErrCodeInvalidSession, "invalid session window %q", c.Filter.Session)
	}

	return nil
}

// Clone returns a copy of c.
func (c *Config) Clone() *Config {
	clone := *c

	return &clone
}

// RiskMode is the resolved paper.mode.
func (p PaperConfig) RiskMode() types.RiskMode {
	return p.riskMode
}

// MAKind is the resolved trading.maType.
func (t TradingConfig) MAKind() types.MAKind {
	return t.maKind
}

// Interval is the resolved trading.granularity.
func (t TradingConfig) Interval() types.Granularity {
	return t.granularity
}

// SessionHours returns the UTC [start, end) hours of filter.session.
func (f FilterConfig) SessionHours() (start, end int) {
	return f.sessionStart, f.sessionEnd
}
