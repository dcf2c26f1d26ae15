package config

import (
	"strings"

	"github.com/mattxander12/forex-trader/pkg/errors"
)

// Overrides are per-request changes to the loaded configuration. Unset fields
// keep the configured value.
type Overrides struct {
	Instrument  string   `json:"instrument,omitempty" jsonschema:"description=Instrument such as EUR_USD"`
	Granularity string   `json:"granularity,omitempty" jsonschema:"description=Candle granularity such as M5"`
	Count       *int     `json:"count,omitempty" jsonschema:"minimum=1"`
	RR          *float64 `json:"rr,omitempty"`
	Risk        *float64 `json:"risk,omitempty"`
	Mode        string   `json:"mode,omitempty" jsonschema:"enum=ATR,enum=PIPS"`
	Years       *int     `json:"years,omitempty" jsonschema:"minimum=1"`
}

// Apply returns a validated copy of base with o applied. base is unchanged.
func (o Overrides) Apply(base *Config) (*Config, error) {
	cfg := base.Clone()

	if s := strings.TrimSpace(o.Instrument); s != "" {
		cfg.Trading.Instrument = strings.ToUpper(s)
	}

	if o.Granularity != "" {
		cfg.Trading.Granularity = o.Granularity
	}

	if o.Count != nil {
		cfg.Trading.Count = *o.Count
	}

	if o.RR != nil {
		cfg.Paper.RR = *o.RR
	}

	if o.Risk != nil {
		cfg.Paper.Risk = *o.Risk
	}

	if o.Mode != "" {
		cfg.Paper.Mode = o.Mode
	}

	if o.Years != nil {
		cfg.Training.Years = *o.Years
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRequest, "invalid overrides", err)
	}

	return cfg, nil
}
