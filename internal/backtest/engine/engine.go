package engine

import (
	"context"

	"github.com/mattxander12/forex-trader/internal/gate"
	"github.com/mattxander12/forex-trader/internal/ledger"
	"github.com/mattxander12/forex-trader/internal/sizing"
	"github.com/mattxander12/forex-trader/internal/types"
)

// Lifecycle callback types for a backtest run.
// Callbacks with an error return abort the run when they return an error.

// OnRunStartCallback is called once candles are loaded, before the bar loop.
type OnRunStartCallback func(runID string, instrument string, totalBars int) error

// OnProcessDataCallback is called after each bar of the loop.
type OnProcessDataCallback func(current int, total int) error

// OnRunEndCallback is called when the run ends, successfully or not.
type OnRunEndCallback func(stats types.RunStats, err error)

// LifecycleCallbacks holds the optional run callbacks. nil fields are skipped.
type LifecycleCallbacks struct {
	OnRunStart    *OnRunStartCallback
	OnProcessData *OnProcessDataCallback
	OnRunEnd      *OnRunEndCallback
}

// Emitter publishes the events of one run.
type Emitter interface {
	Emit(name string, payload any)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(name string, payload any)

func (f EmitterFunc) Emit(name string, payload any) {
	f(name, payload)
}

// NopEmitter discards every event.
var NopEmitter Emitter = EmitterFunc(func(string, any) {})

// RunConfig is the resolved configuration of one backtest.
type RunConfig struct {
	// ID identifies the run in events, logs and stats.
	ID          string
	Instrument  string
	Granularity types.Granularity
	// Count is the number of candles requested from the source.
	Count     int
	MAKind    types.MAKind
	Fast      int
	Slow      int
	ATRPeriod int

	StartBalance float64
	Ledger       ledger.Config
	Sizing       sizing.Config
	Gate         gate.Config

	// CalibrationPaths are tried in order; the first readable table wins.
	CalibrationPaths []string
	// ResultPath, when set, receives the run stats as YAML.
	ResultPath string
}

// Engine runs a backtest.
type Engine interface {
	// Run loads candles, simulates every bar and emits progress, trade and
	// result events. A fatal error is emitted as an "error" event and returned.
	Run(ctx context.Context, emitter Emitter, callbacks LifecycleCallbacks) (types.RunStats, error)
}
