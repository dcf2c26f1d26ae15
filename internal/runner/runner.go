// Package runner turns configuration into backtest and training jobs whose
// events flow through the hub.
package runner

import (
	"context"

	"go.uber.org/zap"

	"github.com/mattxander12/forex-trader/internal/backtest/engine"
	enginev1 "github.com/mattxander12/forex-trader/internal/backtest/engine/engine_v1"
	"github.com/mattxander12/forex-trader/internal/config"
	"github.com/mattxander12/forex-trader/internal/hub"
	"github.com/mattxander12/forex-trader/internal/job"
	"github.com/mattxander12/forex-trader/internal/logger"
	"github.com/mattxander12/forex-trader/internal/training"
	"github.com/mattxander12/forex-trader/internal/types"
	"github.com/mattxander12/forex-trader/pkg/marketdata/provider"
)

// Recorder observes run outcomes.
type Recorder interface {
	GateRejections(rejections map[string]int)
	TradeClosed(status types.TradeStatus)
}

type nopRecorder struct{}

func (nopRecorder) GateRejections(map[string]int) {}
func (nopRecorder) TradeClosed(types.TradeStatus) {}

type Runner struct {
	config   *config.Config
	source   provider.Provider
	hub      *hub.Hub
	store    job.ResultStore
	recorder Recorder
	log      *logger.Logger
}

func New(cfg *config.Config, source provider.Provider, h *hub.Hub, store job.ResultStore, recorder Recorder, log *logger.Logger) *Runner {
	if recorder == nil {
		recorder = nopRecorder{}
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	if store == nil {
		store = job.NewMemoryStore()
	}

	return &Runner{
		config:   cfg,
		source:   source,
		hub:      h,
		store:    store,
		recorder: recorder,
		log:      log,
	}
}

// Config returns the base configuration.
func (r *Runner) Config() *config.Config {
	return r.config
}

// Store returns the store that receives final payloads.
func (r *Runner) Store() job.ResultStore {
	return r.store
}

// Backtest validates overrides and returns a job that trains a model when
// none matches, then runs the backtest.
func (r *Runner) Backtest(overrides config.Overrides) (job.Func, error) {
	cfg, err := overrides.Apply(r.config)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, jobID string) error {
		defer r.hub.Complete(jobID)

		emitter := r.emitter(ctx, jobID)

		model, err := training.LoadOrTrain(ctx, TrainingConfig(cfg, jobID), r.source, emitter, r.log)
		if err != nil {
			return err
		}

		stats, err := enginev1.NewBacktestEngineV1(BacktestConfig(cfg, jobID), r.source, model, r.log).
			Run(ctx, emitter, engine.LifecycleCallbacks{})
		r.recorder.GateRejections(stats.Rejections)

		return err
	}, nil
}

// Train validates overrides and returns a job that always trains a new model.
func (r *Runner) Train(overrides config.Overrides) (job.Func, error) {
	cfg, err := overrides.Apply(r.config)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, jobID string) error {
		defer r.hub.Complete(jobID)

		_, err := training.NewTrainer(TrainingConfig(cfg, jobID), r.source, r.log).Run(ctx, r.emitter(ctx, jobID))

		return err
	}, nil
}

// emitter forwards events to the hub, counts closed trades and keeps the
// final payload in the store.
func (r *Runner) emitter(ctx context.Context, jobID string) engine.Emitter {
	target := r.hub.Emitter(jobID)

	return engine.EmitterFunc(func(name string, payload any) {
		target.Emit(name, payload)

		switch name {
		case types.EventTrade:
			if trade, ok := payload.(engine.TradePayload); ok {
				r.recorder.TradeClosed(trade.Status)
			}
		case types.EventResult, types.EventError:
			if err := r.store.Put(context.WithoutCancel(ctx), jobID, payload); err != nil {
				r.log.Warn("Failed to store job result", zap.String("job_id", jobID), zap.Error(err))
			}
		}
	})
}
