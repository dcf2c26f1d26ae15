package training

import (
	"context"

	"go.uber.org/zap"

	"github.com/mattxander12/forex-trader/internal/backtest/engine"
	"github.com/mattxander12/forex-trader/internal/classifier"
	"github.com/mattxander12/forex-trader/internal/logger"
	"github.com/mattxander12/forex-trader/internal/types"
	"github.com/mattxander12/forex-trader/pkg/errors"
	"github.com/mattxander12/forex-trader/pkg/marketdata/provider"
)

// LoadOrTrain returns the model saved at config.ModelPath when it was trained
// with the same feature signature, and trains and saves a new one otherwise.
// Training progress goes to emitter; the training result is reported as a
// "trained" progress event so it does not stand in for the caller's result.
func LoadOrTrain(ctx context.Context, config Config, source provider.Provider, emitter engine.Emitter, log *logger.Logger) (*classifier.Logistic, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	file, err := classifier.LoadModel(config.ModelPath, config.Signature())
	if err == nil {
		log.Info("Loaded model", zap.String("path", config.ModelPath), zap.String("signature", file.Signature))

		return file.Model, nil
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeModelLoadFailed, errors.ErrCodeSignatureMismatch, errors.ErrCodeVersionMismatch:
		log.Info("Model unusable, retraining", zap.String("path", config.ModelPath), zap.Error(err))
	default:
		return nil, err
	}

	if emitter == nil {
		emitter = engine.NopEmitter
	}

	forward := engine.EmitterFunc(func(name string, payload any) {
		if result, ok := payload.(Result); ok && name == types.EventResult {
			emitter.Emit(types.EventProgress, TrainedPayload{Phase: PhaseTrained, Result: result})

			return
		}

		emitter.Emit(name, payload)
	})

	result, err := NewTrainer(config, source, log).Run(ctx, forward)
	if err != nil {
		return nil, err
	}

	return result.Model, nil
}
