package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/mattxander12/forex-trader/internal/api"
	"github.com/mattxander12/forex-trader/internal/config"
	"github.com/mattxander12/forex-trader/internal/hub"
	"github.com/mattxander12/forex-trader/internal/job"
	"github.com/mattxander12/forex-trader/internal/logger"
	"github.com/mattxander12/forex-trader/internal/metrics"
	"github.com/mattxander12/forex-trader/internal/runner"
	"github.com/mattxander12/forex-trader/internal/version"
	"github.com/mattxander12/forex-trader/pkg/errors"
	"github.com/mattxander12/forex-trader/pkg/marketdata/provider"
)

// newStore opens the result store named by cfg.
func newStore(cfg config.StoreConfig) (job.ResultStore, error) {
	switch cfg.Kind {
	case "redis":
		return job.NewRedisStore(job.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.TTL,
		})
	case "memory", "":
		return job.NewMemoryStore(), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported result store: %s", cfg.Kind)
	}
}

func hubConfig(cfg config.HubConfig) hub.Config {
	return hub.Config{
		ReplayLimit:       cfg.ReplayLimit,
		Heartbeat:         cfg.Heartbeat,
		SubscriberTimeout: cfg.SubscriberTimeout,
		CompleteGrace:     cfg.CompleteGrace,
		SubscriberBuffer:  cfg.SubscriberBuffer,
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	if addr := cmd.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	log, err := logger.NewLoggerWithLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(registry)

	source, err := provider.NewProvider(provider.ProviderType(cfg.Data.Provider), provider.Options{
		DataDir:       cfg.Data.Dir,
		PolygonAPIKey: cfg.Data.PolygonAPIKey,
		Logger:        log,
	})
	if err != nil {
		return err
	}

	if closer, ok := source.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	store, err := newStore(cfg.Store)
	if err != nil {
		return err
	}

	defer func() { _ = store.Close() }()

	events := hub.NewHub(hubConfig(cfg.Hub), recorder, log)
	events.Start(ctx)

	defer events.Stop()

	dispatcher := job.NewDispatcher(recorder, log)
	server := api.NewServer(api.Deps{
		Runner:     runner.New(cfg, source, events, store, recorder, log),
		Dispatcher: dispatcher,
		Hub:        events,
		Metrics:    recorder,
		Gatherer:   registry,
		Logger:     log,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	serveErr := make(chan error, 1)

	go func() {
		log.Info("Server listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("version", version.Version),
			zap.String("provider", cfg.Data.Provider),
			zap.String("store", cfg.Store.Kind),
		)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}

		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", zap.Error(err))
	}

	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Warn("Jobs still running at shutdown", zap.Error(err))
	}

	return nil
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	data, err := config.SchemaJSON()
	if err != nil {
		return err
	}

	_, err = cmd.Root().Writer.Write(append(data, '\n'))

	return err
}

func main() {
	cmd := &cli.Command{
		Name:    "forex-trader",
		Usage:   "Backtest and training service for the forex signal model",
		Version: version.Version,
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the YAML configuration; defaults are used when empty",
						Sources: cli.EnvVars("FOREX_TRADER_CONFIG"),
					},
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address, overrides server.addr",
					},
				},
				Action: serveAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the configuration",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
