// v3
// cmd/metersim/main.go

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"

	"github.com/vpp-edge/metersim/internal/api"
	"github.com/vpp-edge/metersim/internal/broker"
	"github.com/vpp-edge/metersim/internal/config"
	"github.com/vpp-edge/metersim/internal/dataset"
	"github.com/vpp-edge/metersim/internal/logging"
	"github.com/vpp-edge/metersim/internal/mirror"
	"github.com/vpp-edge/metersim/internal/observability"
	"github.com/vpp-edge/metersim/internal/replay"
	"github.com/vpp-edge/metersim/internal/state"
	"github.com/vpp-edge/metersim/internal/telemetry"
)

func main() {
	logger := logging.Init()
	logger.Info("smart meter replay publisher starting")

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Error("config error", "err", err)
		os.Exit(1)
	}

	ds, err := dataset.Load(cfg.CSVPath, logger)
	if err != nil {
		logger.Error("dataset load failed", "err", err)
		os.Exit(1)
	}
	for _, col := range telemetry.ExpectedColumns {
		if !ds.HasColumn(col) {
			logger.Warn("column not found in dataset, will default to 0.0", "column", col)
		}
	}

	store := state.New(ds.Len())
	metrics := observability.NewMetrics(nil)
	mgr := broker.New(cfg, store, metrics, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info("shutdown signal received")
		cancel()
	}()

	logger.Info("connecting to broker", "url", cfg.BrokerURL())
	if err := mgr.ConnectBlocking(ctx); err != nil {
		logger.Error("startup cancelled before broker connect", "err", err)
		os.Exit(1)
	}

	builder := telemetry.NewBuilder(cfg.AssetID, cfg.NominalFreqHz)

	var payloadMirror replay.PayloadMirror
	if len(cfg.KafkaBrokers) > 0 {
		km := mirror.New(cfg.KafkaBrokers, cfg.MirrorTopic, logger)
		defer km.Close()
		payloadMirror = km
		logger.Info("kafka mirror enabled", "topic", cfg.MirrorTopic, "brokers", cfg.KafkaBrokers)
	}

	loop := replay.NewLoop(ds, builder, mgr, payloadMirror, store, metrics, cfg.PublishInterval, logger)
	go loop.Run(ctx)
	logger.Info("replay started", "interval", cfg.PublishInterval.String(), "topic", cfg.Topic)

	router := api.NewServer(cfg, store, ds, metrics, logger).Router()
	srv := &http.Server{Addr: cfg.HTTPBind, Handler: handlers.LoggingHandler(os.Stdout, router)}
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPBind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	_ = srv.Shutdown(context.Background())
	mgr.Close()
	time.Sleep(300 * time.Millisecond)
	logger.Info("shutdown complete")
}
