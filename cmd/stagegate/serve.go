package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/stagegate/stagegate/internal/config"
	"github.com/stagegate/stagegate/internal/httpserv"
	"github.com/stagegate/stagegate/internal/metrics"
	"github.com/stagegate/stagegate/internal/service"
	"github.com/stagegate/stagegate/pkg/controller"
	"github.com/stagegate/stagegate/pkg/events"
	"github.com/stagegate/stagegate/pkg/verify"
)

// handleServe implements `stagegate serve`: the NATS job service plus
// HTTP health/metrics/event endpoints, with an optional Redis event
// stream sink.
func handleServe(args []string) error {
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	registry, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	store, cleanup, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer cleanup()

	verifier := verify.New(registry, store)
	bus := events.NewMemoryBus(cfg.History.MaxEntries)
	m := metrics.New("stagegate")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional Redis event stream.
	if cfg.Redis.Addr != "" {
		sink, err := events.NewRedisSink(cfg.Redis.Addr, cfg.Redis.Stream, cfg.Redis.MaxLen)
		if err != nil {
			return fmt.Errorf("redis sink: %w", err)
		}
		defer sink.Close()
		go events.Forward(ctx, bus, sink,
			func(ev events.Event) {
				m.EventPublish.WithLabelValues(string(ev.Type)).Inc()
			},
			func(err error) {
				m.EventPublishErrors.Inc()
				logger.Warn("event sink", zap.Error(err))
			})
		logger.Info("redis event sink enabled",
			zap.String("addr", cfg.Redis.Addr),
			zap.String("stream", cfg.Redis.Stream))
	}

	// NATS job service.
	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name("stagegate"),
		nats.MaxReconnects(-1))
	if err != nil {
		return fmt.Errorf("connect NATS %s: %w", cfg.NATS.URL, err)
	}
	defer nc.Close()

	// Stage jobs need a producer command; without one the service still
	// answers verify and precheck jobs.
	var ctrl *controller.Controller
	if cfg.Invoker.Command != "" {
		invoker := &controller.ExecInvoker{
			Command: strings.Fields(cfg.Invoker.Command),
			Dir:     cfg.Invoker.Dir,
		}
		ctrl = controller.New(verifier, invoker,
			controller.WithBudget(cfg.Budget),
			controller.WithLogger(logger),
			controller.WithBus(bus))
		logger.Info("stage jobs enabled", zap.String("command", cfg.Invoker.Command))
	}

	svc := service.New(nc, verifier, ctrl, service.Config{
		Subject:       cfg.NATS.Subject,
		ResultSubject: cfg.NATS.ResultSubject,
		Queue:         cfg.NATS.Queue,
	}, logger, m)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	// HTTP endpoints.
	httpSrv := httpserv.New(bus, verifier, m, logger)
	httpSrv.Start(cfg.HTTP.Addr)

	logger.Info("stagegate serving",
		zap.String("nats", cfg.NATS.URL),
		zap.String("http", cfg.HTTP.Addr))

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
