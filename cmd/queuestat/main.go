// Command queuestat publishes the pipeline's worker counters and queue sizes
// from Redis as Prometheus gauges.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vnykmshr/queuestat/internal/config"
	"github.com/vnykmshr/queuestat/internal/server"
	"github.com/vnykmshr/queuestat/pkg/metrics"
	"github.com/vnykmshr/queuestat/pkg/sampler"
	"github.com/vnykmshr/queuestat/pkg/schedule"
	"github.com/vnykmshr/queuestat/pkg/store"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr, nil); err != nil {
		fmt.Fprintln(os.Stderr, "queuestat:", err)
		os.Exit(1)
	}
}

// run wires the exporter and blocks until ctx is canceled. ready, if set,
// receives the bound listen address once the server is up.
func run(ctx context.Context, args []string, logOut io.Writer, ready func(addr string)) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	logger := cfg.NewLogger(logOut)
	slog.SetDefault(logger)

	client := store.NewClient(store.ClientOptions{
		Addrs:    cfg.Addrs(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Timeout:  cfg.Redis.Timeout,
	})
	redisStore, err := store.NewRedis(store.Config{Redis: client, Timeout: cfg.Redis.Timeout})
	if err != nil {
		_ = client.Close()
		return err
	}
	defer func() {
		if err := redisStore.Close(); err != nil {
			logger.Warn("Failed to close Redis client", "error", err)
		}
	}()

	if err := redisStore.Ping(ctx); err != nil {
		logger.Warn("Redis not reachable yet, sampling will retry every cycle",
			"addrs", cfg.Addrs(),
			"error", err)
	}

	registry := metrics.NewRegistry(metrics.Config{
		Namespace:   cfg.Namespace,
		SelfMetrics: cfg.SelfMetrics,
	})

	smp, err := sampler.New(sampler.Config{
		Store:        redisStore,
		Metrics:      registry,
		WorkStatsKey: cfg.WorkStatsKey,
		QueueKeys:    cfg.Queues,
		Logger:       logger,
		Observer:     registry,
	})
	if err != nil {
		return err
	}

	sched, err := cfg.Schedule()
	if err != nil {
		return err
	}
	runner, err := schedule.NewRunner(smp, schedule.Config{Schedule: sched, Logger: logger})
	if err != nil {
		return err
	}

	srv := server.New(server.Options{
		Addr:    cfg.Listen,
		Handler: registry.Handler(logger),
		Logger:  logger,
	})
	if err := srv.Start(); err != nil {
		return err
	}
	if ready != nil {
		ready(srv.Addr())
	}

	if err := runner.Start(ctx); err != nil {
		_ = srv.Shutdown(context.Background())
		return err
	}

	logger.Info("queuestat started",
		"listen", srv.Addr(),
		"work_stats_key", cfg.WorkStatsKey,
		"queues", len(cfg.Queues),
		"schedule", sched.String())

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Metrics server shutdown failed", "error", err)
	}
	if err := runner.Stop(); err != nil {
		logger.Error("Scheduler shutdown failed", "error", err)
	}

	stats := smp.Stats()
	logger.Info("queuestat stopped",
		"cycles", stats.Cycles,
		"store_errors", stats.StoreErrors,
		"parse_errors", stats.ParseErrors)
	return nil
}
