// Command analytics starts the standalone analytics aggregation service.
//
// It consumes recommendation and refresh events from Kafka, aggregates them
// in memory (request totals, latency percentiles, cache hit rate, top
// queries, zero-result queries, most recommended restaurants), and exposes
// GET /api/v1/analytics for dashboards. When PostgreSQL is reachable the
// totals are snapshotted periodically, restored on startup and served at
// GET /api/v1/analytics/history.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/postgres"
)

// main boots the standalone analytics service: it restores the last
// snapshot, starts the Kafka consumer feeding the aggregator, registers a
// health checker, and serves the HTTP API. Graceful shutdown is triggered
// by SIGINT/SIGTERM.
func main() {
	configPath := flag.String("config", "", "path to config file (defaults and RR_* env when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)
	if !cfg.Kafka.Enabled() {
		slog.Error("analytics service requires kafka brokers")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agg := analytics.NewAggregator()
	checker := health.NewChecker()

	var history analytics.SnapshotLister
	snapshotsDone := make(chan struct{})
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		close(snapshotsDone)
		checker.Register("postgres", health.PingCheck(nil, false))
	} else {
		defer db.Close()
		store := aggregator.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare analytics schema", "error", err)
			os.Exit(1)
		}
		if _, err := store.Restore(ctx, agg); err != nil {
			slog.Warn("failed to restore analytics snapshot", "error", err)
		}
		go func() {
			defer close(snapshotsDone)
			store.Run(ctx, agg, cfg.Analytics.SnapshotInterval, cfg.Analytics.SnapshotRetention)
		}()
		history = store
		checker.Register("postgres", health.PingCheck(db, false))
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.RecommendEvents, cfg.Kafka.ConsumerGroup, agg.HandleEvent)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()
	slog.Info("analytics consumer started", "topic", cfg.Kafka.Topics.RecommendEvents, "group", cfg.Kafka.ConsumerGroup)

	analyticsHandler := analytics.NewHandler(agg, history)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analyticsHandler.Stats)
	mux.HandleFunc("GET /api/v1/analytics/history", analyticsHandler.History)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowOrigins...))(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	<-snapshotsDone
	slog.Info("analytics service stopped")
}
