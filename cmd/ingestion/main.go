// Command ingestion starts the catalog import HTTP service.
//
// The service accepts a full restaurant catalog via POST /api/v1/catalog,
// validates every record, stores it in PostgreSQL and publishes a
// catalog-refresh event so each recommender reloads. Re-importing an
// identical catalog is a no-op. It provides a health endpoint at
// GET /health.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml]
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

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog/pgstore"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/postgres"
)

// main loads configuration, connects to PostgreSQL, creates the Kafka producer,
// wires up the import handler, and starts the HTTP server. Graceful shutdown
// is triggered by SIGINT/SIGTERM.
func main() {
	configPath := flag.String("config", "", "path to config file (defaults and RR_* env when empty)")
	flag.Parse()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting catalog import service", "port", cfg.Server.Port)

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to postgres")

	var events publisher.EventPublisher
	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CatalogRefresh)
		defer producer.Close()
		events = producer
		slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.CatalogRefresh)
	} else {
		slog.Warn("kafka not configured, imports will not trigger recommender refreshes")
	}

	store := pgstore.New(db)
	if err := store.EnsureSchema(context.Background()); err != nil {
		slog.Error("failed to prepare catalog schema", "error", err)
		os.Exit(1)
	}

	pub := publisher.New(store, events)
	h := handler.New(pub)

	checker := health.NewChecker()
	checker.Register("postgres", health.PingCheck(db, true))

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/catalog", h.Import)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()
	slog.Info("catalog import service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("catalog import service stopped")
}
