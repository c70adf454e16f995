// Command recommender serves restaurant recommendations.
//
// It loads the catalog from a JSON file or PostgreSQL, builds the relevance
// index, and answers POST /api/v1/recommend. Catalog reloads arrive through
// POST /api/v1/refresh or, when Kafka is configured, as catalog-refresh
// events published by the ingestion service. Results are cached in Redis
// when enabled and every answered request is reported to the analytics
// topic.
//
// Usage:
//
//	go run ./cmd/recommender [-config configs/development.yaml]
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
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog/filestore"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog/pgstore"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/recommend"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/recommend/cache"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/recommend/handler"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/recommend/rpc"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/grpc"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults and RR_* env when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting recommender",
		"port", cfg.Server.Port,
		"catalog_source", cfg.Catalog.Source,
		"home_lat", cfg.Scoring.HomeLat,
		"home_lng", cfg.Scoring.HomeLng,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker()

	var supplier catalog.Supplier
	switch cfg.Catalog.Source {
	case "postgres":
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store := pgstore.New(db)
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare catalog schema", "error", err)
			os.Exit(1)
		}
		supplier = store
		checker.Register("postgres", health.PingCheck(db, true))
	default:
		supplier = filestore.New(cfg.Catalog.Path)
	}

	var resultCache *cache.ResultCache
	var redisPinger health.Pinger
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, result caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			redisPinger = redisClient
			resultCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	checker.Register("redis", health.PingCheck(redisPinger, false))

	manager := indexer.NewManager()
	options := []recommend.Option{recommend.WithMetrics(m)}
	var handlerCache handler.ResultCache
	if resultCache != nil {
		options = append(options, recommend.WithCache(resultCache))
		handlerCache = resultCache
	}
	svc, err := recommend.New(manager, supplier, recommend.OptionsFromConfig(cfg.Scoring, cfg.Catalog), options...)
	if err != nil {
		slog.Error("invalid scoring options", "error", err)
		os.Exit(1)
	}
	checker.Register("index_snapshot", health.SnapshotCheck(manager.Ready, func() (int, uint64) {
		h := svc.Health()
		return h.RecordCount, h.Version
	}))

	// A failed initial load leaves the service up but not ready, so a later
	// refresh can recover it.
	err = resilience.Retry(ctx, "initial catalog load", resilience.RetryConfig{MaxAttempts: 5, InitialDelay: time.Second}, func() error {
		_, err := svc.Refresh(ctx)
		return err
	})
	if err != nil {
		slog.Error("initial catalog load failed, serving 503 until a refresh succeeds", "error", err)
	}

	var tracker analytics.Tracker
	if cfg.Analytics.Enabled && cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.RecommendEvents)
		defer producer.Close()
		if cfg.Analytics.BatchSize > 1 {
			bc := collector.NewBatchCollector(producer, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
			bc.Start(ctx)
			defer bc.Close()
			tracker = bc
		} else {
			c := analytics.NewCollector(producer, cfg.Analytics.BufferSize)
			c.Start(ctx)
			defer c.Close()
			tracker = c
		}
		slog.Info("analytics enabled", "topic", cfg.Kafka.Topics.RecommendEvents, "batch_size", cfg.Analytics.BatchSize)
	}

	if cfg.Kafka.Enabled() {
		// Each replica needs every refresh event, so the group is per process.
		groupID := fmt.Sprintf("%s-refresh-%s", cfg.Kafka.ConsumerGroup, uuid.NewString()[:8])
		refreshHandler := consumer.NewHandler(svc, tracker)
		kc := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.CatalogRefresh, groupID, refreshHandler.Handle)
		rc := consumer.New(kc)
		go func() {
			if err := rc.Start(ctx); err != nil {
				slog.Error("refresh consumer error", "error", err)
			}
		}()
		slog.Info("refresh consumer started", "topic", cfg.Kafka.Topics.CatalogRefresh, "group", groupID)
	}

	if cfg.RPC.Enabled {
		rpcServer := grpc.NewServer()
		rpc.Register(rpcServer, svc)
		go func() {
			if err := rpcServer.Serve(fmt.Sprintf(":%d", cfg.RPC.Port)); err != nil {
				slog.Error("rpc server error", "error", err)
			}
		}()
		defer rpcServer.Stop()
	}

	h := handler.New(svc, handlerCache, tracker)
	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.RateLimit.RequestsPerMinute > 0 {
		proxies, err := cfg.Server.TrustedProxyPrefixes()
		if err != nil {
			slog.Error("invalid trusted proxies", "error", err)
			os.Exit(1)
		}
		limiter := ratelimit.New(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
		defer limiter.Close()
		chain = middleware.RateLimit(limiter, proxies...)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowOrigins...))(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Trace(cfg.Server.SlowRequest)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	idleClosed := make(chan struct{})
	go func() {
		defer close(idleClosed)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("recommender listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-idleClosed

	slog.Info("recommender stopped")
}
