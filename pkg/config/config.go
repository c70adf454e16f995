// Package config loads application configuration from YAML files with
// environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Catalog, Scoring, etc.).
package config

import (
	"fmt"
	"math"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	RPC       RPCConfig       `yaml:"rpc"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	AllowOrigins    []string      `yaml:"allowOrigins"`
	// SlowRequest logs the span tree of requests at least this slow.
	SlowRequest time.Duration `yaml:"slowRequest"`
	// TrustedProxies lists the addresses or CIDRs whose X-Forwarded-For
	// header is believed. Empty means clients are keyed by remote address.
	TrustedProxies []string `yaml:"trustedProxies"`
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address becomes a
// single-host prefix.
func (s ServerConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(s.TrustedProxies))
	for _, v := range s.TrustedProxies {
		v = strings.TrimSpace(v)
		if p, err := netip.ParsePrefix(v); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("server.trustedProxies: invalid address or CIDR %q", v)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// RPCConfig controls the internal JSON-over-TCP RPC listener.
type RPCConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings. An empty broker list
// disables every Kafka-backed component.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	CatalogRefresh  string `yaml:"catalogRefresh"`
	RecommendEvents string `yaml:"recommendEvents"`
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// RedisConfig holds Redis connection and result-cache parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// CatalogConfig selects the catalog supplier. Source is "file" or
// "postgres".
type CatalogConfig struct {
	Source      string        `yaml:"source"`
	Path        string        `yaml:"path"`
	LoadTimeout time.Duration `yaml:"loadTimeout"`
}

// ScoringConfig carries the home coordinate, distance thresholds, fusion
// weights and query limits used by the recommendation core.
type ScoringConfig struct {
	HomeLat             float64       `yaml:"homeLat"`
	HomeLng             float64       `yaml:"homeLng"`
	MaxDistanceMiles    float64       `yaml:"maxDistanceMiles"`
	WalkableMiles       float64       `yaml:"walkableMiles"`
	HighRatingThreshold float64       `yaml:"highRatingThreshold"`
	Weights             WeightsConfig `yaml:"weights"`
	DefaultQuery        string        `yaml:"defaultQuery"`
	DefaultLimit        int           `yaml:"defaultLimit"`
	MaxLimit            int           `yaml:"maxLimit"`
}

// WeightsConfig holds the fused-score weights.
type WeightsConfig struct {
	Relevance    float64 `yaml:"relevance"`
	Proximity    float64 `yaml:"proximity"`
	Availability float64 `yaml:"availability"`
	Quality      float64 `yaml:"quality"`
}

// RateLimitConfig controls the per-client token bucket in front of the
// recommend endpoint. Zero disables it.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requestsPerMinute"`
	Burst             int `yaml:"burst"`
}

// AnalyticsConfig controls recommendation event collection and how long the
// analytics service keeps persisted snapshots.
type AnalyticsConfig struct {
	Enabled           bool          `yaml:"enabled"`
	BufferSize        int           `yaml:"bufferSize"`
	BatchSize         int           `yaml:"batchSize"`
	FlushInterval     time.Duration `yaml:"flushInterval"`
	SnapshotInterval  time.Duration `yaml:"snapshotInterval"`
	SnapshotRetention time.Duration `yaml:"snapshotRetention"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	return defaultConfig()
}

// Validate rejects configurations the scoring core cannot run with.
func (c *Config) Validate() error {
	s := c.Scoring
	if s.MaxDistanceMiles <= 0 {
		return fmt.Errorf("scoring.maxDistanceMiles must be positive, got %v", s.MaxDistanceMiles)
	}
	if s.HomeLat < -90 || s.HomeLat > 90 || s.HomeLng < -180 || s.HomeLng > 180 {
		return fmt.Errorf("scoring home coordinate out of range: (%v, %v)", s.HomeLat, s.HomeLng)
	}
	if s.DefaultLimit < 1 || s.MaxLimit < s.DefaultLimit {
		return fmt.Errorf("scoring limits invalid: default=%d max=%d", s.DefaultLimit, s.MaxLimit)
	}
	w := s.Weights
	for name, v := range map[string]float64{
		"relevance": w.Relevance, "proximity": w.Proximity,
		"availability": w.Availability, "quality": w.Quality,
	} {
		if v < 0 {
			return fmt.Errorf("scoring.weights.%s must not be negative", name)
		}
	}
	if sum := w.Relevance + w.Proximity + w.Availability + w.Quality; math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("scoring weights must sum to 1, got %v", sum)
	}
	if _, err := c.Server.TrustedProxyPrefixes(); err != nil {
		return err
	}
	switch c.Catalog.Source {
	case "file", "postgres":
	default:
		return fmt.Errorf("catalog.source must be file or postgres, got %q", c.Catalog.Source)
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development. The
// home coordinate is the UC Irvine campus center.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			AllowOrigins:    []string{"*"},
			SlowRequest:     500 * time.Millisecond,
		},
		RPC: RPCConfig{
			Enabled: false,
			Port:    9000,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "recommender",
			User:            "recommender",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			ConsumerGroup: "recommender-group",
			Topics: KafkaTopics{
				CatalogRefresh:  "catalog-refresh",
				RecommendEvents: "recommend-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Catalog: CatalogConfig{
			Source:      "file",
			Path:        "data/restaurants.json",
			LoadTimeout: 30 * time.Second,
		},
		Scoring: ScoringConfig{
			HomeLat:             33.6405,
			HomeLng:             -117.8443,
			MaxDistanceMiles:    2.0,
			WalkableMiles:       0.8,
			HighRatingThreshold: 0.8,
			Weights: WeightsConfig{
				Relevance:    0.50,
				Proximity:    0.20,
				Availability: 0.20,
				Quality:      0.10,
			},
			DefaultQuery: "food",
			DefaultLimit: 5,
			MaxLimit:     50,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 600,
			Burst:             20,
		},
		Analytics: AnalyticsConfig{
			BufferSize:        10000,
			BatchSize:         100,
			FlushInterval:     5 * time.Second,
			SnapshotInterval:  time.Minute,
			SnapshotRetention: 7 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads RR_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setFloat := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setInt("RR_SERVER_PORT", &cfg.Server.Port)
	setBool("RR_RPC_ENABLED", &cfg.RPC.Enabled)
	setInt("RR_RPC_PORT", &cfg.RPC.Port)
	setString("RR_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("RR_POSTGRES_PORT", &cfg.Postgres.Port)
	setString("RR_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setString("RR_POSTGRES_USER", &cfg.Postgres.User)
	setString("RR_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setString("RR_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)
	if v := os.Getenv("RR_SERVER_TRUSTED_PROXIES"); v != "" {
		cfg.Server.TrustedProxies = strings.Split(v, ",")
	}
	if v := os.Getenv("RR_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	setBool("RR_REDIS_ENABLED", &cfg.Redis.Enabled)
	setString("RR_REDIS_ADDR", &cfg.Redis.Addr)
	setString("RR_REDIS_PASSWORD", &cfg.Redis.Password)
	setString("RR_CATALOG_SOURCE", &cfg.Catalog.Source)
	setString("RR_CATALOG_PATH", &cfg.Catalog.Path)
	setFloat("RR_SCORING_HOME_LAT", &cfg.Scoring.HomeLat)
	setFloat("RR_SCORING_HOME_LNG", &cfg.Scoring.HomeLng)
	setFloat("RR_SCORING_MAX_DISTANCE_MILES", &cfg.Scoring.MaxDistanceMiles)
	setInt("RR_RATE_LIMIT_RPM", &cfg.RateLimit.RequestsPerMinute)
	setInt("RR_RATE_LIMIT_BURST", &cfg.RateLimit.Burst)
	setBool("RR_ANALYTICS_ENABLED", &cfg.Analytics.Enabled)
	setString("RR_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("RR_LOGGING_FORMAT", &cfg.Logging.Format)
	setInt("RR_METRICS_PORT", &cfg.Metrics.Port)
}
