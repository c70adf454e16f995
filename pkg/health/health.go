// Package health aggregates dependency probes for the recommender, ingestion
// and analytics services. A service registers one Check per dependency; the
// readiness endpoint runs them in parallel and reports the worst status.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// DefaultCheckTimeout bounds a single probe so one hung dependency cannot
// stall the readiness endpoint.
const DefaultCheckTimeout = 2 * time.Second

type Check func(ctx context.Context) ComponentHealth

type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

// Ready reports whether traffic should be routed here. A degraded service
// still serves recommendations without its optional dependencies.
func (r Report) Ready() bool {
	return r.Status != StatusDown
}

type Checker struct {
	mu           sync.RWMutex
	checks       map[string]Check
	checkTimeout time.Duration
	logger       *slog.Logger
}

func NewChecker() *Checker {
	return &Checker{
		checks:       make(map[string]Check),
		checkTimeout: DefaultCheckTimeout,
		logger:       slog.Default().With("component", "health"),
	}
}

// Register adds or replaces a named check.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Run executes every check concurrently, each under its own timeout.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	timeout := c.checkTimeout
	c.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[string]ComponentHealth, len(checks))
	)
	g, gctx := errgroup.WithContext(ctx)
	for name, check := range checks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()
			start := time.Now()
			result := c.runOne(cctx, name, check)
			result.Latency = time.Since(start).Round(time.Millisecond).String()
			mu.Lock()
			results[name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return Report{
		Status:     worst(results),
		Components: results,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}

func worst(results map[string]ComponentHealth) Status {
	status := StatusUp
	for _, comp := range results {
		switch comp.Status {
		case StatusDown:
			return StatusDown
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// runOne turns a panicking check into a down component.
func (c *Checker) runOne(ctx context.Context, name string, ch Check) (result ComponentHealth) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("health check panicked", "check", name, "panic", r)
			result = ComponentHealth{Status: StatusDown, Message: "check panicked"}
		}
	}()
	return ch(ctx)
}

// LiveHandler answers liveness probes. It never touches dependencies.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadyHandler answers readiness probes with the full report: 200 while the
// report is ready, 503 once any required dependency is down.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		status := http.StatusOK
		if !report.Ready() {
			status = http.StatusServiceUnavailable
			c.logger.Warn("readiness check failed", "components", report.Components)
		}
		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
