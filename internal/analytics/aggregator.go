package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalRecommendations int64        `json:"total_recommendations"`
	TotalRefreshes       int64        `json:"total_refreshes"`
	FailedRefreshes      int64        `json:"failed_refreshes"`
	CacheHits            int64        `json:"cache_hits"`
	CacheMisses          int64        `json:"cache_misses"`
	ZeroResultCount      int64        `json:"zero_result_count"`
	AvgLatencyMs         float64      `json:"avg_latency_ms"`
	P50LatencyMs         int64        `json:"p50_latency_ms"`
	P95LatencyMs         int64        `json:"p95_latency_ms"`
	P99LatencyMs         int64        `json:"p99_latency_ms"`
	TopQueries           []QueryCount `json:"top_queries"`
	ZeroResultQueries    []QueryCount `json:"zero_result_queries"`
	TopDietary           []QueryCount `json:"top_dietary"`
	TopRecommended       []QueryCount `json:"top_recommended"`
	LastCatalogVersion   uint64       `json:"last_catalog_version"`
	LastCatalogSize      int          `json:"last_catalog_size"`
	RecommendsPerMinute  float64      `json:"recommends_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds recommendation and refresh events into running stats.
type Aggregator struct {
	mu                   sync.RWMutex
	totalRecommendations atomic.Int64
	totalRefreshes       atomic.Int64
	failedRefreshes      atomic.Int64
	cacheHits            atomic.Int64
	cacheMisses          atomic.Int64
	zeroResults          atomic.Int64
	latencies            []int64
	next                 int
	queryCounts          map[string]int64
	zeroResultQueries    map[string]int64
	dietaryCounts        map[string]int64
	recommendedCounts    map[string]int64
	lastVersion          uint64
	lastSize             int
	startTime            time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, maxLatencySamples),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		dietaryCounts:     make(map[string]int64),
		recommendedCounts: make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent decodes one Kafka message and records it. Undecodable
// messages are logged and skipped so they are still committed.
func (a *Aggregator) HandleEvent(ctx context.Context, key []byte, value []byte) error {
	var env envelope
	if err := json.Unmarshal(value, &env); err != nil {
		a.logger.Error("failed to decode analytics event", "key", string(key), "error", err)
		return nil
	}
	switch env.Type {
	case EventRecommend, EventZeroResult:
		var event RecommendEvent
		if err := json.Unmarshal(value, &event); err != nil {
			a.logger.Error("failed to decode recommend event", "error", err)
			return nil
		}
		a.RecordRecommend(event)
	case EventRefresh:
		var event RefreshEvent
		if err := json.Unmarshal(value, &event); err != nil {
			a.logger.Error("failed to decode refresh event", "error", err)
			return nil
		}
		a.RecordRefresh(event)
	default:
		a.logger.Warn("unknown analytics event type", "type", env.Type)
	}
	return nil
}

func (a *Aggregator) RecordRecommend(event RecommendEvent) {
	a.totalRecommendations.Add(1)
	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	zero := event.Returned == 0
	if zero {
		a.zeroResults.Add(1)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % maxLatencySamples
	}
	a.queryCounts[event.Resolved]++
	if zero {
		a.zeroResultQueries[event.Resolved]++
	}
	if event.Dietary != "" {
		a.dietaryCounts[event.Dietary]++
	}
	for _, id := range event.TopIDs {
		a.recommendedCounts[id]++
	}
}

func (a *Aggregator) RecordRefresh(event RefreshEvent) {
	a.totalRefreshes.Add(1)
	if !event.Success {
		a.failedRefreshes.Add(1)
		return
	}
	a.mu.Lock()
	if event.Version >= a.lastVersion {
		a.lastVersion = event.Version
		a.lastSize = event.Count
	}
	a.mu.Unlock()
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalRecommendations: a.totalRecommendations.Load(),
		TotalRefreshes:       a.totalRefreshes.Load(),
		FailedRefreshes:      a.failedRefreshes.Load(),
		CacheHits:            a.cacheHits.Load(),
		CacheMisses:          a.cacheMisses.Load(),
		ZeroResultCount:      a.zeroResults.Load(),
		LastCatalogVersion:   a.lastVersion,
		LastCatalogSize:      a.lastSize,
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	stats.TopDietary = topN(a.dietaryCounts, 5)
	stats.TopRecommended = topN(a.recommendedCounts, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.RecommendsPerMinute = float64(stats.TotalRecommendations) / elapsed
	}

	return stats
}

// Restore seeds counters from a persisted snapshot, so totals survive a
// restart. Latency samples and per-key counts start fresh.
func (a *Aggregator) Restore(stats AggregatedStats) error {
	if stats.TotalRecommendations < 0 || stats.TotalRefreshes < 0 {
		return fmt.Errorf("restoring analytics: negative totals in snapshot")
	}
	a.totalRecommendations.Store(stats.TotalRecommendations)
	a.totalRefreshes.Store(stats.TotalRefreshes)
	a.failedRefreshes.Store(stats.FailedRefreshes)
	a.cacheHits.Store(stats.CacheHits)
	a.cacheMisses.Store(stats.CacheMisses)
	a.zeroResults.Store(stats.ZeroResultCount)
	a.mu.Lock()
	a.lastVersion = stats.LastCatalogVersion
	a.lastSize = stats.LastCatalogSize
	a.mu.Unlock()
	return nil
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n largest counts, ties broken by key so output is
// deterministic.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
