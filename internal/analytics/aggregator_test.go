package analytics

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestHandleEventDispatch(t *testing.T) {
	agg := NewAggregator()
	ctx := context.Background()
	events := []any{
		RecommendEvent{Type: EventRecommend, Resolved: "tacos", Dietary: "halal", Returned: 3, TopIDs: []string{"a", "b", "c"}, LatencyMs: 4},
		RecommendEvent{Type: EventRecommend, Resolved: "tacos", Returned: 2, TopIDs: []string{"a", "d"}, LatencyMs: 8, CacheHit: true},
		RecommendEvent{Type: EventZeroResult, Resolved: "ramen vegan", Dietary: "vegan", LatencyMs: 2},
		RefreshEvent{Type: EventRefresh, Source: "data/restaurants.json", Count: 120, Version: 3, Success: true},
		RefreshEvent{Type: EventRefresh, Success: false, Error: "boom"},
	}
	for _, e := range events {
		if err := agg.HandleEvent(ctx, []byte(EventKey(e)), mustJSON(t, e)); err != nil {
			t.Fatalf("HandleEvent() error = %v", err)
		}
	}
	if err := agg.HandleEvent(ctx, nil, []byte("{garbage")); err != nil {
		t.Errorf("garbage should be skipped, got %v", err)
	}
	if err := agg.HandleEvent(ctx, nil, []byte(`{"type":"mystery"}`)); err != nil {
		t.Errorf("unknown type should be skipped, got %v", err)
	}

	stats := agg.Stats()
	if stats.TotalRecommendations != 3 || stats.CacheHits != 1 || stats.CacheMisses != 2 || stats.ZeroResultCount != 1 {
		t.Errorf("counters = %+v", stats)
	}
	if stats.TotalRefreshes != 2 || stats.FailedRefreshes != 1 || stats.LastCatalogVersion != 3 || stats.LastCatalogSize != 120 {
		t.Errorf("refresh stats = %+v", stats)
	}
	if len(stats.TopQueries) != 2 || stats.TopQueries[0] != (QueryCount{"tacos", 2}) {
		t.Errorf("top queries = %+v", stats.TopQueries)
	}
	if len(stats.ZeroResultQueries) != 1 || stats.ZeroResultQueries[0].Query != "ramen vegan" {
		t.Errorf("zero result queries = %+v", stats.ZeroResultQueries)
	}
	if stats.TopRecommended[0] != (QueryCount{"a", 2}) {
		t.Errorf("top recommended = %+v", stats.TopRecommended)
	}
	if len(stats.TopDietary) != 2 || stats.TopDietary[0] != (QueryCount{"halal", 1}) {
		t.Errorf("top dietary = %+v", stats.TopDietary)
	}
	if stats.P50LatencyMs != 4 || stats.P99LatencyMs != 8 {
		t.Errorf("latency p50=%d p99=%d", stats.P50LatencyMs, stats.P99LatencyMs)
	}
}

func TestStaleRefreshIgnored(t *testing.T) {
	agg := NewAggregator()
	agg.RecordRefresh(RefreshEvent{Version: 5, Count: 50, Success: true})
	agg.RecordRefresh(RefreshEvent{Version: 4, Count: 40, Success: true})
	if s := agg.Stats(); s.LastCatalogVersion != 5 || s.LastCatalogSize != 50 {
		t.Errorf("last catalog = v%d (%d)", s.LastCatalogVersion, s.LastCatalogSize)
	}
}

func TestLatencyWindowBounded(t *testing.T) {
	agg := NewAggregator()
	for i := 0; i < maxLatencySamples+500; i++ {
		agg.RecordRecommend(RecommendEvent{Returned: 1, LatencyMs: int64(i)})
	}
	agg.mu.RLock()
	n := len(agg.latencies)
	agg.mu.RUnlock()
	if n != maxLatencySamples {
		t.Errorf("kept %d samples, want %d", n, maxLatencySamples)
	}
	if s := agg.Stats(); s.P50LatencyMs < 500 {
		t.Errorf("oldest samples not evicted: p50=%d", s.P50LatencyMs)
	}
}

func TestRestore(t *testing.T) {
	agg := NewAggregator()
	if err := agg.Restore(AggregatedStats{TotalRecommendations: 10, CacheHits: 4, LastCatalogVersion: 7}); err != nil {
		t.Fatal(err)
	}
	agg.RecordRecommend(RecommendEvent{Returned: 1, CacheHit: true, Timestamp: time.Now()})
	s := agg.Stats()
	if s.TotalRecommendations != 11 || s.CacheHits != 5 || s.LastCatalogVersion != 7 {
		t.Errorf("stats after restore = %+v", s)
	}
	if err := agg.Restore(AggregatedStats{TotalRecommendations: -1}); err == nil {
		t.Error("negative totals accepted")
	}
}

func TestTopNDeterministic(t *testing.T) {
	got := topN(map[string]int64{"b": 2, "a": 2, "c": 5, "d": 1}, 3)
	want := []QueryCount{{"c", 5}, {"a", 2}, {"b", 2}}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("topN = %+v, want %+v", got, want)
		}
	}
}

func TestPercentile(t *testing.T) {
	sorted := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	tests := []struct {
		pct  int
		want int64
	}{
		{0, 1}, {50, 6}, {95, 10}, {99, 10}, {100, 10},
	}
	for _, tt := range tests {
		if got := percentile(sorted, tt.pct); got != tt.want {
			t.Errorf("percentile(%d) = %d, want %d", tt.pct, got, tt.want)
		}
	}
	if percentile(nil, 50) != 0 {
		t.Error("empty input should give 0")
	}
}
