package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/recommend"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/resilience"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
	fail error
	gets atomic.Int64
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.gets.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return "", m.fail
	}
	v, ok := m.data[key]
	if !ok {
		return "", pkgredis.Nil
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func result(version uint64) *recommend.Result {
	return &recommend.Result{
		Query:   "tacos",
		Version: version,
		Limit:   5,
		Recommendations: []recommend.Recommendation{{
			Score: 0.42,
			Why:   []string{"open now"},
		}},
	}
}

func TestGetOrCompute(t *testing.T) {
	store := newMemStore()
	c := New(store, time.Minute, nil)
	calls := 0
	compute := func(context.Context) (*recommend.Result, error) {
		calls++
		return result(1), nil
	}

	got, hit, err := c.GetOrCompute(context.Background(), "v1|tacos", compute)
	if err != nil || hit {
		t.Fatalf("first call: hit=%v err=%v", hit, err)
	}
	if got.Query != "tacos" {
		t.Errorf("query = %q", got.Query)
	}
	got, hit, err = c.GetOrCompute(context.Background(), "v1|tacos", compute)
	if err != nil || !hit {
		t.Fatalf("second call: hit=%v err=%v", hit, err)
	}
	if calls != 1 {
		t.Errorf("compute ran %d times, want 1", calls)
	}
	if got.Recommendations[0].Score != 0.42 || got.Recommendations[0].Why[0] != "open now" {
		t.Errorf("cached result = %+v", got.Recommendations[0])
	}
	if hits, misses := c.Stats(); hits != 1 || misses != 1 {
		t.Errorf("stats = %d/%d", hits, misses)
	}
}

func TestComputeErrorNotCached(t *testing.T) {
	store := newMemStore()
	c := New(store, time.Minute, nil)
	boom := errors.New("boom")
	if _, _, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (*recommend.Result, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if len(store.data) != 0 {
		t.Errorf("error result was cached: %v", store.data)
	}
}

func TestStoreFailureOpensBreaker(t *testing.T) {
	store := newMemStore()
	store.fail = errors.New("connection refused")
	c := New(store, time.Minute, nil)
	compute := func(context.Context) (*recommend.Result, error) { return result(1), nil }

	for i := 0; i < 10; i++ {
		got, hit, err := c.GetOrCompute(context.Background(), "k", compute)
		if err != nil || hit || got == nil {
			t.Fatalf("call %d: hit=%v err=%v", i, hit, err)
		}
	}
	if c.BreakerState() != resilience.StateOpen {
		t.Errorf("breaker state = %v, want open", c.BreakerState())
	}
	gets := store.gets.Load()
	if _, _, err := c.GetOrCompute(context.Background(), "k", compute); err != nil {
		t.Fatal(err)
	}
	if store.gets.Load() != gets {
		t.Error("open breaker still reached the store")
	}
}

func TestCorruptEntryEvicted(t *testing.T) {
	store := newMemStore()
	c := New(store, time.Minute, nil)
	store.data[buildKey("k")] = "{not json"
	_, hit, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (*recommend.Result, error) {
		return result(1), nil
	})
	if err != nil || hit {
		t.Fatalf("hit=%v err=%v", hit, err)
	}
	if v := store.data[buildKey("k")]; v == "{not json" {
		t.Error("corrupt entry left in place")
	}
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	store.data["other:key"] = "keep"
	c := New(store, time.Minute, nil)
	for _, k := range []string{"a", "b", "c"} {
		if _, _, err := c.GetOrCompute(context.Background(), k, func(context.Context) (*recommend.Result, error) {
			return result(1), nil
		}); err != nil {
			t.Fatal(err)
		}
	}
	n, err := c.Invalidate(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("Invalidate() = %d, %v", n, err)
	}
	if _, ok := store.data["other:key"]; !ok {
		t.Error("unrelated key deleted")
	}
}

func TestKeysAreHashed(t *testing.T) {
	a, b := buildKey("v1|halal|5|tacos"), buildKey("v2|halal|5|tacos")
	if a == b {
		t.Error("distinct inputs produced the same key")
	}
	if len(a) != len(keyPrefix)+32 {
		t.Errorf("key %q has unexpected length", a)
	}
}
