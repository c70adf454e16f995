package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestRunWorstStatusWins(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{"all up", map[string]Check{"a": PingCheck(pinger{}, true)}, StatusUp},
		{"optional down", map[string]Check{
			"a":     PingCheck(pinger{}, true),
			"redis": PingCheck(pinger{err: errors.New("refused")}, false),
		}, StatusDegraded},
		{"required down", map[string]Check{
			"redis":    PingCheck(pinger{err: errors.New("refused")}, false),
			"postgres": PingCheck(pinger{err: errors.New("refused")}, true),
		}, StatusDown},
		{"unconfigured", map[string]Check{"redis": PingCheck(nil, false)}, StatusDegraded},
		{"panic", map[string]Check{"bad": func(context.Context) ComponentHealth { panic("boom") }}, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, check := range tt.checks {
				c.Register(name, check)
			}
			report := c.Run(context.Background())
			if report.Status != tt.want {
				t.Errorf("status = %s, want %s (%+v)", report.Status, tt.want, report.Components)
			}
			if len(report.Components) != len(tt.checks) {
				t.Errorf("components = %d, want %d", len(report.Components), len(tt.checks))
			}
		})
	}
}

func TestSnapshotCheck(t *testing.T) {
	ready := false
	records := 0
	check := SnapshotCheck(func() bool { return ready }, func() (int, uint64) { return records, 3 })

	if got := check(context.Background()); got.Status != StatusDown {
		t.Errorf("not ready = %s", got.Status)
	}
	ready = true
	if got := check(context.Background()); got.Status != StatusDegraded {
		t.Errorf("empty = %s", got.Status)
	}
	records = 40
	if got := check(context.Background()); got.Status != StatusUp || got.Message != "40 records, version 3" {
		t.Errorf("live = %+v", got)
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("redis", PingCheck(nil, false))
	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("degraded status code = %d, want 200", rec.Code)
	}
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.Status != StatusDegraded {
		t.Errorf("report status = %s", report.Status)
	}

	c.Register("index_snapshot", SnapshotCheck(func() bool { return false }, nil))
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("down status code = %d, want 503", rec.Code)
	}
}

func TestRunTimesOutHungCheck(t *testing.T) {
	c := NewChecker()
	c.checkTimeout = 20 * time.Millisecond
	c.Register("hung", func(ctx context.Context) ComponentHealth {
		<-ctx.Done()
		return ComponentHealth{Status: StatusDown, Message: ctx.Err().Error()}
	})
	c.Register("postgres", PingCheck(pinger{}, true))

	start := time.Now()
	report := c.Run(context.Background())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Run took %v", elapsed)
	}
	if report.Ready() || report.Components["hung"].Message != context.DeadlineExceeded.Error() {
		t.Errorf("report = %+v", report)
	}
	if report.Components["postgres"].Status != StatusUp {
		t.Errorf("postgres = %+v", report.Components["postgres"])
	}
}
