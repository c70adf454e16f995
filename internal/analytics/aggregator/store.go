// Package aggregator persists recommendation analytics snapshots to
// PostgreSQL and restores the running totals on startup.
package aggregator

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/postgres"
)

// Schema creates the snapshot table. Rows are append-only JSON documents.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS analytics_snapshots (
    id          BIGSERIAL PRIMARY KEY,
    data        JSONB NOT NULL,
    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS analytics_snapshots_captured_at_idx
    ON analytics_snapshots (captured_at DESC)`,
}

const (
	selectLatest = `SELECT data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT 1`
	selectRecent = `SELECT data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT $1`
	insertOne    = `INSERT INTO analytics_snapshots (data, captured_at) VALUES ($1, $2)`
	deleteBefore = `DELETE FROM analytics_snapshots WHERE captured_at < $1`

	finalSaveTimeout = 5 * time.Second
)

type Store struct {
	db     *postgres.Client
	logger *slog.Logger

	// last is the rate-free encoding of the previous write. An idle
	// platform only moves the per-minute rate, which is not worth a row.
	last []byte
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "analytics-store"),
	}
}

// EnsureSchema creates the snapshot table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.db.ApplySchema(ctx, Schema...)
}

// SaveSnapshot appends stats unless they match the previous write. It
// reports whether a row was written.
func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) (bool, error) {
	data, err := json.Marshal(stats)
	if err != nil {
		return false, fmt.Errorf("encoding analytics snapshot: %w", err)
	}
	key, err := idleKey(stats)
	if err != nil {
		return false, err
	}
	if bytes.Equal(key, s.last) {
		return false, nil
	}
	if _, err := s.db.DB.ExecContext(ctx, insertOne, data, time.Now().UTC()); err != nil {
		return false, fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.last = key
	s.logger.Debug("analytics snapshot saved",
		"total_recommendations", stats.TotalRecommendations,
		"total_refreshes", stats.TotalRefreshes,
		"catalog_version", stats.LastCatalogVersion,
	)
	return true, nil
}

func idleKey(stats analytics.AggregatedStats) ([]byte, error) {
	stats.RecommendsPerMinute = 0
	key, err := json.Marshal(stats)
	if err != nil {
		return nil, fmt.Errorf("encoding analytics snapshot: %w", err)
	}
	return key, nil
}

// LatestSnapshot returns nil, nil when nothing has been saved yet.
func (s *Store) LatestSnapshot(ctx context.Context) (*analytics.AggregatedStats, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx, selectLatest).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest analytics snapshot: %w", err)
	}
	var stats analytics.AggregatedStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("decoding latest analytics snapshot: %w", err)
	}
	return &stats, nil
}

// ListSnapshots returns up to limit snapshots, newest first. Rows that no
// longer decode are skipped.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]analytics.AggregatedStats, error) {
	rows, err := s.db.DB.QueryContext(ctx, selectRecent, limit)
	if err != nil {
		return nil, fmt.Errorf("listing analytics snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]analytics.AggregatedStats, 0, limit)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning analytics snapshot: %w", err)
		}
		var stats analytics.AggregatedStats
		if err := json.Unmarshal(data, &stats); err != nil {
			s.logger.Warn("skipping undecodable snapshot", "error", err)
			continue
		}
		out = append(out, stats)
	}
	return out, rows.Err()
}

// Prune deletes snapshots captured before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.DB.ExecContext(ctx, deleteBefore, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning analytics snapshots: %w", err)
	}
	return res.RowsAffected()
}

// Restore seeds agg from the latest snapshot and reports whether one
// existed.
func (s *Store) Restore(ctx context.Context, agg *analytics.Aggregator) (bool, error) {
	stats, err := s.LatestSnapshot(ctx)
	if err != nil || stats == nil {
		return false, err
	}
	if err := agg.Restore(*stats); err != nil {
		return false, fmt.Errorf("restoring analytics totals: %w", err)
	}
	s.logger.Info("analytics totals restored",
		"total_recommendations", stats.TotalRecommendations,
		"catalog_version", stats.LastCatalogVersion,
	)
	return true, nil
}

// Run snapshots agg every interval until ctx is cancelled, then writes a
// final snapshot. When retention is positive, snapshots older than it are
// pruned after each save.
func (s *Store) Run(ctx context.Context, agg *analytics.Aggregator, interval, retention time.Duration) {
	s.logger.Info("periodic snapshots started", "interval", interval, "retention", retention)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.tick(ctx, agg, retention)
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalSaveTimeout)
			if _, err := s.SaveSnapshot(finalCtx, agg.Stats()); err != nil {
				s.logger.Error("final snapshot failed", "error", err)
			}
			cancel()
			return
		}
	}
}

func (s *Store) tick(ctx context.Context, agg *analytics.Aggregator, retention time.Duration) {
	saved, err := s.SaveSnapshot(ctx, agg.Stats())
	if err != nil {
		s.logger.Error("periodic snapshot failed", "error", err)
		return
	}
	if !saved || retention <= 0 {
		return
	}
	pruned, err := s.Prune(ctx, time.Now().Add(-retention))
	if err != nil {
		s.logger.Warn("snapshot pruning failed", "error", err)
		return
	}
	if pruned > 0 {
		s.logger.Info("old snapshots pruned", "deleted", pruned)
	}
}
