// Package indexer owns the published (catalog, index) snapshot that
// recommendation requests read, and rebuilds it when the catalog changes.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/indexer/document"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/errors"
)

// Snapshot is one immutable generation of the catalog together with the
// documents and index built from it. Row i of Index, Documents[i] and
// Catalog.At(i) always describe the same record.
//
// Version counts rebuilds in this process only. Fingerprint identifies the
// catalog content and is the same in every process that loaded it.
type Snapshot struct {
	Version     uint64
	Fingerprint string
	Catalog     catalog.Catalog
	Documents   []document.Text
	Index       *index.Index
	Source      string
	BuiltAt     time.Time
}

// Len returns the number of records in the snapshot.
func (s *Snapshot) Len() int {
	return s.Catalog.Len()
}

// Manager publishes snapshots. Readers call Current and never block; Rebuild
// is the only writer. A Rebuild started while another is running is rejected
// with ErrRebuildInProgress rather than queued.
type Manager struct {
	current  atomic.Pointer[Snapshot]
	building atomic.Bool
	logger   *slog.Logger

	// beforePublish runs after a successful build, just before the swap.
	beforePublish func()
}

func NewManager() *Manager {
	return &Manager{
		logger: slog.Default().With("component", "indexer"),
	}
}

// Current returns the live snapshot, or ErrIndexNotReady before the first
// successful rebuild.
func (m *Manager) Current() (*Snapshot, error) {
	snap := m.current.Load()
	if snap == nil {
		return nil, apperrors.ErrIndexNotReady
	}
	return snap, nil
}

// Ready reports whether a snapshot has been published.
func (m *Manager) Ready() bool {
	return m.current.Load() != nil
}

// Rebuild synthesizes documents for c, fits a new index and publishes the
// result. source names where the catalog came from and is carried on the
// snapshot. On any failure, including cancellation of ctx, the previous
// snapshot stays live and the error wraps ErrRebuildFailed.
func (m *Manager) Rebuild(ctx context.Context, c catalog.Catalog, source string) (*Snapshot, error) {
	if !m.building.CompareAndSwap(false, true) {
		return nil, apperrors.ErrRebuildInProgress
	}
	defer m.building.Store(false)

	start := time.Now()
	m.logger.Info("index rebuild started", "records", c.Len(), "source", source)

	docs, err := synthesize(ctx, c)
	if err != nil {
		return nil, m.fail(err)
	}

	corpus := make([]string, len(docs))
	for i, d := range docs {
		corpus[i] = string(d)
	}
	ix, err := index.Build(c.IDs(), corpus)
	if err != nil {
		return nil, m.fail(err)
	}
	fingerprint, err := c.Fingerprint()
	if err != nil {
		return nil, m.fail(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, m.fail(err)
	}

	var version uint64 = 1
	if prev := m.current.Load(); prev != nil {
		version = prev.Version + 1
	}
	snap := &Snapshot{
		Version:     version,
		Fingerprint: fingerprint,
		Catalog:     c,
		Documents:   docs,
		Index:       ix,
		Source:      source,
		BuiltAt:     time.Now().UTC(),
	}
	if m.beforePublish != nil {
		m.beforePublish()
	}
	m.current.Store(snap)

	m.logger.Info("index rebuild finished",
		"version", version,
		"fingerprint", fingerprint[:12],
		"records", c.Len(),
		"vocabulary", ix.Vocabulary().Len(),
		"duration", time.Since(start),
	)
	return snap, nil
}

// Building reports whether a rebuild is running.
func (m *Manager) Building() bool {
	return m.building.Load()
}

func (m *Manager) fail(err error) error {
	m.logger.Error("index rebuild failed", "error", err)
	return fmt.Errorf("%w: %w", apperrors.ErrRebuildFailed, err)
}

// synthesize builds every document in parallel. Each worker owns a
// contiguous range of the output slice, so catalog order is preserved
// without locking.
func synthesize(ctx context.Context, c catalog.Catalog) ([]document.Text, error) {
	n := c.Len()
	docs := make([]document.Text, n)
	if n == 0 {
		return docs, ctx.Err()
	}

	workers := min(runtime.GOMAXPROCS(0), n)
	chunk := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%256 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				docs[i] = document.Synthesize(c.At(i))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, ctx.Err()
}
