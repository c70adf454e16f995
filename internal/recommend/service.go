// Package recommend answers recommendation queries against the live catalog
// snapshot and drives catalog refreshes. It ties together the relevance
// index, the heuristic scorers, score fusion and explanations.
package recommend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog/validator"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/explain"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/geo"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/tracing"
)

// Options are the process-wide scoring settings.
type Options struct {
	Home             geo.Point
	MaxDistanceMiles float64
	Weights          ranker.Weights
	Explain          explain.Options
	DefaultQuery     string
	DefaultLimit     int
	MaxLimit         int
	// LoadTimeout bounds a supplier load during Refresh. Zero means no
	// limit beyond the caller's context.
	LoadTimeout time.Duration
}

// DefaultOptions centres scoring on the UC Irvine campus.
func DefaultOptions() Options {
	return Options{
		Home:             geo.Point{Lat: 33.6405, Lng: -117.8443},
		MaxDistanceMiles: 2.0,
		Weights:          ranker.DefaultWeights(),
		Explain:          explain.DefaultOptions(),
		DefaultQuery:     "food",
		DefaultLimit:     5,
		MaxLimit:         50,
	}
}

// OptionsFromConfig maps the scoring and catalog config sections.
func OptionsFromConfig(s config.ScoringConfig, c config.CatalogConfig) Options {
	return Options{
		Home:             geo.Point{Lat: s.HomeLat, Lng: s.HomeLng},
		MaxDistanceMiles: s.MaxDistanceMiles,
		Weights: ranker.Weights{
			Relevance:    s.Weights.Relevance,
			Proximity:    s.Weights.Proximity,
			Availability: s.Weights.Availability,
			Quality:      s.Weights.Quality,
		},
		Explain: explain.Options{
			WalkableMiles:       s.WalkableMiles,
			HighRatingThreshold: s.HighRatingThreshold,
		},
		DefaultQuery: s.DefaultQuery,
		DefaultLimit: s.DefaultLimit,
		MaxLimit:     s.MaxLimit,
		LoadTimeout:  c.LoadTimeout,
	}
}

// Cache stores results keyed by catalog fingerprint and query. compute runs
// on a miss; the bool reports a hit.
type Cache interface {
	GetOrCompute(ctx context.Context, key string, compute func(context.Context) (*Result, error)) (*Result, bool, error)
}

// Option customizes a Service.
type Option func(*Service)

// WithCache puts c in front of ranking.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithMetrics records request and rebuild metrics to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service is safe for concurrent use. Recommend never blocks on Refresh.
type Service struct {
	manager  *indexer.Manager
	supplier catalog.Supplier
	opts     Options
	scorer   scoring.Scorer
	cache    Cache
	metrics  *metrics.Metrics
	logger   *slog.Logger

	optionsKey string
}

// New creates a Service. supplier may be nil, in which case Refresh fails
// and only RefreshWith can publish catalogs.
func New(manager *indexer.Manager, supplier catalog.Supplier, opts Options, options ...Option) (*Service, error) {
	if err := opts.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("recommend options: %w", err)
	}
	if opts.DefaultLimit < 1 || opts.MaxLimit < opts.DefaultLimit {
		return nil, fmt.Errorf("recommend options: invalid limits default=%d max=%d", opts.DefaultLimit, opts.MaxLimit)
	}
	s := &Service{
		manager:  manager,
		supplier: supplier,
		opts:     opts,
		scorer: scoring.Scorer{
			Home:             opts.Home,
			MaxDistanceMiles: opts.MaxDistanceMiles,
		},
		logger:     slog.Default().With("component", "recommend"),
		optionsKey: optionsKey(opts),
	}
	for _, o := range options {
		o(s)
	}
	return s, nil
}

// Recommend ranks the live catalog for q. A dietary tag is a hard filter:
// records without it are never returned. A filter that excludes everything,
// or an empty catalog, yields an empty result rather than an error.
func (s *Service) Recommend(ctx context.Context, q Query) (*Result, error) {
	start := time.Now()
	ctx, span := tracing.StartChildSpan(ctx, "recommend")
	defer span.End()

	res, err := s.recommend(ctx, q)
	s.observe(res, err, time.Since(start))
	if err != nil {
		span.SetAttr("error", apperrors.Kind(err))
		return nil, err
	}
	res.TookMs = time.Since(start).Milliseconds()
	span.SetAttr("results", len(res.Recommendations))
	span.SetAttr("cache_hit", res.CacheHit)

	logger.FromContext(ctx).Debug("recommend completed",
		"query", res.Resolved,
		"dietary", res.Dietary,
		"results", len(res.Recommendations),
		"version", res.Version,
		"cache_hit", res.CacheHit,
		"latency", time.Since(start),
	)
	return res, nil
}

func (s *Service) recommend(ctx context.Context, q Query) (*Result, error) {
	q, err := s.normalize(q)
	if err != nil {
		return nil, err
	}
	snap, err := s.manager.Current()
	if err != nil {
		return nil, err
	}
	text := s.resolve(q)

	if s.cache == nil {
		return s.rank(ctx, snap, q, text), nil
	}
	key := cacheKey(snap.Fingerprint, s.optionsKey, q, text)
	shared, hit, err := s.cache.GetOrCompute(ctx, key, func(ctx context.Context) (*Result, error) {
		return s.rank(ctx, snap, q, text), nil
	})
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}
	// The cached value may be shared between requests, and may have been
	// computed by another process with its own version counter.
	res := *shared
	res.Query = q.Text
	res.Version = snap.Version
	res.CacheHit = hit
	return &res, nil
}

// normalize applies the default limit and validates q.
func (s *Service) normalize(q Query) (Query, error) {
	q.Text = strings.TrimSpace(q.Text)
	if err := validator.Struct(q); err != nil {
		return q, err
	}
	if q.Limit == 0 {
		q.Limit = s.opts.DefaultLimit
	}
	if q.Limit < 1 || q.Limit > s.opts.MaxLimit {
		return q, apperrors.Invalid("top_k must be between 1 and %d, got %d", s.opts.MaxLimit, q.Limit)
	}
	return q, nil
}

// resolve builds the text scored against the index: the query, then the
// dietary tag in its spaced form. Blank falls back to the default query.
func (s *Service) resolve(q Query) string {
	text := q.Text
	if q.Dietary != "" {
		text = strings.TrimSpace(text + " " + strings.ReplaceAll(string(q.Dietary), "_", " "))
	}
	if text == "" {
		text = s.opts.DefaultQuery
	}
	return text
}

// cacheKey identifies a result by catalog content and scoring settings, so
// processes sharing a cache only share results they would compute alike.
func cacheKey(fingerprint, options string, q Query, text string) string {
	return fmt.Sprintf("%s|%s|%s|%d|%s", fingerprint, options, q.Dietary, q.Limit, text)
}

// optionsKey hashes the settings that change a ranked result.
func optionsKey(opts Options) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%v|%v|%v|%v|%s",
		opts.Home, opts.MaxDistanceMiles, opts.Weights, opts.Explain, opts.DefaultQuery))
	return hex.EncodeToString(sum[:8])
}

func (s *Service) rank(ctx context.Context, snap *indexer.Snapshot, q Query, text string) *Result {
	res := &Result{
		Query:           q.Text,
		Resolved:        text,
		Dietary:         q.Dietary,
		Limit:           q.Limit,
		Version:         snap.Version,
		Recommendations: []Recommendation{},
	}
	if snap.Len() == 0 {
		res.CatalogEmpty = true
		return res
	}

	_, scoreSpan := tracing.StartChildSpan(ctx, "score")
	relevance := snap.Index.Query(text)
	candidates := make([]ranker.Candidate, 0, snap.Len())
	signals := make([]scoring.Signals, snap.Len())
	for i := 0; i < snap.Len(); i++ {
		rec := snap.Catalog.At(i)
		if q.Dietary != "" && !rec.HasTag(q.Dietary) {
			continue
		}
		sig := s.scorer.Score(rec)
		signals[i] = sig
		comps := ranker.Components{
			Relevance:    relevance[i],
			Proximity:    sig.Proximity,
			Availability: sig.Availability,
			Quality:      sig.Quality,
		}
		candidates = append(candidates, ranker.Candidate{
			Position:   i,
			Components: comps,
			Score:      s.opts.Weights.Fuse(comps),
		})
	}
	scoreSpan.SetAttr("candidates", len(candidates))
	scoreSpan.End()

	res.Candidates = len(candidates)
	for _, c := range ranker.Rank(candidates, q.Limit) {
		rec := snap.Catalog.At(c.Position)
		sig := signals[c.Position]
		rc := Recommendation{
			Record:     *rec,
			Score:      c.Score,
			Components: c.Components,
			Why: explain.Generate(explain.Input{
				Record:        rec,
				Document:      snap.Documents[c.Position],
				Query:         text,
				Dietary:       q.Dietary,
				Components:    c.Components,
				DistanceMiles: sig.DistanceMiles,
				HasDistance:   sig.HasDistance,
			}, s.opts.Explain),
		}
		if sig.HasDistance {
			d := sig.DistanceMiles
			rc.DistanceMiles = &d
		}
		res.Recommendations = append(res.Recommendations, rc)
	}
	return res
}

func (s *Service) observe(res *Result, err error, took time.Duration) {
	if s.metrics == nil {
		return
	}
	outcome := apperrors.Kind(err)
	cacheStatus := "none"
	if res != nil {
		switch {
		case res.CatalogEmpty:
			outcome = "empty_catalog"
		case len(res.Recommendations) == 0:
			outcome = "empty"
		}
		if s.cache != nil {
			cacheStatus = "miss"
			if res.CacheHit {
				cacheStatus = "hit"
			}
		}
		s.metrics.RecommendResultsCount.Observe(float64(len(res.Recommendations)))
	}
	s.metrics.RecommendRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.RecommendLatency.WithLabelValues(cacheStatus).Observe(took.Seconds())
}

// Refresh loads a new catalog from the supplier and publishes it. On
// failure the previous snapshot keeps serving and the error wraps
// ErrRebuildFailed, or is ErrRebuildInProgress when another rebuild is
// running.
func (s *Service) Refresh(ctx context.Context) (*RefreshResult, error) {
	if s.supplier == nil {
		return nil, fmt.Errorf("%w: no catalog supplier configured", apperrors.ErrRebuildFailed)
	}
	start := time.Now()
	ctx, span := tracing.StartChildSpan(ctx, "refresh")
	defer span.End()

	c, err := resilience.CallWithTimeout(ctx, s.opts.LoadTimeout, "catalog load", s.supplier.Load)
	if err != nil {
		s.logger.Error("catalog load failed", "error", err)
		s.observeRebuild(nil, apperrors.ErrRebuildFailed, time.Since(start))
		return nil, fmt.Errorf("%w: loading catalog: %w", apperrors.ErrRebuildFailed, err)
	}
	span.SetAttr("records", c.Len())
	return s.publish(ctx, c, describe(s.supplier), start)
}

// RefreshWith publishes c directly. Callers own its validation.
func (s *Service) RefreshWith(ctx context.Context, c catalog.Catalog, source string) (*RefreshResult, error) {
	return s.publish(ctx, c, source, time.Now())
}

func (s *Service) publish(ctx context.Context, c catalog.Catalog, source string, start time.Time) (*RefreshResult, error) {
	snap, err := s.manager.Rebuild(ctx, c, source)
	s.observeRebuild(snap, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return &RefreshResult{
		Count:   snap.Len(),
		Version: snap.Version,
		Source:  snap.Source,
		BuiltAt: snap.BuiltAt,
	}, nil
}

func (s *Service) observeRebuild(snap *indexer.Snapshot, err error, took time.Duration) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	switch apperrors.Kind(err) {
	case "ok":
	case "rebuild_in_progress":
		status = "rejected"
	default:
		status = "failed"
	}
	s.metrics.IndexRebuildsTotal.WithLabelValues(status).Inc()
	if snap == nil {
		return
	}
	s.metrics.IndexRebuildDuration.Observe(took.Seconds())
	s.metrics.CatalogRecords.Set(float64(snap.Len()))
	s.metrics.IndexVocabularySize.Set(float64(snap.Index.Vocabulary().Len()))
	s.metrics.IndexSnapshotVersion.Set(float64(snap.Version))
}

// Health reports on the live snapshot.
func (s *Service) Health() Health {
	h := Health{Building: s.manager.Building()}
	snap, err := s.manager.Current()
	if err != nil {
		return h
	}
	h.Ready = true
	h.RecordCount = snap.Len()
	h.Version = snap.Version
	h.Vocabulary = snap.Index.Vocabulary().Len()
	h.Source = snap.Source
	return h
}

func describe(sup catalog.Supplier) string {
	if d, ok := sup.(catalog.Describer); ok {
		return d.Describe()
	}
	return fmt.Sprintf("%T", sup)
}
