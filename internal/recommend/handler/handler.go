package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/recommend"
	apperrors "github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/resilience"
)

const maxRequestBytes = 1 << 20

type Recommender interface {
	Recommend(ctx context.Context, q recommend.Query) (*recommend.Result, error)
	Refresh(ctx context.Context) (*recommend.RefreshResult, error)
	Health() recommend.Health
}

type ResultCache interface {
	Stats() (hits, misses int64)
	Invalidate(ctx context.Context) (int64, error)
	BreakerState() resilience.State
}

type Handler struct {
	service Recommender
	cache   ResultCache
	tracker analytics.Tracker
	logger  *slog.Logger
}

// New creates a Handler. cache and tracker may be nil.
func New(service Recommender, cache ResultCache, tracker analytics.Tracker) *Handler {
	return &Handler{
		service: service,
		cache:   cache,
		tracker: tracker,
		logger:  slog.Default().With("component", "recommend-handler"),
	}
}

// Routes registers the recommender API on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/recommend", h.Recommend)
	mux.HandleFunc("POST /api/v1/refresh", h.Refresh)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health", h.Health)
}

// recommendation is the wire form of one result with scores rounded for
// display.
type recommendation struct {
	catalog.Record
	Score         float64           `json:"score"`
	Components    ranker.Components `json:"score_components"`
	Why           []string          `json:"why"`
	DistanceMiles *float64          `json:"distance_miles,omitempty"`
}

type recommendResponse struct {
	*recommend.Result
	Recommendations []recommendation `json:"results"`
	CacheHit        bool             `json:"cache_hit"`
}

func newRecommendResponse(res *recommend.Result) recommendResponse {
	out := recommendResponse{
		Result:          res,
		Recommendations: make([]recommendation, len(res.Recommendations)),
		CacheHit:        res.CacheHit,
	}
	for i, rc := range res.Recommendations {
		out.Recommendations[i] = recommendation{
			Record: rc.Record,
			Score:  round4(rc.Score),
			Components: ranker.Components{
				Relevance:    round4(rc.Components.Relevance),
				Proximity:    round4(rc.Components.Proximity),
				Availability: round4(rc.Components.Availability),
				Quality:      round4(rc.Components.Quality),
			},
			Why:           rc.Why,
			DistanceMiles: rc.DistanceMiles,
		}
	}
	return out
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req recommend.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	q, err := req.ToQuery()
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}

	res, err := h.service.Recommend(ctx, q)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			log.Error("recommend failed", "error", err, "status_code", status)
			h.writeError(w, status, "recommendation failed")
			return
		}
		h.writeError(w, status, err.Error())
		return
	}

	latencyMs := time.Since(start).Milliseconds()
	log.Info("recommend completed",
		"query", res.Resolved,
		"dietary", res.Dietary,
		"candidates", res.Candidates,
		"returned", len(res.Recommendations),
		"cache_hit", res.CacheHit,
		"latency_ms", latencyMs,
	)
	h.trackRecommend(ctx, res, latencyMs)
	h.writeJSON(w, http.StatusOK, newRecommendResponse(res))
}

func (h *Handler) trackRecommend(ctx context.Context, res *recommend.Result, latencyMs int64) {
	if h.tracker == nil {
		return
	}
	eventType := analytics.EventRecommend
	if len(res.Recommendations) == 0 {
		eventType = analytics.EventZeroResult
	}
	ids := make([]string, len(res.Recommendations))
	for i, rc := range res.Recommendations {
		ids[i] = rc.ID
	}
	h.tracker.Track(analytics.RecommendEvent{
		Type:       eventType,
		Query:      res.Query,
		Resolved:   res.Resolved,
		Dietary:    string(res.Dietary),
		Limit:      res.Limit,
		Candidates: res.Candidates,
		Returned:   len(res.Recommendations),
		TopIDs:     ids,
		Version:    res.Version,
		LatencyMs:  latencyMs,
		CacheHit:   res.CacheHit,
		Timestamp:  time.Now().UTC(),
		RequestID:  middleware.GetRequestID(ctx),
	})
}

type refreshResponse struct {
	OK bool `json:"ok"`
	*recommend.RefreshResult
}

// Refresh reloads the catalog from the configured supplier. A failed
// refresh leaves the previous catalog serving.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	res, err := h.service.Refresh(ctx)
	h.trackRefresh(ctx, res, err, time.Since(start))
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		logger.FromContext(ctx).Error("refresh failed", "error", err, "status_code", status)
		h.writeJSON(w, status, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, refreshResponse{OK: true, RefreshResult: res})
}

func (h *Handler) trackRefresh(ctx context.Context, res *recommend.RefreshResult, err error, took time.Duration) {
	if h.tracker == nil {
		return
	}
	ev := analytics.RefreshEvent{
		Type:      analytics.EventRefresh,
		Source:    "api",
		Success:   err == nil,
		LatencyMs: took.Milliseconds(),
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
	}
	if res != nil {
		ev.Count = res.Count
		ev.Version = res.Version
		ev.Source = res.Source
	}
	if err != nil {
		ev.Error = err.Error()
	}
	h.tracker.Track(ev)
}

// Health reports {ok, count}. ok is false until the first catalog is live.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	hs := h.service.Health()
	status := http.StatusOK
	if !hs.Ready {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, map[string]any{
		"ok":      hs.Ready,
		"count":   hs.RecordCount,
		"version": hs.Version,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.BreakerState().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
