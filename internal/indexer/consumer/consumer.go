// Package consumer reads catalog refresh events from Kafka and reloads the
// recommender's catalog. Each recommender process consumes the topic in
// its own group so every replica reloads.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/recommend"
	apperrors "github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/resilience"
)

// RefreshConsumer wraps a Kafka consumer to drive catalog reloads.
type RefreshConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates a RefreshConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *RefreshConsumer {
	return &RefreshConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "refresh-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (rc *RefreshConsumer) Start(ctx context.Context) error {
	rc.logger.Info("refresh consumer starting")
	return rc.consumer.Start(ctx)
}

// Refresher reloads the catalog from its supplier.
type Refresher interface {
	Refresh(ctx context.Context) (*recommend.RefreshResult, error)
}

// Handler applies refresh events. Events whose fingerprint was already
// applied are skipped, so redelivery is harmless.
type Handler struct {
	refresher Refresher
	tracker   analytics.Tracker
	retry     resilience.RetryConfig
	logger    *slog.Logger

	mu              sync.Mutex
	lastFingerprint string
}

// NewHandler creates a Handler. tracker may be nil.
func NewHandler(refresher Refresher, tracker analytics.Tracker) *Handler {
	return &Handler{
		refresher: refresher,
		tracker:   tracker,
		retry: resilience.RetryConfig{
			MaxAttempts:  5,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     5 * time.Second,
		},
		logger: slog.Default().With("component", "refresh-consumer"),
	}
}

// Handle is a kafka.MessageHandler. Undecodable messages and catalogs that
// fail validation are dropped. A refresh that keeps failing after retries
// is returned so the message is not committed.
func (h *Handler) Handle(ctx context.Context, key []byte, value []byte) error {
	event, err := kafka.DecodeJSON[ingestion.RefreshEvent](value)
	if err != nil {
		h.logger.Error("failed to decode refresh event", "error", err, "key", string(key))
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if event.Fingerprint != "" && event.Fingerprint == h.lastFingerprint {
		h.logger.Debug("catalog already current, skipping refresh",
			"import_id", event.ImportID,
			"fingerprint", event.Fingerprint,
		)
		return nil
	}

	start := time.Now()
	var res *recommend.RefreshResult
	err = resilience.Retry(ctx, "catalog refresh", h.retry, func() error {
		r, err := h.refresher.Refresh(ctx)
		if errors.Is(err, apperrors.ErrInvalidInput) {
			// A stored catalog that fails validation will not heal by retrying.
			return resilience.Permanent(err)
		}
		res = r
		return err
	})
	h.track(event, res, err, time.Since(start))
	if errors.Is(err, apperrors.ErrInvalidInput) {
		// Redelivery cannot fix a stored catalog that fails validation; the
		// previous catalog keeps serving until the next import.
		h.logger.Error("stored catalog rejected, skipping import",
			"import_id", event.ImportID,
			"error", err,
		)
		return nil
	}
	if err != nil {
		h.logger.Error("catalog refresh failed",
			"import_id", event.ImportID,
			"error", err,
		)
		return fmt.Errorf("refreshing catalog for import %s: %w", event.ImportID, err)
	}

	h.lastFingerprint = event.Fingerprint
	h.logger.Info("catalog refreshed",
		"import_id", event.ImportID,
		"records", res.Count,
		"version", res.Version,
		"lag", time.Since(event.RequestedAt),
	)
	return nil
}

func (h *Handler) track(event ingestion.RefreshEvent, res *recommend.RefreshResult, err error, took time.Duration) {
	if h.tracker == nil {
		return
	}
	ev := analytics.RefreshEvent{
		Type:      analytics.EventRefresh,
		Source:    event.Source,
		Success:   err == nil,
		LatencyMs: took.Milliseconds(),
		Timestamp: time.Now().UTC(),
		RequestID: event.RequestID,
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
