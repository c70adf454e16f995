// Package publisher stores an imported catalog in PostgreSQL and announces
// it on Kafka so every recommender reloads. Imports are idempotent on the
// catalog content: re-importing identical records stores nothing new.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog/validator"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/kafka"
)

// refreshKey pins every refresh event to one partition so they stay ordered.
const refreshKey = "catalog"

// CatalogStore is the durable home of the catalog.
type CatalogStore interface {
	Replace(ctx context.Context, c catalog.Catalog, fingerprint string) error
	Fingerprint(ctx context.Context) (string, error)
}

// EventPublisher sends one event to the refresh topic.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Publisher coordinates catalog persistence and refresh events.
type Publisher struct {
	store    CatalogStore
	producer EventPublisher
	logger   *slog.Logger
}

// New creates a Publisher. producer may be nil when Kafka is not
// configured; imports are then stored but not announced.
func New(store CatalogStore, producer EventPublisher) *Publisher {
	return &Publisher{
		store:    store,
		producer: producer,
		logger:   slog.Default().With("component", "catalog-publisher"),
	}
}

// Import validates the records, stores them unless the stored catalog
// already has the same fingerprint, and publishes a RefreshEvent. A publish
// failure is logged and reported on the response, not returned: the
// catalog is already durable.
func (p *Publisher) Import(ctx context.Context, req *ingestion.ImportRequest) (*ingestion.ImportResponse, error) {
	if err := validator.Records(req.Records); err != nil {
		return nil, err
	}
	fingerprint, err := catalog.Fingerprint(req.Records)
	if err != nil {
		return nil, err
	}
	resp := &ingestion.ImportResponse{
		ImportID:    uuid.NewString(),
		Fingerprint: fingerprint,
		Count:       len(req.Records),
	}

	current, err := p.store.Fingerprint(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking stored catalog: %w", err)
	}
	if current == fingerprint {
		p.logger.Info("catalog unchanged, skipping import",
			"fingerprint", fingerprint,
			"records", resp.Count,
		)
		resp.Unchanged = true
		return resp, nil
	}

	if err := p.store.Replace(ctx, catalog.New(req.Records), fingerprint); err != nil {
		return nil, fmt.Errorf("storing catalog: %w", err)
	}

	if p.producer == nil {
		return resp, nil
	}
	event := kafka.Event{
		Key:  refreshKey,
		Type: ingestion.RefreshEventType,
		Value: ingestion.RefreshEvent{
			ImportID:    resp.ImportID,
			Fingerprint: fingerprint,
			Count:       resp.Count,
			Source:      req.Source,
			RequestedAt: time.Now().UTC(),
			RequestID:   req.RequestID,
		},
	}
	if err := p.producer.Publish(ctx, event); err != nil {
		p.logger.Error("failed to publish refresh event, recommenders keep the old catalog",
			"import_id", resp.ImportID,
			"error", err,
		)
		return resp, nil
	}
	resp.Published = true
	p.logger.Info("catalog imported",
		"import_id", resp.ImportID,
		"records", resp.Count,
		"fingerprint", fingerprint,
	)
	return resp, nil
}
