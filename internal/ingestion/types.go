// Package ingestion defines the catalog import request and the Kafka event
// that tells every recommender to reload its catalog.
package ingestion

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog"
)

// ImportRequest replaces the stored catalog with Records. Source names
// where the records came from, such as an uploaded file name.
type ImportRequest struct {
	Records   []catalog.Record
	Source    string
	RequestID string
}

// ImportResponse is returned once the catalog is stored. Published is false
// when the refresh event could not be sent; recommenders then pick the
// catalog up on their next manual refresh.
type ImportResponse struct {
	ImportID    string `json:"import_id"`
	Fingerprint string `json:"fingerprint"`
	Count       int    `json:"count"`
	Unchanged   bool   `json:"unchanged"`
	Published   bool   `json:"published"`
}

// RefreshEventType labels refresh events on the wire.
const RefreshEventType = "catalog_refresh"

// RefreshEvent is the Kafka payload announcing a new stored catalog.
// Fingerprint identifies the catalog content, so replays are harmless.
type RefreshEvent struct {
	ImportID    string    `json:"import_id"`
	Fingerprint string    `json:"fingerprint"`
	Count       int       `json:"count"`
	Source      string    `json:"source"`
	RequestedAt time.Time `json:"requested_at"`
	RequestID   string    `json:"request_id,omitempty"`
}
