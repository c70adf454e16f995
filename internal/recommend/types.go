package recommend

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/errors"
)

// Request is a query as clients send it over HTTP or RPC. Halal is
// shorthand for dietary=halal. TopK is nil when absent, so an explicit 0 is
// rejected rather than read as "use the default".
type Request struct {
	Query   string `json:"query"`
	Dietary string `json:"dietary"`
	Halal   bool   `json:"halal"`
	TopK    *int   `json:"top_k"`
}

// ToQuery maps r onto a Query. Range checks against the configured maximum
// happen in Recommend.
func (r Request) ToQuery() (Query, error) {
	q := Query{Text: r.Query}
	if r.Dietary != "" {
		tag, ok := catalog.ParseDietaryTag(r.Dietary)
		if !ok {
			return q, apperrors.Invalid("unknown dietary tag %q", r.Dietary)
		}
		q.Dietary = tag
	}
	if r.Halal {
		if q.Dietary != "" && q.Dietary != catalog.TagHalal {
			return q, apperrors.Invalid("halal conflicts with dietary %q", q.Dietary)
		}
		q.Dietary = catalog.TagHalal
	}
	if r.TopK != nil {
		if *r.TopK < 1 {
			return q, apperrors.Invalid("top_k must be a positive integer, got %d", *r.TopK)
		}
		q.Limit = *r.TopK
	}
	return q, nil
}

// Query is one recommendation request. A zero Limit selects the configured
// default.
type Query struct {
	Dietary catalog.DietaryTag `json:"dietary,omitempty" validate:"omitempty,oneof=halal vegan pescatarian vegetarian gluten_free"`
	Text    string             `json:"query,omitempty" validate:"max=1000"`
	Limit   int                `json:"top_k,omitempty" validate:"gte=0"`
}

// Recommendation is one ranked record with its fused score, the components
// that produced it and the reasons shown to the user.
type Recommendation struct {
	catalog.Record
	Score         float64           `json:"score"`
	Components    ranker.Components `json:"score_components"`
	Why           []string          `json:"why"`
	DistanceMiles *float64          `json:"distance_miles,omitempty"`
}

// Result is the answer to one Query. Resolved is the text actually scored
// against the index.
type Result struct {
	Query           string             `json:"query"`
	Resolved        string             `json:"resolved_query"`
	Dietary         catalog.DietaryTag `json:"dietary,omitempty"`
	Limit           int                `json:"top_k"`
	Version         uint64             `json:"version"`
	Candidates      int                `json:"candidates"`
	CatalogEmpty    bool               `json:"catalog_empty,omitempty"`
	Recommendations []Recommendation   `json:"results"`
	TookMs          int64              `json:"took_ms"`

	// CacheHit is set per request and never cached.
	CacheHit bool `json:"-"`
}

// RefreshResult acknowledges a completed rebuild.
type RefreshResult struct {
	Count   int       `json:"count"`
	Version uint64    `json:"version"`
	Source  string    `json:"reloaded_from"`
	BuiltAt time.Time `json:"built_at"`
}

// Health is a point-in-time view of the live snapshot.
type Health struct {
	Ready       bool   `json:"ready"`
	RecordCount int    `json:"count"`
	Version     uint64 `json:"version"`
	Vocabulary  int    `json:"vocabulary"`
	Source      string `json:"source,omitempty"`
	Building    bool   `json:"building"`
}
