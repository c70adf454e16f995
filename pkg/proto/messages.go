// Package proto defines the message types exchanged over the internal
// JSON-over-TCP RPC layer (see pkg/grpc). They are plain structs with JSON
// tags so any service can speak the protocol without generated code.
package proto

// Method names served by the recommender.
const (
	MethodRecommend = "Recommender.Recommend"
	MethodRefresh   = "Recommender.Refresh"
	MethodHealth    = "Recommender.Health"
)

// ---------- Common ----------

// HealthCheckResponse mirrors the gRPC health checking protocol, plus the live
// catalog size.
type HealthCheckResponse struct {
	Status  string `json:"status"` // SERVING, NOT_SERVING
	Count   int32  `json:"count"`
	Version uint64 `json:"version"`
}

const (
	StatusServing    = "SERVING"
	StatusNotServing = "NOT_SERVING"
)

// ---------- Recommend ----------

// RecommendRequest is the input to the Recommend RPC. It follows the HTTP
// body: Halal is shorthand for dietary=halal, and a nil TopK selects the
// server default while an explicit value below 1 is rejected.
type RecommendRequest struct {
	Query   string `json:"query"`
	Dietary string `json:"dietary,omitempty"`
	Halal   bool   `json:"halal,omitempty"`
	TopK    *int32 `json:"top_k,omitempty"`
}

// RecommendResponse is the output of the Recommend RPC.
type RecommendResponse struct {
	Query         string                  `json:"query"`
	ResolvedQuery string                  `json:"resolved_query"`
	Version       uint64                  `json:"version"`
	Candidates    int32                   `json:"candidates"`
	Results       []RecommendedRestaurant `json:"results"`
	LatencyMs     int64                   `json:"latency_ms"`
}

// RecommendedRestaurant is one ranked restaurant.
type RecommendedRestaurant struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Address         string          `json:"address,omitempty"`
	Score           float64         `json:"score"`
	ScoreComponents ScoreComponents `json:"score_components"`
	Why             []string        `json:"why"`
	DistanceMiles   float64         `json:"distance_miles,omitempty"`
}

// ScoreComponents are the per-signal scores behind Score.
type ScoreComponents struct {
	TFIDF    float64 `json:"tfidf"`
	Distance float64 `json:"distance"`
	Open     float64 `json:"open"`
	Rating   float64 `json:"rating"`
}

// ---------- Refresh ----------

// RefreshRequest triggers a catalog reload from the configured supplier.
type RefreshRequest struct{}

// RefreshResponse acknowledges a completed reload.
type RefreshResponse struct {
	OK           bool   `json:"ok"`
	Count        int32  `json:"count"`
	Version      uint64 `json:"version"`
	ReloadedFrom string `json:"reloaded_from"`
}
