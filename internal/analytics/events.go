package analytics

import "time"

type EventType string

const (
	EventRecommend  EventType = "recommend"
	EventZeroResult EventType = "zero_result"
	EventRefresh    EventType = "refresh"
)

// RecommendEvent describes one answered recommendation request.
// ZeroResult requests carry Type EventZeroResult.
type RecommendEvent struct {
	Type       EventType `json:"type"`
	Query      string    `json:"query"`
	Resolved   string    `json:"resolved_query"`
	Dietary    string    `json:"dietary,omitempty"`
	Limit      int       `json:"top_k"`
	Candidates int       `json:"candidates"`
	Returned   int       `json:"returned"`
	TopIDs     []string  `json:"top_ids"`
	Version    uint64    `json:"version"`
	LatencyMs  int64     `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
}

// RefreshEvent describes one catalog refresh attempt.
type RefreshEvent struct {
	Type      EventType `json:"type"`
	Source    string    `json:"source"`
	Count     int       `json:"count"`
	Version   uint64    `json:"version"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// envelope is decoded first to pick the concrete event type.
type envelope struct {
	Type EventType `json:"type"`
}

// EventKey returns the Kafka partition key for an event.
func EventKey(event any) string {
	switch event.(type) {
	case RecommendEvent, *RecommendEvent:
		return string(EventRecommend)
	case RefreshEvent, *RefreshEvent:
		return string(EventRefresh)
	default:
		return "analytics"
	}
}

// TypeOf returns the Type field of a known event, or "" for anything else.
func TypeOf(event any) EventType {
	switch e := event.(type) {
	case RecommendEvent:
		return e.Type
	case *RecommendEvent:
		return e.Type
	case RefreshEvent:
		return e.Type
	case *RefreshEvent:
		return e.Type
	default:
		return ""
	}
}
