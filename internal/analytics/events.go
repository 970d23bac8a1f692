// Package analytics records what the search service was asked and how it
// answered, and ships those events to Kafka or Postgres in batches.
package analytics

import "time"

type EventType string

const (
	EventSearch       EventType = "search"
	EventZeroResult   EventType = "zero_result"
	EventShardFailure EventType = "shard_failure"
	EventCacheHit     EventType = "cache_hit"
	EventCacheMiss    EventType = "cache_miss"
)

// SearchEvent describes one answered (or failed) search request.
type SearchEvent struct {
	Type       EventType `json:"type"`
	Query      string    `json:"query"`
	TotalHits  int       `json:"total_hits"`
	Returned   int       `json:"returned"`
	MaxScore   float64   `json:"max_score"`
	LatencyMs  int64     `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	ShardCount int       `json:"shard_count"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
}

// Classify picks the event type for a finished search. Failures win over
// zero results, which win over cache outcomes.
func Classify(totalHits int, cacheHit bool, err error) EventType {
	switch {
	case err != nil:
		return EventShardFailure
	case totalHits == 0:
		return EventZeroResult
	case cacheHit:
		return EventCacheHit
	default:
		return EventSearch
	}
}
