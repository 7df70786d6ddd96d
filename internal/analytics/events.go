// Package analytics records what users search for. The search handler
// tracks one SearchEvent per query; a Collector ships the events in batches
// (to Kafka, or straight to an in-process Aggregator) and the Aggregator
// turns them into the statistics served at /api/v1/analytics.
package analytics

import "time"

type EventType string

const (
	EventCacheHit   EventType = "cache_hit"
	EventCacheMiss  EventType = "cache_miss"
	EventZeroResult EventType = "zero_result"
)

type SearchEvent struct {
	Type        EventType `json:"type"`
	Query       string    `json:"query"`
	Terms       []string  `json:"terms"`
	TotalHits   int       `json:"total_hits"`
	Returned    int       `json:"returned"`
	TopDocID    int       `json:"top_doc_id"`
	TopScore    float64   `json:"top_score"`
	LatencyUs   int64     `json:"latency_us"`
	CacheHit    bool      `json:"cache_hit"`
	Fingerprint string    `json:"fingerprint"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id"`
}

// Classify picks the event type: queries nothing matched are zero_result
// whether or not they came from the cache.
func Classify(totalHits int, cacheHit bool) EventType {
	switch {
	case totalHits == 0:
		return EventZeroResult
	case cacheHit:
		return EventCacheHit
	default:
		return EventCacheMiss
	}
}
