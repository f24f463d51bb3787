package models

import "time"

// SystemMetrics is a JSON snapshot of in-process counters.
type SystemMetrics struct {
	CacheHitRatio            float64    `json:"cache_hit_ratio"`
	CacheHits                uint64     `json:"cache_hits"`
	CacheMisses              uint64     `json:"cache_misses"`
	RequestsTotal            uint64     `json:"requests_total"`
	AverageRequestDurationMs float64    `json:"average_request_duration_ms"`
	EventsRecorded           uint64     `json:"events_recorded"`
	StateConflicts           uint64     `json:"state_conflicts"`
	AutomaticExits           uint64     `json:"automatic_exits"`
	LastReconciliation       *time.Time `json:"last_reconciliation,omitempty"`
	Goroutines               int        `json:"goroutines"`
	GeneratedAt              time.Time  `json:"generated_at"`
}
