package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/guarderia-api/internal/models"
)

const metricsNamespace = "guarderia"

// MetricsService owns the Prometheus registry plus a few atomic totals for
// the JSON summary endpoint. A nil *MetricsService is a valid no-op.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	eventsTotal     *prometheus.CounterVec
	stateConflicts  *prometheus.CounterVec
	reconcileRuns   *prometheus.CounterVec
	reconcileExits  prometheus.Counter
	reconcileLast   prometheus.Gauge
	reportJobs      *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	eventCount           uint64
	conflictCount        uint64
	autoExitCount        uint64
	lastReconcileUnix    int64
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "status_cache_read_seconds",
		Help:      "Latency of status cache reads",
		Buckets:   prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "status_cache_write_seconds",
		Help:      "Latency of status cache writes",
		Buckets:   prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "status_cache_hit_ratio",
		Help:      "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "status_cache_hits_total",
		Help:      "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "status_cache_misses_total",
		Help:      "Total cache misses",
	})

	eventsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "attendance_events_total",
		Help:      "Attendance events appended, by event type and origin",
	}, []string{"event_type", "origin"})

	stateConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "attendance_state_conflicts_total",
		Help:      "Registrations rejected by the daily status pre-check",
	}, []string{"event_type"})

	reconcileRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "attendance_reconciliation_runs_total",
		Help:      "Daily reconciliation runs by result",
	}, []string{"result"})

	reconcileExits := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "attendance_reconciliation_exits_total",
		Help:      "Automatic exits synthesized by the daily reconciliation",
	})

	reconcileLast := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "attendance_reconciliation_last_run_timestamp_seconds",
		Help:      "Unix time of the last successful reconciliation",
	})

	reportJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "report_jobs_total",
		Help:      "Report jobs by terminal status",
	}, []string{"status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "goroutines_total",
		Help:      "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		eventsTotal, stateConflicts, reconcileRuns, reconcileExits, reconcileLast, reportJobs, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		eventsTotal:     eventsTotal,
		stateConflicts:  stateConflicts,
		reconcileRuns:   reconcileRuns,
		reconcileExits:  reconcileExits,
		reconcileLast:   reconcileLast,
		reportJobs:      reportJobs,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordEvent counts appended events; origin is "staff", "backfill" or "system".
func (m *MetricsService) RecordEvent(eventType models.EventType, origin string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.eventsTotal.WithLabelValues(string(eventType), origin).Add(float64(n))
	atomic.AddUint64(&m.eventCount, uint64(n))
}

// RecordStateConflict counts registrations refused by the status pre-check.
func (m *MetricsService) RecordStateConflict(eventType models.EventType) {
	if m == nil {
		return
	}
	m.stateConflicts.WithLabelValues(string(eventType)).Inc()
	atomic.AddUint64(&m.conflictCount, 1)
}

// RecordReconciliation tracks one reconciliation run.
func (m *MetricsService) RecordReconciliation(success bool, processed int, at time.Time) {
	if m == nil {
		return
	}
	if !success {
		m.reconcileRuns.WithLabelValues("failure").Inc()
		return
	}
	m.reconcileRuns.WithLabelValues("success").Inc()
	m.reconcileExits.Add(float64(processed))
	m.reconcileLast.Set(float64(at.Unix()))
	atomic.AddUint64(&m.autoExitCount, uint64(processed))
	atomic.StoreInt64(&m.lastReconcileUnix, at.Unix())
}

// RecordReportJob counts a report job reaching a terminal status.
func (m *MetricsService) RecordReportJob(status models.ReportStatus) {
	if m == nil {
		return
	}
	m.reportJobs.WithLabelValues(string(status)).Inc()
}

// Snapshot returns aggregated metrics for the JSON summary endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	snapshot := models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		EventsRecorded:           atomic.LoadUint64(&m.eventCount),
		StateConflicts:           atomic.LoadUint64(&m.conflictCount),
		AutomaticExits:           atomic.LoadUint64(&m.autoExitCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
	if last := atomic.LoadInt64(&m.lastReconcileUnix); last > 0 {
		ts := time.Unix(last, 0).UTC()
		snapshot.LastReconciliation = &ts
	}
	return snapshot
}
