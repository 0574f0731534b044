package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openretreat/office-sync/internal/dto"
)

// MetricsService encapsulates Prometheus instrumentation for the sync
// pipeline and the HTTP surface.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	syncRuns        *prometheus.CounterVec
	syncDuration    prometheus.Observer
	violations      prometheus.Gauge
	publishFailures prometheus.Counter
	rooms           prometheus.Gauge
	groups          prometheus.Gauge
}

// NewMetricsService registers the core collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	syncRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_runs_total",
		Help: "Total number of sync runs by outcome",
	}, []string{"outcome"})

	syncDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_run_duration_seconds",
		Help:    "Duration of full sync runs",
		Buckets: prometheus.DefBuckets,
	})

	violations := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedule_violations",
		Help: "Violations reported by the last validation pass",
	})

	publishFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "office_publish_failures_total",
		Help: "Total failed office publish attempts",
	})

	rooms := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "office_rooms",
		Help: "Rooms in the last generated office",
	})

	groups := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "office_groups",
		Help: "Groups in the last generated office",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, syncRuns, syncDuration, violations, publishFailures, rooms, groups, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		syncRuns:        syncRuns,
		syncDuration:    syncDuration,
		violations:      violations,
		publishFailures: publishFailures,
		rooms:           rooms,
		groups:          groups,
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

// ObserveHTTPRequest records one handled request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordSync records the outcome of one sync run.
func (m *MetricsService) RecordSync(outcome dto.SyncOutcome, duration time.Duration, violationCount int) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(string(outcome)).Inc()
	m.syncDuration.Observe(duration.Seconds())
	m.violations.Set(float64(violationCount))
}

// RecordOffice records the size of the last generated office.
func (m *MetricsService) RecordOffice(roomCount, groupCount int) {
	if m == nil {
		return
	}
	m.rooms.Set(float64(roomCount))
	m.groups.Set(float64(groupCount))
}

// RecordPublishFailure counts one failed publish attempt.
func (m *MetricsService) RecordPublishFailure() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}
