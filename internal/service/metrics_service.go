package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/printfleet/printfleet-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// planning engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	planRuns        *prometheus.CounterVec
	planDuration    prometheus.Histogram
	planCycles      prometheus.Histogram
	planWarnings    *prometheus.CounterVec

	requestCount         uint64
	requestDurationTotal uint64
	planRunCount         uint64
	planRunDurationTotal uint64
	planCycleTotal       uint64
}

// PlannerMetricsSnapshot aggregates planner run statistics for API consumers.
type PlannerMetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	PlanRunsTotal            uint64    `json:"plan_runs_total"`
	AveragePlanDurationMs    float64   `json:"average_plan_duration_ms"`
	CyclesPlannedTotal       uint64    `json:"cycles_planned_total"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// NewMetricsService registers core Prometheus collectors.
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

	planRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_runs_total",
		Help: "Total planning runs by outcome",
	}, []string{"outcome"})

	planDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "planner_run_duration_seconds",
		Help:    "Duration of planning runs",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	planCycles := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "planner_cycles_planned",
		Help:    "Cycles produced per planning run",
		Buckets: []float64{0, 5, 10, 25, 50, 100, 250, 500},
	})

	planWarnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_warnings_total",
		Help: "Planning warnings by kind",
	}, []string{"kind"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, planRuns, planDuration, planCycles, planWarnings, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		planRuns:        planRuns,
		planDuration:    planDuration,
		planCycles:      planCycles,
		planWarnings:    planWarnings,
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

// ObservePlanRun records the outcome of one planning run.
func (m *MetricsService) ObservePlanRun(result models.PlanningResult, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !result.Success {
		outcome = "blocked"
	}
	m.planRuns.WithLabelValues(outcome).Inc()
	m.planDuration.Observe(elapsed.Seconds())
	m.planCycles.Observe(float64(len(result.Cycles)))
	for _, warning := range result.Warnings {
		m.planWarnings.WithLabelValues(string(warning.Kind)).Inc()
	}
	atomic.AddUint64(&m.planRunCount, 1)
	atomic.AddUint64(&m.planRunDurationTotal, uint64(elapsed.Nanoseconds()))
	atomic.AddUint64(&m.planCycleTotal, uint64(len(result.Cycles)))
}

// Snapshot returns aggregated metrics suitable for status endpoints.
func (m *MetricsService) Snapshot() PlannerMetricsSnapshot {
	if m == nil {
		return PlannerMetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	runs := atomic.LoadUint64(&m.planRunCount)
	runDuration := atomic.LoadUint64(&m.planRunDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}
	var avgPlanMs float64
	if runs > 0 {
		avgPlanMs = float64(runDuration) / float64(runs) / float64(time.Millisecond)
	}

	return PlannerMetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		PlanRunsTotal:            runs,
		AveragePlanDurationMs:    avgPlanMs,
		CyclesPlannedTotal:       atomic.LoadUint64(&m.planCycleTotal),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
