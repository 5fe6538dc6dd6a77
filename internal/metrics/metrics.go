// Package metrics exposes Prometheus collectors for probes, cycles and scores.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/woozymasta/bluescore/internal/models"
)

const namespace = "bluescore"

// Manager holds every collector registered on one registry.
type Manager struct {
	registry *prometheus.Registry

	probesTotal    *prometheus.CounterVec
	probeDuration  *prometheus.HistogramVec
	cyclesTotal    *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	cycleSkipped   prometheus.Counter
	recordErrors   prometheus.Counter
	overridesTotal *prometheus.CounterVec
	teamScore      *prometheus.GaugeVec
	teamRank       *prometheus.GaugeVec
	httpRequests   *prometheus.CounterVec
}

var global = NewManager(prometheus.NewRegistry()) //nolint:gochecknoglobals // process wide collectors

// NewManager registers all collectors on registry.
func NewManager(registry *prometheus.Registry) *Manager {
	auto := promauto.With(registry)

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Manager{
		registry: registry,
		probesTotal: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Probes performed by protocol and resulting status",
		}, []string{"protocol", "status"}),
		probeDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Probe round-trip time",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"protocol"}),
		cyclesTotal: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Check cycles by result (completed, aborted, busy)",
		}, []string{"result"}),
		cycleDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of completed check cycles",
			Buckets:   prometheus.LinearBuckets(1, 3, 10),
		}),
		cycleSkipped: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_skipped_targets_total",
			Help:      "Targets not probed because the cycle deadline elapsed",
		}),
		recordErrors: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_errors_total",
			Help:      "Probe outcomes that could not be persisted",
		}),
		overridesTotal: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overrides_total",
			Help:      "Manual score operations by kind",
		}, []string{"operation"}),
		teamScore: auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "team_score",
			Help:      "Current total score per team",
		}, []string{"team"}),
		teamRank: auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "team_rank",
			Help:      "Current rank per team",
		}, []string{"team"}),
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}
}

// Handler returns the exposition handler of the manager registry.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Handler serves the process wide registry.
func Handler() http.Handler {
	return global.Handler()
}

// RecordProbe counts one probe outcome.
func RecordProbe(protocol string, status models.Status, d time.Duration) {
	global.probesTotal.WithLabelValues(protocol, string(status)).Inc()
	global.probeDuration.WithLabelValues(protocol).Observe(d.Seconds())
}

// RecordCycle counts a cycle result; duration and skipped are only meaningful for completed cycles.
func RecordCycle(result string, d time.Duration, skipped, recordErrors int) {
	global.cyclesTotal.WithLabelValues(result).Inc()
	if d > 0 {
		global.cycleDuration.Observe(d.Seconds())
	}
	global.cycleSkipped.Add(float64(skipped))
	global.recordErrors.Add(float64(recordErrors))
}

// RecordOverride counts one manual score operation.
func RecordOverride(operation string) {
	global.overridesTotal.WithLabelValues(operation).Inc()
}

// SetStandings replaces the per-team score and rank gauges.
func SetStandings(scores []models.TeamScore) {
	global.teamScore.Reset()
	global.teamRank.Reset()
	for _, s := range scores {
		global.teamScore.WithLabelValues(s.Name).Set(float64(s.Total))
		global.teamRank.WithLabelValues(s.Name).Set(float64(s.Rank))
	}
}

// RecordHTTP counts one handled request.
func RecordHTTP(route string, code int) {
	global.httpRequests.WithLabelValues(route, statusText(code)).Inc()
}

func statusText(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
