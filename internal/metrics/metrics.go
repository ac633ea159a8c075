// Package metrics collects the Prometheus series this service exposes:
// request counts, evaluation latency, the currently-served epoch, and key
// rotations.
//
// Built around an explicit *prometheus.Registry passed to New rather than
// a package-global registry/IsEnabled pair — the registry the metrics are
// enabled/disabled by is whatever the caller passes to promhttp.HandlerFor,
// so there is no separate global state to keep in sync with it.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every series this service publishes.
type Metrics struct {
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	evaluationDuration prometheus.Histogram
	currentEpoch       prometheus.Gauge
	rotationsTotal     prometheus.Counter
}

// New registers every series on reg and returns a Metrics handle for
// recording them.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "star_randsrv_requests_total",
				Help: "Total number of HTTP requests handled, by route, method, and status.",
			},
			[]string{"route", "method", "status"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "star_randsrv_request_duration_seconds",
				Help:    "HTTP request handling duration in seconds, by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		evaluationDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name: "star_randsrv_evaluation_duration_seconds",
				Help: "Duration of a single PPOPRF point evaluation in seconds.",
				Buckets: []float64{
					0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1,
				},
			},
		),
		currentEpoch: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "star_randsrv_current_epoch",
				Help: "The epoch tag currently being served.",
			},
		),
		rotationsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "star_randsrv_epoch_rotations_total",
				Help: "Total number of epoch rotations (advances or full key rotations) performed.",
			},
		),
	}
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	m.requestsTotal.WithLabelValues(route, method, statusClass(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveEvaluation records the duration of a single PPOPRF evaluation.
func (m *Metrics) ObserveEvaluation(d time.Duration) {
	m.evaluationDuration.Observe(d.Seconds())
}

// SetCurrentEpoch publishes the epoch tag currently being served.
func (m *Metrics) SetCurrentEpoch(epoch uint8) {
	m.currentEpoch.Set(float64(epoch))
}

// IncRotations records that an epoch rotation (advance or full rekey) happened.
func (m *Metrics) IncRotations() {
	m.rotationsTotal.Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "unknown"
	}
}
