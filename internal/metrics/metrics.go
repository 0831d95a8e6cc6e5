package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process counters. A nil *Metrics is valid and turns
// every method into a no-op, so callers never guard for it.
type Metrics struct {
	jobsTotal   *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	jobSeconds  *prometheus.HistogramVec
	inFlight    prometheus.Gauge
	batches     prometheus.Counter
}

// New registers the collectors on reg and returns the handle.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		jobsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "savedown_jobs_total",
			Help: "Finished jobs by platform and terminal status.",
		}, []string{"platform", "status"}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "savedown_job_errors_total",
			Help: "Job failures by error kind.",
		}, []string{"kind"}),
		jobSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "savedown_job_duration_seconds",
			Help:    "Wall time per job.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"platform"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "savedown_jobs_in_flight",
			Help: "Jobs currently executing.",
		}),
		batches: f.NewCounter(prometheus.CounterOpts{
			Name: "savedown_batches_total",
			Help: "Batches accepted for processing.",
		}),
	}
}

func (m *Metrics) BatchStarted() {
	if m == nil {
		return
	}
	m.batches.Inc()
}

func (m *Metrics) JobStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) JobFinished(platform, status string, seconds float64) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.jobsTotal.WithLabelValues(platform, status).Inc()
	m.jobSeconds.WithLabelValues(platform).Observe(seconds)
}

func (m *Metrics) ErrorSeen(kind string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(kind).Inc()
}
