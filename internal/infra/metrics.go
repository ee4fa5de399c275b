package infra

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the worker's Prometheus instruments.
type Metrics struct {
	JobsTotal      *prometheus.CounterVec
	RetriesTotal   prometheus.Counter
	UploadFailures prometheus.Counter
	JobDuration    prometheus.Histogram
}

// NewMetrics registers the worker instruments on reg and returns them.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "genforge_jobs_total",
			Help: "Generation jobs by terminal status.",
		}, []string{"status"}),
		RetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "genforge_job_retries_total",
			Help: "Retry re-enqueues of generation jobs.",
		}),
		UploadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "genforge_storage_upload_failures_total",
			Help: "Failed artifact upload attempts.",
		}),
		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "genforge_job_duration_seconds",
			Help:    "Wall time of a single dispatch attempt.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
	reg.MustRegister(m.JobsTotal, m.RetriesTotal, m.UploadFailures, m.JobDuration)
	return m
}

// ObserveTerminal records a job reaching a terminal status.
func (m *Metrics) ObserveTerminal(status string, seconds float64) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(status).Inc()
	m.JobDuration.Observe(seconds)
}

// ObserveRetry records a retry re-enqueue.
func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// ObserveUploadFailure records one failed upload attempt.
func (m *Metrics) ObserveUploadFailure() {
	if m == nil {
		return
	}
	m.UploadFailures.Inc()
}
