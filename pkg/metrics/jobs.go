package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconJobMetrics records metadata for reconciliation batch runs.
type ReconJobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	repaired *prometheus.CounterVec
}

// NewReconJobMetrics registers the batch job metrics on the provided registerer.
func NewReconJobMetrics(reg prometheus.Registerer) *ReconJobMetrics {
	if reg == nil {
		return &ReconJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recon_job_duration_seconds",
		Help:    "Duration of reconciliation jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recon_job_success",
		Help: "Successful reconciliation job executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recon_job_failure",
		Help: "Failed reconciliation job executions.",
	}, []string{"job"})
	repaired := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recon_rows_repaired",
		Help: "Contribution rows repaired or swept by job.",
	}, []string{"job"})
	reg.MustRegister(duration, success, failure, repaired)
	return &ReconJobMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		repaired: repaired,
	}
}

// ObserveDuration records the duration for the named job.
func (m *ReconJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (m *ReconJobMetrics) IncSuccess(job string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (m *ReconJobMetrics) IncFailure(job string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// AddRepaired adds repaired row counts for the named job.
func (m *ReconJobMetrics) AddRepaired(job string, count int) {
	if m == nil || m.repaired == nil || count <= 0 {
		return
	}
	m.repaired.WithLabelValues(normalizeLabel(job)).Add(float64(count))
}

func normalizeLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
