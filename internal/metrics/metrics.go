// Package metrics exposes Prometheus collectors for the scholarship client.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the client-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scholar_client",
			Subsystem: "submission",
			Name:      "total",
			Help:      "Total number of submission workflow runs.",
		},
		[]string{"status"},
	)

	verifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scholar_client",
			Subsystem: "verification",
			Name:      "total",
			Help:      "Total number of verification workflow runs.",
		},
		[]string{"status"},
	)

	loadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "scholar_client",
			Subsystem: "repository",
			Name:      "load_duration_seconds",
			Help:      "Duration of full repository loads.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
	)

	applications = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "scholar_client",
			Subsystem: "repository",
			Name:      "applications",
			Help:      "Application records in the current snapshot.",
		},
	)
)

func init() {
	Registry.MustRegister(submissions, verifications, loadDuration, applications)
}

// Workflow status labels.
const (
	StatusSuccess         = "success"
	StatusFailed          = "failed"
	StatusRejected        = "rejected"
	StatusAlreadyVerified = "already_verified"
)

// RecordSubmission counts one submission workflow outcome.
func RecordSubmission(status string) {
	submissions.WithLabelValues(status).Inc()
}

// RecordVerification counts one verification workflow outcome.
func RecordVerification(status string) {
	verifications.WithLabelValues(status).Inc()
}

// ObserveLoad records a completed repository load.
func ObserveLoad(d time.Duration, count int) {
	loadDuration.Observe(d.Seconds())
	applications.Set(float64(count))
}

// Handler serves the collectors over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
