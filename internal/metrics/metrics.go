// Package metrics exposes Prometheus instrumentation for bundle builds.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	buildFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bndbuild_bundle_build_failed",
			Help: "Number of times a bundle has failed to build",
		},
		[]string{"bundle", "error_type"},
	)

	buildSucceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bndbuild_bundle_build_succeeded",
			Help: "Number of times a bundle has built successfully",
		},
		[]string{"bundle"},
	)

	buildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bndbuild_bundle_build_duration_seconds",
			Help:    "Bundle build duration in seconds",
			Buckets: []float64{0.1, 0.2, 0.5, 1, 1.5, 2, 5, 10, 30, 60},
		},
		[]string{"bundle"},
	)

	advisoryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bndbuild_bundle_advisory_diagnostics_total",
			Help: "Advisory diagnostics emitted across bundle builds",
		},
		[]string{"bundle"},
	)
)

func BundleBuildSucceeded(bundle string, startTime time.Time) {
	buildSucceeded.WithLabelValues(bundle).Inc()
	buildDuration.WithLabelValues(bundle).Observe(time.Since(startTime).Seconds())
}

func BundleBuildFailed(bundle, errorType string) {
	buildFailed.WithLabelValues(bundle, errorType).Inc()
}

func BundleAdvisories(bundle string, n int) {
	advisoryCount.WithLabelValues(bundle).Add(float64(n))
}
