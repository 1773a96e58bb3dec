// Package metrics exposes Prometheus counters and histograms for job
// outcomes, retry attempts, and process lifecycle transitions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsPerformed counts completed job performances by outcome
	// ("success", "exception", "canceled", "aborted").
	JobsPerformed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiln_jobs_performed_total",
		Help: "Total number of job performances by outcome.",
	}, []string{"job_type", "outcome"})

	// JobDuration measures how long a single PerformAsync call took.
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kiln_job_duration_seconds",
		Help:    "Duration of job performances in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job_type"})

	// RetryAttempts counts retry attempts taken by AutomaticRetryTask.
	RetryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiln_retry_attempts_total",
		Help: "Total number of retry attempts by background processes.",
	}, []string{"process"})

	// ProcessStarts counts background process start attempts.
	ProcessStarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiln_process_starts_total",
		Help: "Total number of background process start attempts.",
	}, []string{"process", "status"})

	// ProcessStops counts background process stop attempts.
	ProcessStops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiln_process_stops_total",
		Help: "Total number of background process stop attempts.",
	}, []string{"process", "status"})
)
