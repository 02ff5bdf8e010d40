// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	CheckoutOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obsp_checkout_outcomes_total",
			Help: "Checkout attempts by outcome",
		},
		[]string{"outcome"},
	)

	CheckoutSoftCompletions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "obsp_checkout_soft_completions_total",
			Help: "Purchases reported complete although the configuration was not saved",
		},
	)

	CheckoutShortfall = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "obsp_checkout_shortfall_minor_units",
			Help:    "Shortfall of insufficient-funds checkouts in minor currency units",
			Buckets: prometheus.ExponentialBuckets(100, 4, 10),
		},
	)

	EligibilityCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obsp_eligibility_cache_lookups_total",
			Help: "Eligibility cache lookups by result",
		},
		[]string{"result"},
	)
)
