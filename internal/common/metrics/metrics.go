// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_evaluations_total",
			Help: "Evaluations processed, by evaluator and outcome",
		},
		[]string{"evaluator", "outcome"},
	)

	EvaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crm_evaluation_duration_seconds",
			Help:    "Time spent evaluating one record",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
		[]string{"evaluator"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_evaluation_cache_lookups_total",
			Help: "Result cache lookups, by evaluator and result (hit, miss, error)",
		},
		[]string{"evaluator", "result"},
	)

	LeadSegments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_lead_segments_total",
			Help: "Qualified leads by segment",
		},
		[]string{"segment"},
	)

	DealsAtRisk = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_pipeline_deals_at_risk_total",
			Help: "Pipeline assessments that flagged the deal at risk, by stage",
		},
		[]string{"stage"},
	)

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

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of jobs currently being handled per worker",
		},
		[]string{"task_type"},
	)
)
