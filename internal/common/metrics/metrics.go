// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decision_evaluations_total",
			Help: "Total number of application evaluations by resulting band",
		},
		[]string{"band"},
	)

	ExplanationsDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "decision_explanations_degraded_total",
			Help: "Evaluations whose local explanation produced no significant attributions",
		},
	)

	KnowledgeRuleMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decision_knowledge_rule_misses_total",
			Help: "Attributed features with no matching knowledge rule",
		},
		[]string{"feature_id"},
	)

	FraudFlagsRaised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decision_fraud_flags_total",
			Help: "Fraud flags raised during screening",
		},
		[]string{"flag", "severity"},
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

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)
