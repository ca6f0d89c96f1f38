package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvintake",
			Subsystem: "intake",
			Name:      "submissions_total",
			Help:      "按结果统计的提交数量。",
		},
		[]string{"outcome"},
	)

	stepFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvintake",
			Subsystem: "intake",
			Name:      "step_failures_total",
			Help:      "各处理步骤的失败次数，包含不影响响应的步骤。",
		},
		[]string{"step"},
	)
)

// 提交结果标签。
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// ObserveSubmission 记录一次提交的最终结果。
func ObserveSubmission(outcome string) {
	submissionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveStepFailure 记录某个处理步骤失败。
func ObserveStepFailure(step string) {
	stepFailuresTotal.WithLabelValues(step).Inc()
}
