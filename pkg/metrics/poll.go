package metrics

import "github.com/prometheus/client_golang/prometheus"

// Poll sources.
const (
	PollSourceInterval = "interval"
	PollSourceManual   = "manual"
)

// PollMetrics tracks payment status polling.
type PollMetrics struct {
	attempts *prometheus.CounterVec
	outcomes *prometheus.CounterVec
}

// NewPollMetrics registers the polling metrics on the provided registerer.
func NewPollMetrics(reg prometheus.Registerer) *PollMetrics {
	if reg == nil {
		return &PollMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "raamul",
		Subsystem: "checkout",
		Name:      "payment_poll_attempts_total",
		Help:      "Payment status checks by source.",
	}, []string{"source"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "raamul",
		Subsystem: "checkout",
		Name:      "payment_outcomes_total",
		Help:      "Terminal payment flow outcomes.",
	}, []string{"outcome"})
	reg.MustRegister(attempts, outcomes)
	return &PollMetrics{attempts: attempts, outcomes: outcomes}
}

// IncAttempt counts one status check.
func (p *PollMetrics) IncAttempt(source string) {
	if p == nil || p.attempts == nil {
		return
	}
	p.attempts.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncOutcome counts a finished payment flow (completed, failed, cancelled, timed_out).
func (p *PollMetrics) IncOutcome(outcome string) {
	if p == nil || p.outcomes == nil {
		return
	}
	p.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}
