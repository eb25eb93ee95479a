package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EMM FSM and signaling metrics, in the promauto gauge/counter style of
// metrics.go: one vector per externally observable event,
// labeled by the dimension an operator would slice on.
var (
	EMMStateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mme_emm_state_transitions_total",
			Help: "Total number of EMM state transitions",
		},
		[]string{"from", "to"},
	)

	EMMUECount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mme_emm_ue_count",
			Help: "Number of UE contexts currently in each EMM state",
		},
		[]string{"state"},
	)

	EMMAuthOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mme_emm_authentication_outcomes_total",
			Help: "Total number of authentication outcomes",
		},
		[]string{"result"}, // success, res_mismatch, mac_failure, synch_failure, non_eps_unacceptable, unknown
	)

	EMMTimerExpirations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mme_emm_timer_expirations_total",
			Help: "Total number of EMM timer expirations",
		},
		[]string{"timer", "exhausted"},
	)

	EMMProceduresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mme_emm_procedures_total",
			Help: "Total number of EMM procedures handled, by pending request type",
		},
		[]string{"procedure", "outcome"},
	)

	EMMPagingRounds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mme_emm_paging_rounds_total",
			Help: "Total number of T3413 paging rounds, by whether Paging was resent or the retries were exhausted",
		},
		[]string{"outcome"}, // retried, exhausted
	)
)

// RecordStateTransition records an EMM FSM transition.
func RecordStateTransition(from, to string) {
	EMMStateTransitions.WithLabelValues(from, to).Inc()
}

// RecordAuthOutcome records the result of an authentication attempt.
func RecordAuthOutcome(result string) {
	EMMAuthOutcomes.WithLabelValues(result).Inc()
}

// RecordTimerExpiration records a timer tick, noting whether it exhausted its retry budget.
func RecordTimerExpiration(timer string, exhausted bool) {
	label := "retried"
	if exhausted {
		label = "exhausted"
	}
	EMMTimerExpirations.WithLabelValues(timer, label).Inc()
}
