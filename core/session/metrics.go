package session

import "github.com/prometheus/client_golang/prometheus"

var (
	sessionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trainings",
			Name:      "session_transitions_total",
			Help:      "Accepted session status transitions.",
		},
		[]string{"to"},
	)

	slotTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trainings",
			Name:      "slot_transitions_total",
			Help:      "Accepted signature slot status transitions.",
		},
		[]string{"to"},
	)

	rejectedTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trainings",
			Name:      "rejected_transitions_total",
			Help:      "Rejected status transitions.",
		},
		[]string{"entity"},
	)

	signAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trainings",
			Name:      "sign_attempts_total",
			Help:      "Signing attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

// RegisterMetrics registers the session metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{sessionTransitions, slotTransitions, rejectedTransitions, signAttempts} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func countRejected(err error) {
	if tErr, ok := err.(*InvalidTransitionError); ok {
		rejectedTransitions.WithLabelValues(tErr.Entity).Inc()
	}
}

func signOutcome(err error) string {
	switch err {
	case nil:
		return "recorded"
	case ErrAlreadySigned:
		return "already_signed"
	case ErrSlotNotOpen:
		return "slot_not_open"
	case ErrUnknownToken:
		return "unknown_token"
	}
	return "error"
}
