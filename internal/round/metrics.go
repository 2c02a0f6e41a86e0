package round

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roundsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena", Subsystem: "round", Name: "resolved_total",
		Help: "Rounds resolved by outcome.",
	}, []string{"outcome"})
	roundsTimedOut = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arena", Subsystem: "round", Name: "timeouts_total",
		Help: "Rounds discarded because a move arrived after the deadline.",
	})
	roundRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena", Subsystem: "round", Name: "rejected_total",
		Help: "Move submissions rejected before reaching the round.",
	}, []string{"reason"})
)
