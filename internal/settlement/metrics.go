package settlement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	settledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arena", Subsystem: "settlement", Name: "settled_total",
		Help: "Matches settled.",
	})
	settleRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arena", Subsystem: "settlement", Name: "retry_total",
		Help: "Settlement attempts retried after a transient failure.",
	})
	settleFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arena", Subsystem: "settlement", Name: "failures_total",
		Help: "Settlements that gave up; the match stays active.",
	})
	rakeTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arena", Subsystem: "settlement", Name: "rake_coins_total",
		Help: "Coins booked as platform revenue.",
	})
)
