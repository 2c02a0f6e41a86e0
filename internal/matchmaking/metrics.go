package matchmaking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queueJoined = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "queue",
		Name:      "joined_total",
		Help:      "Players parked in a waiting pool.",
	})
	queueEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "queue",
		Name:      "evicted_total",
		Help:      "Waiting entries dropped after the queue timeout.",
	})
	matchesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "queue",
		Name:      "matches_created_total",
		Help:      "Matches created with both stakes escrowed.",
	})
	escrowFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "queue",
		Name:      "escrow_failures_total",
		Help:      "Pairings abandoned because a stake could not be debited.",
	})
	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "arena",
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Waiting entries per stake bucket.",
	}, []string{"stake"})
)
