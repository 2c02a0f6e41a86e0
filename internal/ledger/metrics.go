package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "ledger",
		Name:      "operations_total",
		Help:      "Successful ledger operations by type.",
	}, []string{"op"})

	ledgerOpErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "ledger",
		Name:      "operation_errors_total",
		Help:      "Failed ledger operations by type.",
	}, []string{"op"})
)
