package antifarm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var farmSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "arena",
	Subsystem: "antifarm",
	Name:      "suppressed_total",
	Help:      "Rating updates suppressed by the farming guard.",
}, []string{"reason"})
