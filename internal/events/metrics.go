package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsQueued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arena", Subsystem: "events", Name: "queued_total",
		Help: "Events accepted by the dispatcher.",
	})
	eventsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arena", Subsystem: "events", Name: "sent_total",
		Help: "Events delivered to the sink.",
	})
	eventsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arena", Subsystem: "events", Name: "failed_total",
		Help: "Sink delivery failures.",
	})
	eventsRetried = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arena", Subsystem: "events", Name: "retry_total",
		Help: "Deliveries scheduled for retry.",
	})
	eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena", Subsystem: "events", Name: "dropped_total",
		Help: "Events given up on, by reason (buffer_full, retry_exhausted, shutdown).",
	}, []string{"reason"})
	eventsQueueLen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "arena", Subsystem: "events", Name: "queue_len",
		Help: "Events waiting in the dispatch buffer.",
	})
)
