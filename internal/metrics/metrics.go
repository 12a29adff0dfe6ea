package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransfersSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_transfers_settled_total",
		Help: "Total number of transfers committed to the ledger.",
	})

	TransfersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_transfers_rejected_total",
		Help: "Total number of transfers rejected by validation, labelled by reason code.",
	}, []string{"reason"})

	DuplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_duplicates_skipped_total",
		Help: "Total number of redelivered messages skipped by the idempotency check.",
	})

	MessagesDeadLettered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_messages_dead_lettered_total",
		Help: "Total number of messages routed to the dead-letter topic.",
	})

	EnrichmentRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_enrichment_retries_total",
		Help: "Total number of retried incentive service calls.",
	})

	SettlementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "settlement_duration_ms",
		Help:    "End-to-end settlement latency per message in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})
)
