package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConfirmationsTotal counts fresh ledger commits by channel.
	ConfirmationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "satang_confirmations_total",
		Help: "Fresh credit commits by confirmation channel.",
	}, []string{"channel"})

	// DuplicateCommitsTotal counts commits that observed an existing
	// transaction. High values are normal when webhook and poller race.
	DuplicateCommitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "satang_duplicate_commits_total",
		Help: "Ledger commits resolved as duplicates by channel.",
	}, []string{"channel"})

	// InvalidSignaturesTotal counts rejected webhook envelopes. Nonzero
	// values mean tampering or a secret mismatch, never silent downgrades.
	InvalidSignaturesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "satang_invalid_signatures_total",
		Help: "Webhook envelopes rejected for a bad signature.",
	})

	// GatewayErrorsTotal counts failed outbound gateway calls by operation
	// and kind (unreachable vs rejected).
	GatewayErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "satang_gateway_errors_total",
		Help: "Failed outbound gateway calls.",
	}, []string{"op", "kind"})

	// IntentsIssuedTotal counts successfully opened payment intents.
	IntentsIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "satang_intents_issued_total",
		Help: "Payment intents opened against the gateway.",
	})
)
