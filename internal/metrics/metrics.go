// Package metrics holds the Prometheus collectors of the participation engine.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ewm"

var (
	eventTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_transitions_total",
			Help:      "Count of event state changes by target state.",
		},
		[]string{"state"},
	)
	requestsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "participation_requests_total",
			Help:      "Count of accepted participation requests by admitted status.",
		},
		[]string{"status"},
	)
	moderationDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moderation_decisions_total",
			Help:      "Count of participation requests decided by batch moderation.",
		},
		[]string{"outcome"},
	)
	capacityRefusals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capacity_refusals_total",
			Help:      "Count of operations refused because the participant limit was reached.",
		},
		[]string{"operation"},
	)
	txRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_tx_retries_total",
			Help:      "Count of atomic units retried after a concurrent write conflict.",
		},
	)
)

var registerMetrics sync.Once

// Register adds all collectors to reg. Only the first call has an effect.
func Register(reg prometheus.Registerer) {
	registerMetrics.Do(func() {
		reg.MustRegister(eventTransitions)
		reg.MustRegister(requestsSubmitted)
		reg.MustRegister(moderationDecisions)
		reg.MustRegister(capacityRefusals)
		reg.MustRegister(txRetries)
	})
}

// RecordEventTransition counts an event reaching state.
func RecordEventTransition(state string) {
	eventTransitions.WithLabelValues(state).Inc()
}

// RecordRequestSubmitted counts a stored participation request.
func RecordRequestSubmitted(status string) {
	requestsSubmitted.WithLabelValues(status).Inc()
}

// RecordModeration counts a moderated batch.
func RecordModeration(confirmed, rejected int) {
	moderationDecisions.WithLabelValues("confirmed").Add(float64(confirmed))
	moderationDecisions.WithLabelValues("rejected").Add(float64(rejected))
}

// RecordCapacityRefusal counts an operation refused for lack of seats.
func RecordCapacityRefusal(operation string) {
	capacityRefusals.WithLabelValues(operation).Inc()
}

// RecordTxRetry counts a retried atomic unit.
func RecordTxRetry() {
	txRetries.Inc()
}
