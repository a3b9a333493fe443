// Package bot routes chat-platform updates to the party services and renders
// their outcomes as messages.
//
// This file exposes Prometheus instrumentation for update handling. Labels are
// limited to small fixed sets (update kind, command name, outcome) so
// cardinality stays bounded.
package bot

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// updatesTotal counts handled updates by kind and command.
	updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partybot_updates_total",
			Help: "Total number of handled updates.",
		},
		[]string{"kind", "command"},
	)

	// updateDuration records handling latency in seconds by kind.
	updateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "partybot_update_duration_seconds",
			Help:    "Duration of update handling in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// resolutionsTotal counts requested names by outcome
	// (hit, miss, admins_unsupported, admins_failed); "failed" counts batches
	// left with a request that got neither members nor a suggestion.
	resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partybot_resolutions_total",
			Help: "Party names resolved, by outcome.",
		},
		[]string{"outcome"},
	)

	// suggestionsTotal counts offered suggestion buttons.
	suggestionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "partybot_suggestions_total",
			Help: "Suggestion buttons offered.",
		},
	)

	// callbacksTotal counts button presses by outcome.
	callbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partybot_callbacks_total",
			Help: "Callback queries handled, by outcome.",
		},
		[]string{"outcome"},
	)

	// panicsTotal counts updates whose handler panicked.
	panicsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "partybot_update_panics_total",
			Help: "Updates whose handler panicked.",
		},
	)
)

func init() {
	prometheus.MustRegister(updatesTotal, updateDuration, resolutionsTotal, suggestionsTotal, callbacksTotal, panicsTotal)
}
