// Package metrics holds application-level Prometheus collectors. Guard and
// HTTP metrics live with their middleware.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Intake metrics
var (
	// SubmissionsTotal tracks accepted form submissions by whether they were flagged
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_submissions_total",
			Help: "Total number of accepted form submissions",
		},
		[]string{"flagged"},
	)

	// PlaysTotal tracks recorded campaign plays
	PlaysTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_plays_total",
			Help: "Total number of recorded campaign plays",
		},
	)
)

// Callback metrics
var (
	// CallbacksTotal tracks signed callback links by action and result
	CallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callbacks_total",
			Help: "Signed callback links issued and verified",
		},
		[]string{"action", "result"},
	)
)

// Event sink metrics
var (
	// EventsPublishedTotal tracks events handed to the sink
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Events handed to the event sink by kind and result",
		},
		[]string{"kind", "result"},
	)
)

// Label values
const (
	ResultOK     = "ok"
	ResultError  = "error"
	ResultValid  = "valid"
	ResultDenied = "denied"
)
