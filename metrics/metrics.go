// Package metrics declares the Prometheus collectors of the storefront service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "floreria",
		Name:      "cart_mutations_total",
		Help:      "Cart mutations by operation and outcome.",
	}, []string{"op", "outcome"})

	CartMirrorSync = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "floreria",
		Name:      "cart_mirror_sync_total",
		Help:      "Server cart mirror replays by resulting sync state.",
	}, []string{"state"})

	WizardTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "floreria",
		Name:      "wizard_transitions_total",
		Help:      "Wizard next/prev attempts by step and outcome.",
	}, []string{"step", "outcome"})

	CheckoutSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "floreria",
		Name:      "checkout_submissions_total",
		Help:      "Order submissions by result.",
	}, []string{"result"})

	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "floreria",
		Name:      "upstream_requests_total",
		Help:      "Requests to the shop API by endpoint and outcome, retries included.",
	}, []string{"endpoint", "outcome"})

	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "floreria",
		Name:      "upstream_request_duration_seconds",
		Help:      "Latency of shop API calls, retries and backoff included.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})
)
