// Package metrics exposes the gateway's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the gateway counters and the exposition handler.
type Metrics struct {
	registry *prometheus.Registry

	// Published counts requests published to the services exchange.
	Published prometheus.Counter
	// UpstreamTimeouts counts awaits that expired without a reply.
	UpstreamTimeouts prometheus.Counter
	// OrphanReplies counts replies with no matching pending slot.
	OrphanReplies prometheus.Counter
	// LateCompletions counts replies that lost the race against a timeout
	// or a client cancellation.
	LateCompletions prometheus.Counter
	// PublishFailures counts publishes rejected by the broker.
	PublishFailures prometheus.Counter
}

// New creates the metric set on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_published_requests_total",
			Help: "Requests published to the services exchange.",
		}),
		UpstreamTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_upstream_timeouts_total",
			Help: "Awaited replies that expired without an answer.",
		}),
		OrphanReplies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_orphan_replies_total",
			Help: "Replies received with no matching pending slot.",
		}),
		LateCompletions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_late_completions_total",
			Help: "Replies that arrived after their slot was already terminated.",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_publish_failures_total",
			Help: "Publishes rejected by the broker.",
		}),
	}
	reg.MustRegister(m.Published, m.UpstreamTimeouts, m.OrphanReplies, m.LateCompletions, m.PublishFailures)
	return m
}

// Handler returns the Prometheus exposition endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
