// Package metrics holds the Prometheus instruments for the token lifecycle
// engine. Instruments register against the default registerer so they are
// usable from any package without init ordering concerns.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TokensIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "authcore_tokens_issued_total",
		Help: "Total number of credentials issued, by kind.",
	}, []string{"kind"})

	TokensRotatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authcore_tokens_rotated_total",
		Help: "Total number of successful refresh rotations.",
	})

	TokensRevokedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authcore_tokens_revoked_total",
		Help: "Total number of stored tokens flipped to revoked.",
	})

	LoginSuccessTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authcore_logins_success_total",
		Help: "Total number of successful logins.",
	})

	LoginFailureTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authcore_logins_failure_total",
		Help: "Total number of failed logins.",
	})

	LiveSubscribersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "authcore_live_subscribers",
		Help: "Current number of registered live revocation subscribers.",
	})

	LiveEventsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authcore_live_events_published_total",
		Help: "Total number of logout events delivered to live subscribers.",
	})
)
