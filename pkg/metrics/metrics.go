// Package metrics defines chatgate's Prometheus collectors, grounded on
// _examples/skywalker-88-stormgate/pkg/metrics/limited.go's registration
// style.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	MessagesPosted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatgate_messages_posted_total",
		Help: "Messages accepted and persisted.",
	})

	RateLimitRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatgate_rate_limit_rejections_total",
		Help: "Requests rejected by a rate-limit or cooldown check, by kind.",
	}, []string{"kind"})

	ShadowbansIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatgate_shadowbans_issued_total",
		Help: "Shadowbans applied, by trigger.",
	}, []string{"trigger"})

	ReportsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatgate_reports_processed_total",
		Help: "Abuse reports processed by the report pipeline.",
	})

	ActiveWSConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatgate_active_ws_connections",
		Help: "Currently open WebSocket connections.",
	})
)

// Register adds every collector to reg, called once at startup.
func Register(reg *prometheus.Registry) {
	reg.MustRegister(
		MessagesPosted,
		RateLimitRejections,
		ShadowbansIssued,
		ReportsProcessed,
		ActiveWSConnections,
	)
}
