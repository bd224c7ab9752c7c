// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rally_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rally_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	timerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rally_timer_transitions_total",
			Help: "Timer starts and pauses, by mode.",
		},
		[]string{"action", "mode"},
	)
	sessionsFinalizedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rally_sessions_finalized_total",
			Help: "Study sessions finalized, by reason (pause, stale, midnight).",
		},
		[]string{"reason"},
	)
	secondsCreditedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rally_seconds_credited_total",
			Help: "Study seconds credited to daily aggregates.",
		},
	)
	rateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rally_rate_limited_total",
			Help: "Requests rejected by the per-user rate limiter.",
		},
		[]string{"scope"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rally_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rally_ws_events_total",
			Help: "Websocket events delivered.",
		},
		[]string{"event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rally_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		timerTransitionsTotal,
		sessionsFinalizedTotal,
		secondsCreditedTotal,
		rateLimitedTotal,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
	)
}

func ObserveHTTP(method, route, status string, seconds float64) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(route).Observe(seconds)
}

func IncTimerTransition(action, mode string) {
	timerTransitionsTotal.WithLabelValues(action, mode).Inc()
}

// SessionFinalized counts one closed session and the seconds it banked.
func SessionFinalized(reason string, seconds int) {
	sessionsFinalizedTotal.WithLabelValues(reason).Inc()
	if seconds > 0 {
		secondsCreditedTotal.Add(float64(seconds))
	}
}

func IncRateLimited(scope string) {
	rateLimitedTotal.WithLabelValues(scope).Inc()
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
