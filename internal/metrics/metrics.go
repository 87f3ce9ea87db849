// Package metrics declares the prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "narvaro",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern, method and status code.",
	}, []string{"route", "method", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "narvaro",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	Responses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "narvaro",
		Name:      "responses_total",
		Help:      "Attendance responses written, by response value.",
	}, []string{"response"})

	LiveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "narvaro",
		Name:      "live_subscribers",
		Help:      "Open live query subscriptions.",
	})

	SnapshotsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "narvaro",
		Name:      "live_snapshots_dropped_total",
		Help:      "Snapshots replaced before a slow subscriber read them.",
	})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "narvaro",
		Name:      "notifications_sent_total",
		Help:      "Telegram notifications by kind and outcome.",
	}, []string{"kind", "outcome"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
