package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ChatTokensStreamed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_tokens_streamed_total",
			Help: "Total number of completion tokens forwarded to callers",
		},
	)

	ChatStreams = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_streams_total",
			Help: "Completed chat streams by terminal state",
		},
		[]string{"status"}, // completed, aborted, empty
	)
)

// Init registers metrics with Prometheus
func Init() {
	prometheus.MustRegister(HTTPRequests)
	prometheus.MustRegister(HTTPDuration)
	prometheus.MustRegister(ChatTokensStreamed)
	prometheus.MustRegister(ChatStreams)
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
