package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_mutations_total",
			Help: "Cart mutations by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_persistence_failures_total",
			Help: "Failed loads and saves of the cart collection",
		},
		[]string{"op"},
	)

	PersistenceDegraded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cart_persistence_degraded_stores",
			Help: "Stores currently serving from memory without durable saves",
		},
	)

	ListenerPanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cart_listener_panics_total",
			Help: "Change listeners that panicked during delivery",
		},
	)

	OpenSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cart_open_sessions",
			Help: "Shopper sessions with a loaded cart store",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "Duration of HTTP requests in ms",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600},
		},
		[]string{"method", "path"},
	)
)
