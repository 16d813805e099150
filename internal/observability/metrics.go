package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	checkouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Checkout attempts by result.",
		},
		[]string{"result"},
	)
	fulfillmentAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fulfillment",
			Name:      "attempts_total",
			Help:      "Fulfillment attempts by result.",
		},
		[]string{"result"},
	)
	fulfillmentOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fulfillment",
			Name:      "outcomes_total",
			Help:      "Fulfillment tasks by final outcome.",
		},
		[]string{"outcome"},
	)
	fulfillmentDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fulfillment",
			Name:      "duration_seconds",
			Help:      "Time from first attempt to final outcome.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	statusStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "status",
			Name:      "streams_active",
			Help:      "Open order status streams.",
		},
	)
	statusEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "status",
			Name:      "events_total",
			Help:      "Status events pushed to clients.",
		},
		[]string{"status"},
	)
	lowStockCrossings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_stock_crossings_total",
			Help:      "Stock adjustments that crossed the low stock threshold.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration, checkouts,
			fulfillmentAttempts, fulfillmentOutcomes, fulfillmentDuration,
			statusStreams, statusEvents, lowStockCrossings,
		)
	})
}

// MetricsHandler serves the default Prometheus registry.
func MetricsHandler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordCheckout(result string) {
	RegisterMetrics()
	checkouts.WithLabelValues(result).Inc()
}

func RecordFulfillmentAttempt(result string) {
	RegisterMetrics()
	fulfillmentAttempts.WithLabelValues(result).Inc()
}

func RecordFulfillmentOutcome(outcome string, duration time.Duration) {
	RegisterMetrics()
	fulfillmentOutcomes.WithLabelValues(outcome).Inc()
	fulfillmentDuration.Observe(duration.Seconds())
}

// StatusStreamOpened increments the open stream gauge and returns the matching decrement.
func StatusStreamOpened() func() {
	RegisterMetrics()
	statusStreams.Inc()
	return statusStreams.Dec
}

func RecordStatusEvent(status string) {
	RegisterMetrics()
	statusEvents.WithLabelValues(status).Inc()
}

func RecordLowStockCrossing() {
	RegisterMetrics()
	lowStockCrossings.Inc()
}
