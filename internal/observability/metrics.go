package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch outcomes recorded per inbound message.
const (
	OutcomeDelivered    = "delivered"
	OutcomeNoRoute      = "no_route"
	OutcomeParseError   = "parse_error"
	OutcomeInvalid      = "invalid"
	OutcomeHandlerError = "handler_error"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "osclink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "osclink",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	dispatchMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "osclink",
			Subsystem: "dispatch",
			Name:      "messages_total",
			Help:      "Inbound OSC messages by route pattern and outcome.",
		},
		[]string{"route", "outcome"},
	)
	dispatchParse = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "osclink",
			Subsystem: "dispatch",
			Name:      "parse_seconds",
			Help:      "Argument parse and validation time in seconds.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		},
		[]string{"route"},
	)
	dispatchHandler = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "osclink",
			Subsystem: "dispatch",
			Name:      "handler_seconds",
			Help:      "Handler execution time in seconds, including lock wait.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	dispatchReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "osclink",
			Subsystem: "dispatch",
			Name:      "replies_total",
			Help:      "Replies sent back to message senders.",
		},
		[]string{"route", "success"},
	)
	sentMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "osclink",
			Subsystem: "transport",
			Name:      "sent_total",
			Help:      "Outbound OSC messages by client.",
		},
		[]string{"client", "success"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			dispatchMessages, dispatchParse, dispatchHandler, dispatchReplies,
			sentMessages,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordDispatch(route, outcome string) {
	RegisterMetrics()
	dispatchMessages.WithLabelValues(route, outcome).Inc()
}

func RecordParse(route string, duration time.Duration) {
	RegisterMetrics()
	dispatchParse.WithLabelValues(route).Observe(duration.Seconds())
}

func RecordHandler(route string, duration time.Duration) {
	RegisterMetrics()
	dispatchHandler.WithLabelValues(route).Observe(duration.Seconds())
}

func RecordReply(route string, success bool) {
	RegisterMetrics()
	dispatchReplies.WithLabelValues(route, strconv.FormatBool(success)).Inc()
}

func RecordSend(client string, success bool) {
	RegisterMetrics()
	sentMessages.WithLabelValues(client, strconv.FormatBool(success)).Inc()
}
