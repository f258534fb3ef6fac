package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	connectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intentd",
			Subsystem: "tcp",
			Name:      "connections_total",
			Help:      "Accepted TCP connections by detected protocol mode.",
		},
		[]string{"mode"},
	)
	connectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "intentd",
			Subsystem: "tcp",
			Name:      "connections_active",
			Help:      "TCP connections currently being handled.",
		},
	)
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intentd",
			Subsystem: "tcp",
			Name:      "requests_total",
			Help:      "Handled requests by mode, command and outcome.",
		},
		[]string{"mode", "command", "outcome"},
	)
	engineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intentd",
			Subsystem: "engine",
			Name:      "duration_seconds",
			Help:      "Time spent holding the engine lock per operation.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intentd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intentd",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			connectionsTotal,
			connectionsActive,
			requestsTotal,
			engineDuration,
			httpRequests,
			httpDuration,
		)
	})
}

// Recorder adapts the package metrics to the server and gateway hooks.
type Recorder struct{}

func NewRecorder() Recorder {
	RegisterMetrics()
	return Recorder{}
}

func (Recorder) ConnectionOpened(mode string) {
	connectionsTotal.WithLabelValues(mode).Inc()
}

func (Recorder) ConnectionActive(delta int) {
	connectionsActive.Add(float64(delta))
}

func (Recorder) RequestHandled(mode, command, outcome string) {
	requestsTotal.WithLabelValues(mode, command, outcome).Inc()
}

func (Recorder) ObserveEngine(op string, d time.Duration) {
	engineDuration.WithLabelValues(op).Observe(d.Seconds())
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
