// v0
// internal/observability/metrics.go

package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics aggregates the process counters. A nil *Metrics is valid and
// turns every method into a no-op.
type Metrics struct {
	ticksTotal         prometheus.Counter
	publishedTotal     prometheus.Counter
	publishErrorsTotal prometheus.Counter
	skippedTotal       prometheus.Counter
	brokerConnected    prometheus.Gauge
	httpRequestsTotal  *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// NewMetrics builds and registers the metric set. reg may be nil, in which
// case the default registerer is used; tests pass their own registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "metersim_replay_ticks_total",
			Help: "Total replay loop ticks executed.",
		}),
		publishedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "metersim_published_total",
			Help: "Total payloads acknowledged by the broker.",
		}),
		publishErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "metersim_publish_errors_total",
			Help: "Total publish attempts that failed in the transport.",
		}),
		skippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "metersim_skipped_total",
			Help: "Total ticks that skipped publishing while disconnected.",
		}),
		brokerConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "metersim_broker_connected",
			Help: "Broker connection flag (1 connected, 0 disconnected).",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		m.ticksTotal,
		m.publishedTotal,
		m.publishErrorsTotal,
		m.skippedTotal,
		m.brokerConnected,
		m.httpRequestsTotal,
		m.httpDuration,
	)

	return m
}

func (m *Metrics) Tick() {
	if m == nil {
		return
	}
	m.ticksTotal.Inc()
}

func (m *Metrics) Published() {
	if m == nil {
		return
	}
	m.publishedTotal.Inc()
}

func (m *Metrics) PublishError() {
	if m == nil {
		return
	}
	m.publishErrorsTotal.Inc()
}

func (m *Metrics) Skipped() {
	if m == nil {
		return
	}
	m.skippedTotal.Inc()
}

func (m *Metrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.brokerConnected.Set(1)
	} else {
		m.brokerConnected.Set(0)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler instruments one route with request count and duration.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		duration := time.Since(start).Seconds()
		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(duration)
		}
	})
}

// Handler exposes the default-registry scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
