// Package metrics defines the Prometheus collectors of the portal core.
// All recording methods are safe on a nil *Metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the portal collectors.
type Metrics struct {
	// ErrorsTotal tracks handled errors per category and severity
	ErrorsTotal *prometheus.CounterVec
	// RetriesTotal tracks backoff waits per error category
	RetriesTotal *prometheus.CounterVec
	// CacheRequests tracks cache lookups by result
	CacheRequests *prometheus.CounterVec
	// CacheEvictions tracks entries removed because they expired or made room
	CacheEvictions prometheus.Counter
	// ReportsSent tracks batches delivered per sink
	ReportsSent *prometheus.CounterVec
	// SinkFailures tracks failed deliveries per sink
	SinkFailures *prometheus.CounterVec
	// HTTPDuration tracks BFF request latency
	HTTPDuration *prometheus.HistogramVec

	reg prometheus.Registerer
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		ErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_errors_total",
				Help: "Total number of handled errors",
			},
			[]string{"category", "severity"},
		),
		RetriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_retries_total",
				Help: "Total number of retry backoff waits",
			},
			[]string{"category"},
		),
		CacheRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_cache_requests_total",
				Help: "Total number of cache lookups",
			},
			[]string{"result"},
		),
		CacheEvictions: f.NewCounter(
			prometheus.CounterOpts{
				Name: "portal_cache_evictions_total",
				Help: "Total number of evicted cache entries",
			},
		),
		ReportsSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_reports_sent_total",
				Help: "Total number of batches delivered to a sink",
			},
			[]string{"sink"},
		),
		SinkFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_sink_failures_total",
				Help: "Total number of failed sink deliveries",
			},
			[]string{"sink"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portal_http_request_duration_seconds",
				Help:    "BFF request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
}

// TrackDroppedLogs exports dropped() as the number of log records that never
// reached the remote sink.
func (m *Metrics) TrackDroppedLogs(dropped func() int64) {
	if m == nil {
		return
	}
	promauto.With(m.reg).NewCounterFunc(
		prometheus.CounterOpts{
			Name: "portal_logs_dropped_total",
			Help: "Total number of log records dropped by the remote log handler",
		},
		func() float64 { return float64(dropped()) },
	)
}

func (m *Metrics) Error(category, severity string) {
	if m != nil {
		m.ErrorsTotal.WithLabelValues(category, severity).Inc()
	}
}

func (m *Metrics) Retry(category string) {
	if m != nil {
		m.RetriesTotal.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) CacheHit() {
	if m != nil {
		m.CacheRequests.WithLabelValues("hit").Inc()
	}
}

func (m *Metrics) CacheMiss() {
	if m != nil {
		m.CacheRequests.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) CacheEvicted(n int) {
	if m != nil && n > 0 {
		m.CacheEvictions.Add(float64(n))
	}
}

func (m *Metrics) Sent(sink string) {
	if m != nil {
		m.ReportsSent.WithLabelValues(sink).Inc()
	}
}

func (m *Metrics) SinkFailed(sink string) {
	if m != nil {
		m.SinkFailures.WithLabelValues(sink).Inc()
	}
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m != nil {
		m.HTTPDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
	}
}
