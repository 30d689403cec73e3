// Package metrics exposes Prometheus metrics for the profile store server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records profile store and HTTP metrics.
type Collector struct {
	profileFetches  *prometheus.CounterVec
	profileUpserts  prometheus.Counter
	invalidUpserts  prometheus.Counter
	watchers        prometheus.Gauge
	httpStatus      *prometheus.CounterVec
	requestDuration prometheus.Histogram
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		profileFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_profile_fetch_total",
			Help: "Profile reads by result.",
		}, []string{"result"}),
		profileUpserts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_profile_upsert_total",
			Help: "Profile records written.",
		}),
		invalidUpserts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_profile_upsert_invalid_total",
			Help: "Profile writes rejected as invalid.",
		}),
		watchers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portal_profile_watchers",
			Help: "Open profile watch streams.",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_status_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.profileFetches,
		c.profileUpserts,
		c.invalidUpserts,
		c.watchers,
		c.httpStatus,
		c.requestDuration,
	)
	return c
}

func (c *Collector) RecordProfileFetch(found bool) {
	result := "miss"
	if found {
		result = "hit"
	}
	c.profileFetches.WithLabelValues(result).Inc()
}

func (c *Collector) RecordProfileUpsert() {
	c.profileUpserts.Inc()
}

func (c *Collector) RecordInvalidUpsert() {
	c.invalidUpserts.Inc()
}

func (c *Collector) SetWatchers(n int) {
	c.watchers.Set(float64(n))
}

func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func (c *Collector) RecordRequestDuration(d time.Duration) {
	c.requestDuration.Observe(d.Seconds())
}

// Handler serves the gathered metrics for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
