package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "taskhub"

// Collector is a prometheus.Collector for the marketplace API. A nil
// *Collector is valid and records nothing.
type Collector struct {
	transactions    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	notifications   *prometheus.CounterVec
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "transactions_total",
				Help:      "The number of financial transactions by type and resulting status.",
			}, []string{"type", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "The time taken to serve an HTTP request.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			}, []string{"method", "route", "status"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "cache_lookups_total",
				Help:      "The number of cache lookups by cache name and result.",
			}, []string{"cache", "result"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "notifications_total",
				Help:      "The number of notifications sent by kind.",
			}, []string{"kind"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.transactions.Describe(ch)
	c.requestDuration.Describe(ch)
	c.cacheLookups.Describe(ch)
	c.notifications.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.transactions.Collect(ch)
	c.requestDuration.Collect(ch)
	c.cacheLookups.Collect(ch)
	c.notifications.Collect(ch)
}

// TransactionRecorded counts a transaction reaching status.
func (c *Collector) TransactionRecorded(txType, status string) {
	if c == nil {
		return
	}
	c.transactions.WithLabelValues(txType, status).Inc()
}

// RequestServed observes the duration of a served request.
func (c *Collector) RequestServed(method, route string, status int, took time.Duration) {
	if c == nil {
		return
	}
	c.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(took.Seconds())
}

// CacheLookup counts a cache hit or miss.
func (c *Collector) CacheLookup(cache string, hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(cache, result).Inc()
}

// NotificationSent counts a delivered notification.
func (c *Collector) NotificationSent(kind string) {
	if c == nil {
		return
	}
	c.notifications.WithLabelValues(kind).Inc()
}
