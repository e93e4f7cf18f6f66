package app

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the daemon's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	rankRequests *prometheus.CounterVec
	rankLatency  *prometheus.HistogramVec
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	reloads      *prometheus.CounterVec
	catalogSize  prometheus.Gauge
}

// NewMetrics creates and registers every collector, plus the Go runtime and
// process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rankRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nnsearch_rank_requests_total",
			Help: "Rank requests by strategy and outcome",
		}, []string{"strategy", "status"}),
		rankLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nnsearch_rank_latency_seconds",
			Help:    "Latency of uncached rank calls",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"strategy"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nnsearch_rank_cache_hits_total",
			Help: "Rank requests answered from the result cache",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nnsearch_rank_cache_misses_total",
			Help: "Rank requests that had to be computed",
		}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nnsearch_catalog_reloads_total",
			Help: "Catalog reloads by outcome",
		}, []string{"status"}),
		catalogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nnsearch_catalog_entries",
			Help: "Entries in the universe currently served",
		}),
	}
	m.registry.MustRegister(
		m.rankRequests, m.rankLatency, m.cacheHits, m.cacheMisses, m.reloads, m.catalogSize,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and embedding.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *Metrics) observeRank(strategy string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.rankRequests.WithLabelValues(strategy, status(err)).Inc()
	if err == nil {
		m.rankLatency.WithLabelValues(strategy).Observe(d.Seconds())
	}
}

func (m *Metrics) observeCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) observeReload(size int, err error) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(status(err)).Inc()
	if err == nil {
		m.catalogSize.Set(float64(size))
	}
}
