// Package metrics exposes Prometheus counters for source acquisition,
// cache usage and exports on a private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/filtrador/internal/source"
)

const namespace = "filtrador"

// Metrics holds the collectors. It implements source.Observer.
type Metrics struct {
	registry *prometheus.Registry

	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	cache         *prometheus.CounterVec
	exports       *prometheus.CounterVec
	exportRows    prometheus.Histogram
}

var _ source.Observer = (*Metrics)(nil)

// New registers all collectors on a fresh registry, together with the
// Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetch_total",
			Help:      "Source acquisitions by mode and result.",
		}, []string{"mode", "result"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_duration_seconds",
			Help:      "Duration of source acquisitions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_cache_total",
			Help:      "Cache lookups by result (hit or miss).",
		}, []string{"result"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Spreadsheet exports by result.",
		}, []string{"result"}),
		exportRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_rows",
			Help:      "Rows per exported spreadsheet.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}

	m.registry.MustRegister(
		m.fetches,
		m.fetchDuration,
		m.cache,
		m.exports,
		m.exportRows,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) CacheHit(source.Key)  { m.cache.WithLabelValues("hit").Inc() }
func (m *Metrics) CacheMiss(source.Key) { m.cache.WithLabelValues("miss").Inc() }

func (m *Metrics) Fetched(key source.Key, elapsed time.Duration, err error) {
	mode := string(key.Mode)
	m.fetches.WithLabelValues(mode, fetchResult(err)).Inc()
	m.fetchDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// Exported records one export attempt.
func (m *Metrics) Exported(rows int, err error) {
	if err != nil {
		m.exports.WithLabelValues("error").Inc()
		return
	}
	m.exports.WithLabelValues("ok").Inc()
	m.exportRows.Observe(float64(rows))
}

func fetchResult(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range []source.Kind{source.KindNotFound, source.KindNetwork, source.KindStatus, source.KindTooLarge} {
		if source.IsKind(err, k) {
			return k.String()
		}
	}
	return "error"
}
