// Package metrics declares the Prometheus collectors shared by the cache
// and provider layers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the pipeline reports to. Constructed once
// in cmd/api and injected; there is no package-level registry.
type Metrics struct {
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	CacheErrors prometheus.Counter

	ProviderCalls   *prometheus.CounterVec
	ProviderLatency *prometheus.HistogramVec
}

// New registers all collectors against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "meetupspot",
			Subsystem: "spatial_cache",
			Name:      "hits_total",
			Help:      "Nearby-search lookups served from the spatial cache.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "meetupspot",
			Subsystem: "spatial_cache",
			Name:      "misses_total",
			Help:      "Nearby-search lookups that fell through to the provider.",
		}),
		CacheErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "meetupspot",
			Subsystem: "spatial_cache",
			Name:      "errors_total",
			Help:      "Spatial cache backend failures.",
		}),
		ProviderCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meetupspot",
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Map provider calls by function and outcome.",
		}, []string{"function", "status"}),
		ProviderLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "meetupspot",
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "Map provider call latency by function.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"function"}),
	}
}
