// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClampsTotal counts rate results silently repaired by the deriver.
	// The clamp policy keeps a bad tenor from blocking a pricing request,
	// but every fire may be masking an upstream data defect, so each one
	// is counted by reason (nan, inf, low, high).
	ClampsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fxcurve_clamps_total",
		Help: "Rate results clamped to a safe default, by reason",
	}, []string{"reason"})

	SourceFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fxcurve_source_fetches_total",
		Help: "External market-data fetches, by kind (curve, fx_leg)",
	}, []string{"kind"})

	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fxcurve_cache_hits_total",
		Help: "TTL cache hits, by cache name",
	}, []string{"cache"})

	CacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fxcurve_cache_misses_total",
		Help: "TTL cache misses, by cache name",
	}, []string{"cache"})

	TickerFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fxcurve_ticker_fallbacks_total",
		Help: "FX leg fetches served by the alternate ticker direction",
	})

	DeriveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fxcurve_derive_duration_seconds",
		Help:    "Latency of a full rd/rf derivation",
		Buckets: prometheus.DefBuckets,
	})
)
