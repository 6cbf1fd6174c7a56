package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the search service, grounded on
// tomtom215-cartographus's internal/metrics package: histograms for
// latency, counters for volume. This is an ambient operational concern,
// not a relevance-ranking feature, so it does not conflict with spec.md
// §1's Non-goals.
var (
	searchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tavla_search_duration_seconds",
			Help:    "Duration of search() calls, end to end.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	searchHits = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tavla_search_hits",
			Help:    "Number of hits returned by a search() call.",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
		},
		[]string{"mode"},
	)

	searchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tavla_search_errors_total",
			Help: "Total number of search() calls that returned an error.",
		},
		[]string{"mode"},
	)
)
