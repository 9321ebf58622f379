// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Download pipeline metrics
var (
	DownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubetrove_downloads_total",
			Help: "Total number of finished downloads by kind and result.",
		},
		[]string{"kind", "result"},
	)

	DownloadsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tubetrove_downloads_in_flight",
			Help: "Number of downloads currently being processed.",
		},
	)

	DownloadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tubetrove_download_duration_seconds",
			Help:    "Time from resolving to a terminal stage.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"kind"},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tubetrove_queue_depth",
			Help: "Number of requests waiting for a worker.",
		},
	)

	QueueRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tubetrove_queue_rejected_total",
			Help: "Requests refused because the queue was full.",
		},
	)
)

// Title cache metrics
var (
	TitleCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tubetrove_title_cache_hits_total",
			Help: "Title lookups answered from the cache.",
		},
	)

	TitleCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tubetrove_title_cache_misses_total",
			Help: "Title lookups that required a metadata fetch.",
		},
	)
)

// Library metrics
var (
	LibraryEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tubetrove_library_entries",
			Help: "Displayable library entries per category after the last scan.",
		},
		[]string{"category"},
	)

	LibraryScansTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tubetrove_library_scans_total",
			Help: "Total number of library scans.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		DownloadsTotal,
		DownloadsInFlight,
		DownloadDuration,
		QueueDepth,
		QueueRejectedTotal,
		TitleCacheHitsTotal,
		TitleCacheMissesTotal,
		LibraryEntries,
		LibraryScansTotal,
	)
}
