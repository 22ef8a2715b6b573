package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	downloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "titleplant",
			Name:      "downloads_total",
			Help:      "Documents processed by portal and result (completed, failed, skipped)",
		},
		[]string{"portal", "result"},
	)

	downloadLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "titleplant",
			Name:      "download_duration_seconds",
			Help:      "End-to-end duration of one document download by portal",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"portal"},
	)

	fetchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "titleplant",
			Name:      "fetch_errors_total",
			Help:      "Portal fetch failures by error kind",
		},
		[]string{"kind"},
	)

	bytesArchived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "titleplant",
			Name:      "archived_bytes_total",
			Help:      "Total optimized bytes uploaded to the archive",
		},
	)

	optimizerSavings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "titleplant",
			Name:      "optimizer_saved_bytes_total",
			Help:      "Bytes removed from PDFs by optimization",
		},
	)

	mismatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "titleplant",
			Name:      "book_page_mismatches_total",
			Help:      "Documents whose portal-reported book/page differed from the index",
		},
	)

	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "titleplant",
			Name:      "queue_depth",
			Help:      "Queue depth by download status",
		},
		[]string{"status"},
	)

	staleResets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "titleplant",
			Name:      "stale_resets_total",
			Help:      "in_progress rows returned to pending by the stale sweeper",
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(downloads, downloadLatency, fetchErrors, bytesArchived,
		optimizerSavings, mismatches, queueDepth, staleResets)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveDownload(portal, result string, dur time.Duration) {
	downloads.WithLabelValues(portal, result).Inc()
	downloadLatency.WithLabelValues(portal).Observe(dur.Seconds())
}

func IncFetchError(kind string) { fetchErrors.WithLabelValues(kind).Inc() }

func AddArchivedBytes(n int64) { bytesArchived.Add(float64(n)) }

func AddOptimizerSavings(original, optimized int64) {
	if original > optimized {
		optimizerSavings.Add(float64(original - optimized))
	}
}

func IncMismatch() { mismatches.Inc() }

func SetQueueDepth(status string, v int64) { queueDepth.WithLabelValues(status).Set(float64(v)) }

func AddStaleResets(n int64) { staleResets.Add(float64(n)) }
