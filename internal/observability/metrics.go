package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "goes_fire"

// Metrics holds the Prometheus counters, histograms, and gauges for the import pipeline.
type Metrics struct {
	FilesDownloaded prometheus.Counter
	FilesCorrupt    prometheus.Counter
	FilesProcessed  prometheus.Counter
	ProcessErrors   prometheus.Counter

	DetectionsExtracted prometheus.Counter
	DetectionsWritten   *prometheus.CounterVec // labels: sink={postgis,kafka}
	DetectionsDuplicate *prometheus.CounterVec // labels: sink={postgis,kafka}

	CycleDuration    prometheus.Histogram
	FileDuration     prometheus.Histogram
	PipelineRunning  prometheus.Gauge
	LastScanUnixTime prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FilesDownloaded,
		m.FilesCorrupt,
		m.FilesProcessed,
		m.ProcessErrors,
		m.DetectionsExtracted,
		m.DetectionsWritten,
		m.DetectionsDuplicate,
		m.CycleDuration,
		m.FileDuration,
		m.PipelineRunning,
		m.LastScanUnixTime,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FilesDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_downloaded_total",
			Help:      "Product files available locally after the fetch step.",
		}),
		FilesCorrupt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_corrupt_total",
			Help:      "Downloaded files that failed NetCDF validation and were removed.",
		}),
		FilesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Product files decoded successfully.",
		}),
		ProcessErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "process_errors_total",
			Help:      "Product files that could not be decoded after all retries.",
		}),
		DetectionsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_extracted_total",
			Help:      "Fire detections extracted inside the configured region.",
		}),
		DetectionsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_written_total",
			Help:      "Fire detections written, by sink.",
		}, []string{"sink"}),
		DetectionsDuplicate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_duplicate_total",
			Help:      "Fire detections skipped as duplicates, by sink.",
		}, []string{"sink"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete fetch-decode-load cycle.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		FileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_processing_duration_seconds",
			Help:      "Time spent decoding and extracting a single product file.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		LastScanUnixTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_scan_timestamp_seconds",
			Help:      "Scan start of the newest archived product file.",
		}),
	}
}
