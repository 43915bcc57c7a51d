package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation outcomes used as the status label.
const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
	StatusNotFound = "not_found"
	StatusError    = "error"
)

// StorageMetrics records storage gateway activity.
type StorageMetrics interface {
	// RecordUpload records a finished upload request with the number of files
	// and bytes actually written.
	RecordUpload(status string, files int, bytes int64)

	// RecordDownload records a download request and the size of the served file.
	RecordDownload(status string, bytes int64)

	// RecordQuotaRejection counts a write refused by the quota guard.
	RecordQuotaRejection()

	// RecordPathEscape counts a caller path rejected for leaving the user root.
	RecordPathEscape(operation string)

	// ObserveUsageScan records how long a usage measurement took.
	ObserveUsageScan(duration time.Duration)
}

type storageMetrics struct {
	uploadsTotal      *prometheus.CounterVec
	uploadedFiles     prometheus.Counter
	uploadedBytes     prometheus.Counter
	downloadsTotal    *prometheus.CounterVec
	downloadedBytes   prometheus.Counter
	quotaRejections   prometheus.Counter
	pathEscapes       *prometheus.CounterVec
	usageScanDuration prometheus.Histogram
}

// NewStorageMetrics returns metrics registered on the global registry, or a
// no-op implementation when metrics are disabled.
func NewStorageMetrics() StorageMetrics {
	if !IsEnabled() {
		return NewNoopStorageMetrics()
	}
	return NewStorageMetricsWith(GetRegistry())
}

// NewStorageMetricsWith registers the storage metrics on reg.
func NewStorageMetricsWith(reg prometheus.Registerer) StorageMetrics {
	factory := promauto.With(reg)

	return &storageMetrics{
		uploadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mycloud_uploads_total",
				Help: "Total number of upload requests by status",
			},
			[]string{"status"},
		),
		uploadedFiles: factory.NewCounter(prometheus.CounterOpts{
			Name: "mycloud_uploaded_files_total",
			Help: "Total number of files written by uploads",
		}),
		uploadedBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "mycloud_uploaded_bytes_total",
			Help: "Total bytes written by uploads",
		}),
		downloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mycloud_downloads_total",
				Help: "Total number of download requests by status",
			},
			[]string{"status"},
		),
		downloadedBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "mycloud_downloaded_bytes_total",
			Help: "Total size of files opened for download",
		}),
		quotaRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "mycloud_quota_rejections_total",
			Help: "Total number of writes rejected by the quota guard",
		}),
		pathEscapes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mycloud_path_escape_attempts_total",
				Help: "Total number of rejected paths resolving outside the user root",
			},
			[]string{"operation"},
		),
		usageScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mycloud_usage_scan_duration_seconds",
			Help:    "Duration of recursive usage scans",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		}),
	}
}

func (m *storageMetrics) RecordUpload(status string, files int, bytes int64) {
	m.uploadsTotal.WithLabelValues(status).Inc()
	if files > 0 {
		m.uploadedFiles.Add(float64(files))
	}
	if bytes > 0 {
		m.uploadedBytes.Add(float64(bytes))
	}
}

func (m *storageMetrics) RecordDownload(status string, bytes int64) {
	m.downloadsTotal.WithLabelValues(status).Inc()
	if bytes > 0 {
		m.downloadedBytes.Add(float64(bytes))
	}
}

func (m *storageMetrics) RecordQuotaRejection() {
	m.quotaRejections.Inc()
}

func (m *storageMetrics) RecordPathEscape(operation string) {
	m.pathEscapes.WithLabelValues(operation).Inc()
}

func (m *storageMetrics) ObserveUsageScan(duration time.Duration) {
	m.usageScanDuration.Observe(duration.Seconds())
}
