package metrics

import "time"

type noopStorageMetrics struct{}

// NewNoopStorageMetrics returns a StorageMetrics that discards everything.
func NewNoopStorageMetrics() StorageMetrics {
	return noopStorageMetrics{}
}

func (noopStorageMetrics) RecordUpload(string, int, int64) {}

func (noopStorageMetrics) RecordDownload(string, int64) {}

func (noopStorageMetrics) RecordQuotaRejection() {}

func (noopStorageMetrics) RecordPathEscape(string) {}

func (noopStorageMetrics) ObserveUsageScan(time.Duration) {}
